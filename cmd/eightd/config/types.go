// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

type EightdConfig struct {
	// Backend: where the complaint workflow API lives
	Backend BackendConfig `yaml:"backend"`

	// Logging: level and optional file sink
	Logging LoggingConfig `yaml:"logging"`

	// Validator: which section validator the stub backend uses
	Validator ValidatorConfig `yaml:"validator"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`        // e.g. http://localhost:8088
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per-request deadline
}

type LoggingConfig struct {
	Level  string `yaml:"level"`             // debug, info, warn, error
	LogDir string `yaml:"log_dir,omitempty"` // empty disables file logging
}

type ValidatorConfig struct {
	// Type can be "heuristic" or "openai".
	Type string `yaml:"type"`

	// OpenAI settings, used only when Type is "openai". The API key is
	// read from OPENAI_API_KEY, never from this file.
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

func DefaultConfig() EightdConfig {
	return EightdConfig{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8088",
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			LogDir: "~/.eightd/logs",
		},
		Validator: ValidatorConfig{
			Type: "heuristic",
		},
	}
}
