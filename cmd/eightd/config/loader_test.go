// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back EightdConfig
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.Backend.BaseURL != cfg.Backend.BaseURL {
		t.Errorf("base URL lost in round trip: %q", back.Backend.BaseURL)
	}
	if back.Backend.TimeoutSeconds != 30 {
		t.Errorf("timeout = %d, want 30", back.Backend.TimeoutSeconds)
	}
	if back.Validator.Type != "heuristic" {
		t.Errorf("validator type = %q, want heuristic", back.Validator.Type)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("EIGHTD_BACKEND_URL", "http://staging:9000")
	t.Setenv("EIGHTD_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.Backend.BaseURL != "http://staging:9000" {
		t.Errorf("env override lost: %q", cfg.Backend.BaseURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level override lost: %q", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_EmptyEnvKeepsFileValues(t *testing.T) {
	t.Setenv("EIGHTD_BACKEND_URL", "")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.Backend.BaseURL != "http://localhost:8088" {
		t.Errorf("empty env must not clobber config: %q", cfg.Backend.BaseURL)
	}
}
