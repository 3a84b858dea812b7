// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import "testing"

func TestValidateSection_Containment(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]any
		wantMsgs []string
	}{
		{
			name: "all rules satisfied",
			data: map[string]any{
				"containment_actions": "Blocked finished goods, sorting started.",
				"isolated":            false,
				"alert_recipients":    []string{"Warehouse"},
			},
			wantMsgs: nil,
		},
		{
			name: "no recipients checked",
			data: map[string]any{
				"containment_actions": "Blocked finished goods.",
				"alert_recipients":    []string{},
			},
			wantMsgs: []string{"Check at least one alert recipient"},
		},
		{
			name: "isolated without location",
			data: map[string]any{
				"containment_actions": "Blocked finished goods.",
				"isolated":            true,
				"isolation_location":  "",
				"alert_recipients":    []string{"Warehouse"},
			},
			wantMsgs: []string{"Isolation location is required when suspect stock is isolated"},
		},
		{
			name:     "empty section",
			data:     map[string]any{},
			wantMsgs: []string{"Describe the containment actions taken", "Check at least one alert recipient"},
		},
		{
			name: "recipients decoded from JSON as []any",
			data: map[string]any{
				"containment_actions": "Blocked finished goods.",
				"alert_recipients":    []any{"Warehouse", "Production"},
			},
			wantMsgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSection("containment", tt.data)
			if len(got) != len(tt.wantMsgs) {
				t.Fatalf("messages = %v, want %v", got, tt.wantMsgs)
			}
			for i, want := range tt.wantMsgs {
				if got[i] != want {
					t.Errorf("message[%d] = %q, want %q", i, got[i], want)
				}
			}
		})
	}
}

func TestValidateSection_Restart(t *testing.T) {
	msgs := ValidateSection("restart", map[string]any{})
	if len(msgs) != 2 {
		t.Fatalf("expected both restart rules to fail, got %v", msgs)
	}

	msgs = ValidateSection("restart", map[string]any{
		"restart_conditions":  "After clean stock confirmed.",
		"restart_approved_by": "A. Keller",
	})
	if len(msgs) != 0 {
		t.Errorf("expected no failures, got %v", msgs)
	}
}

func TestValidateSection_SingleShotSteps(t *testing.T) {
	if msgs := ValidateSection("d1", map[string]any{}); len(msgs) == 0 {
		t.Error("empty D1 must fail the team rules")
	}
	if msgs := ValidateSection("d1", map[string]any{
		"team_leader":  "M. Roth",
		"team_members": "Quality: P. Lang; Production: S. Brandt",
	}); len(msgs) != 0 {
		t.Errorf("valid D1 rejected: %v", msgs)
	}
}

func TestValidateSection_UnknownSectionHasNoRules(t *testing.T) {
	if msgs := ValidateSection("nonsense", map[string]any{}); msgs != nil {
		t.Errorf("unknown sections carry no local rules, got %v", msgs)
	}
}
