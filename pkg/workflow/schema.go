// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

// FieldKind selects the input widget and coercion rules for a form field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldMultiline
	FieldBool
	FieldMultiSelect
)

// FieldSpec describes one editable field of a step section. The TUI builds
// its form from these specs, and the default data skeleton is derived from
// them, so the two can't drift apart.
type FieldSpec struct {
	Key     string
	Label   string
	Kind    FieldKind
	Options []string // FieldMultiSelect only
	Section string   // owning section key
}

// stepFields lists the editable fields per step code, in display order.
// For multi-section steps every field carries its owning section key.
var stepFields = map[StepCode][]FieldSpec{
	StepD1: {
		{Key: "team_leader", Label: "Team leader", Kind: FieldText, Section: "d1"},
		{Key: "team_members", Label: "Team members", Kind: FieldMultiline, Section: "d1"},
		{Key: "sponsor", Label: "Sponsor", Kind: FieldText, Section: "d1"},
		{Key: "departments", Label: "Departments involved", Kind: FieldMultiSelect, Section: "d1",
			Options: []string{"Quality", "Production", "Engineering", "Logistics", "Purchasing"}},
	},
	StepD2: {
		{Key: "problem_statement", Label: "Problem statement", Kind: FieldMultiline, Section: "d2"},
		{Key: "detection_point", Label: "Where detected", Kind: FieldText, Section: "d2"},
		{Key: "quantity_affected", Label: "Quantity affected", Kind: FieldText, Section: "d2"},
		{Key: "first_occurrence", Label: "First occurrence date", Kind: FieldText, Section: "d2"},
		{Key: "is_repeat", Label: "Repeat issue", Kind: FieldBool, Section: "d2"},
	},
	StepD3: {
		{Key: "containment_actions", Label: "Containment actions", Kind: FieldMultiline, Section: "containment"},
		{Key: "isolated", Label: "Suspect stock isolated", Kind: FieldBool, Section: "containment"},
		{Key: "isolation_location", Label: "Isolation location", Kind: FieldText, Section: "containment"},
		{Key: "quantity_blocked", Label: "Quantity blocked", Kind: FieldText, Section: "containment"},
		{Key: "alert_recipients", Label: "Alert recipients", Kind: FieldMultiSelect, Section: "containment",
			Options: []string{"Production", "Warehouse", "Customer portal", "Supplier", "Quality network"}},
		{Key: "restart_conditions", Label: "Restart conditions", Kind: FieldMultiline, Section: "restart"},
		{Key: "restart_approved_by", Label: "Restart approved by", Kind: FieldText, Section: "restart"},
		{Key: "restart_date", Label: "Planned restart date", Kind: FieldText, Section: "restart"},
		{Key: "monitoring_plan", Label: "Monitoring plan", Kind: FieldMultiline, Section: "restart"},
	},
	StepD4: {
		{Key: "root_cause", Label: "Root cause", Kind: FieldMultiline, Section: "d4"},
		{Key: "analysis_method", Label: "Analysis method", Kind: FieldMultiSelect, Section: "d4",
			Options: []string{"5 Whys", "Ishikawa", "Fault tree", "Pareto"}},
		{Key: "escape_cause", Label: "Escape point cause", Kind: FieldMultiline, Section: "d4"},
		{Key: "verified", Label: "Cause verified on part", Kind: FieldBool, Section: "d4"},
	},
	StepD5: {
		{Key: "chosen_actions", Label: "Chosen corrective actions", Kind: FieldMultiline, Section: "d5"},
		{Key: "decision_criteria", Label: "Decision criteria", Kind: FieldMultiline, Section: "d5"},
		{Key: "owner", Label: "Action owner", Kind: FieldText, Section: "d5"},
	},
	StepD6: {
		{Key: "implementation_plan", Label: "Implementation plan", Kind: FieldMultiline, Section: "d6"},
		{Key: "completion_date", Label: "Completion date", Kind: FieldText, Section: "d6"},
		{Key: "effectiveness_check", Label: "Effectiveness check", Kind: FieldMultiline, Section: "d6"},
	},
	StepD7: {
		{Key: "systemic_actions", Label: "Systemic prevention actions", Kind: FieldMultiline, Section: "d7"},
		{Key: "documents_updated", Label: "Documents updated", Kind: FieldMultiSelect, Section: "d7",
			Options: []string{"FMEA", "Control plan", "Work instructions", "Training records"}},
	},
	StepD8: {
		{Key: "closure_summary", Label: "Closure summary", Kind: FieldMultiline, Section: "d8"},
		{Key: "lessons_learned", Label: "Lessons learned", Kind: FieldMultiline, Section: "d8"},
		{Key: "team_recognized", Label: "Team recognized", Kind: FieldBool, Section: "d8"},
	},
}

// Fields returns the ordered field specs for a step code.
func Fields(code StepCode) []FieldSpec {
	return stepFields[code]
}

// SectionFields returns the field specs belonging to one section of a step.
func SectionFields(code StepCode, section string) []FieldSpec {
	var out []FieldSpec
	for _, f := range stepFields[code] {
		if f.Section == section {
			out = append(out, f)
		}
	}
	return out
}

// DefaultData builds the zero-value data skeleton for a step code. Text
// fields default to "", bools to false, multi-selects to an empty list.
func DefaultData(code StepCode) map[string]any {
	data := make(map[string]any)
	for _, f := range stepFields[code] {
		switch f.Kind {
		case FieldBool:
			data[f.Key] = false
		case FieldMultiSelect:
			data[f.Key] = []string{}
		default:
			data[f.Key] = ""
		}
	}
	return data
}

// MergeData lays stored step data over the default skeleton. Stored keys
// win on collision; keys the backend has never seen fall back to defaults.
// This keeps old records editable after a schema gains fields.
func MergeData(defaults, stored map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(stored))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range stored {
		if v == nil {
			continue
		}
		merged[k] = v
	}
	return merged
}

// StringField extracts a string field from step data, tolerating missing
// keys and nils.
func StringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// BoolField extracts a bool field from step data.
func BoolField(data map[string]any, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

// ListField extracts a string-list field from step data. JSON decoding
// yields []any; both representations are accepted.
func ListField(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
