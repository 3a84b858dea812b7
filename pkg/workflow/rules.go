// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Local structural rules run synchronously before any network call. A rule
// failure aborts the submission: no draft save, no AI call, and the
// section's status is left untouched.

var validate = validator.New(validator.WithRequiredStructEnabled())

// containmentRules covers the "containment" section of D3. The cross-field
// rule mirrors the shop-floor reality: an isolation claim without a
// location is unactionable.
type containmentRules struct {
	ContainmentActions string   `validate:"required"`
	Isolated           bool     `validate:"-"`
	IsolationLocation  string   `validate:"required_if=Isolated true"`
	AlertRecipients    []string `validate:"min=1"`
}

type restartRules struct {
	RestartConditions string `validate:"required"`
	RestartApprovedBy string `validate:"required"`
}

type teamRules struct {
	TeamLeader  string `validate:"required"`
	TeamMembers string `validate:"required"`
}

type problemRules struct {
	ProblemStatement string `validate:"required"`
	DetectionPoint   string `validate:"required"`
}

type rootCauseRules struct {
	RootCause      string   `validate:"required"`
	AnalysisMethod []string `validate:"min=1"`
}

type actionSelectionRules struct {
	ChosenActions string `validate:"required"`
	Owner         string `validate:"required"`
}

type implementationRules struct {
	ImplementationPlan string `validate:"required"`
	CompletionDate     string `validate:"required"`
}

type preventionRules struct {
	SystemicActions string `validate:"required"`
}

type closureRules struct {
	ClosureSummary string `validate:"required"`
}

// ruleMessages maps a failed struct field to the message shown to the
// user. Messages are keyed by struct field name as reported by the
// validator, per section.
var ruleMessages = map[string]map[string]string{
	"containment": {
		"ContainmentActions": "Describe the containment actions taken",
		"IsolationLocation":  "Isolation location is required when suspect stock is isolated",
		"AlertRecipients":    "Check at least one alert recipient",
	},
	"restart": {
		"RestartConditions": "Define the conditions for restarting production",
		"RestartApprovedBy": "Name who approved the restart",
	},
	"d1": {
		"TeamLeader":  "Name the team leader",
		"TeamMembers": "List the team members",
	},
	"d2": {
		"ProblemStatement": "Write the problem statement",
		"DetectionPoint":   "State where the problem was detected",
	},
	"d4": {
		"RootCause":      "Describe the root cause",
		"AnalysisMethod": "Select at least one analysis method",
	},
	"d5": {
		"ChosenActions": "Describe the chosen corrective actions",
		"Owner":         "Name the action owner",
	},
	"d6": {
		"ImplementationPlan": "Describe the implementation plan",
		"CompletionDate":     "Set the completion date",
	},
	"d7": {
		"SystemicActions": "Describe the systemic prevention actions",
	},
	"d8": {
		"ClosureSummary": "Write the closure summary",
	},
}

// sectionRuleStruct builds the rules struct for a section from the
// in-memory step data. Unknown sections have no local rules.
func sectionRuleStruct(section string, data map[string]any) any {
	switch section {
	case "containment":
		return containmentRules{
			ContainmentActions: StringField(data, "containment_actions"),
			Isolated:           BoolField(data, "isolated"),
			IsolationLocation:  StringField(data, "isolation_location"),
			AlertRecipients:    ListField(data, "alert_recipients"),
		}
	case "restart":
		return restartRules{
			RestartConditions: StringField(data, "restart_conditions"),
			RestartApprovedBy: StringField(data, "restart_approved_by"),
		}
	case "d1":
		return teamRules{
			TeamLeader:  StringField(data, "team_leader"),
			TeamMembers: StringField(data, "team_members"),
		}
	case "d2":
		return problemRules{
			ProblemStatement: StringField(data, "problem_statement"),
			DetectionPoint:   StringField(data, "detection_point"),
		}
	case "d4":
		return rootCauseRules{
			RootCause:      StringField(data, "root_cause"),
			AnalysisMethod: ListField(data, "analysis_method"),
		}
	case "d5":
		return actionSelectionRules{
			ChosenActions: StringField(data, "chosen_actions"),
			Owner:         StringField(data, "owner"),
		}
	case "d6":
		return implementationRules{
			ImplementationPlan: StringField(data, "implementation_plan"),
			CompletionDate:     StringField(data, "completion_date"),
		}
	case "d7":
		return preventionRules{
			SystemicActions: StringField(data, "systemic_actions"),
		}
	case "d8":
		return closureRules{
			ClosureSummary: StringField(data, "closure_summary"),
		}
	default:
		return nil
	}
}

// ValidateSection runs the local rules for one section against the
// in-memory step data. It returns the human-readable rule messages, in
// struct field order; an empty slice means the section is locally valid.
func ValidateSection(section string, data map[string]any) []string {
	rules := sectionRuleStruct(section, data)
	if rules == nil {
		return nil
	}
	err := validate.Struct(rules)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{fmt.Sprintf("validation failed: %v", err)}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := ruleMessages[section][fe.StructField()]; ok {
			msgs = append(msgs, msg)
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.StructField(), fe.Tag()))
	}
	return msgs
}
