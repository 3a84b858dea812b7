// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validator scores section submissions. The heuristic validator is
// deterministic and runs with no external dependency; the OpenAI validator
// delegates the judgement to a chat model and is opt-in via config.
package validator

import (
	"context"
	"fmt"
	"strings"

	"eightd/pkg/workflow"
)

// SectionValidator scores one section of one step. Implementations must
// fill Decision and SectionKey/StepID on the returned payload.
type SectionValidator interface {
	Validate(ctx context.Context, step *workflow.Step, sectionKey string) (*workflow.SectionValidation, error)
}

// =============================================================================
// Heuristic validator
// =============================================================================

// minWords is the depth bar for free-text answers. Anything shorter is
// flagged as a quality issue rather than a missing field.
const minWords = 4

// Heuristic is a deterministic scorer: a section passes when every
// required text field is filled and every free-text answer clears the
// depth bar. It exists so the stub backend behaves predictably in tests
// and demos.
type Heuristic struct{}

// conditionalFields maps a text field to the bool field gating it. The
// gated field is only required while the gate is set.
var conditionalFields = map[string]string{
	"isolation_location": "isolated",
}

func (Heuristic) Validate(_ context.Context, step *workflow.Step, sectionKey string) (*workflow.SectionValidation, error) {
	v := &workflow.SectionValidation{
		StepID:            step.ID,
		SectionKey:        sectionKey,
		FieldImprovements: make(map[string]string),
	}

	for _, f := range workflow.SectionFields(step.Code, sectionKey) {
		switch f.Kind {
		case workflow.FieldText, workflow.FieldMultiline:
			text := strings.TrimSpace(workflow.StringField(step.Data, f.Key))
			if text == "" {
				if gate, ok := conditionalFields[f.Key]; ok && !workflow.BoolField(step.Data, gate) {
					continue
				}
				v.MissingFields = append(v.MissingFields, f.Key)
				continue
			}
			if f.Kind == workflow.FieldMultiline && len(strings.Fields(text)) < minWords {
				v.QualityIssues = append(v.QualityIssues,
					fmt.Sprintf("%s is too brief to act on", f.Label))
				v.FieldImprovements[f.Key] = fmt.Sprintf(
					"Expand %s with specifics: who, what, where, and the measurable effect.", f.Label)
			}
		case workflow.FieldMultiSelect:
			if len(workflow.ListField(step.Data, f.Key)) == 0 {
				v.MissingFields = append(v.MissingFields, f.Key)
			}
		}
	}

	if len(v.MissingFields) == 0 && len(v.QualityIssues) == 0 {
		v.Decision = workflow.DecisionPass
		v.OverallAssessment = fmt.Sprintf("The %s section is complete and specific.", sectionKey)
		return v, nil
	}

	v.Decision = workflow.DecisionFail
	v.Suggestions = append(v.Suggestions,
		"Answer every field with concrete facts rather than placeholders.")
	v.OverallAssessment = fmt.Sprintf(
		"The %s section needs more detail before it can be accepted.", sectionKey)
	return v, nil
}
