// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MergesStoredOverDefaults(t *testing.T) {
	api := &fakeStepAPI{
		step: &Step{ID: 12, ComplaintID: 3, Code: StepD2, Status: StatusDraft, Data: map[string]any{
			"problem_statement": "Scratches on housing surface.",
			// detection_point absent: record predates the field
		}},
	}
	ctrl := NewStepDataController(api, nil)

	step, err := ctrl.Load(context.Background(), 3, StepD2)
	require.NoError(t, err)
	assert.Equal(t, "Scratches on housing surface.", step.Data["problem_statement"])
	assert.Equal(t, "", step.Data["detection_point"], "missing keys fall back to the skeleton")
	assert.Equal(t, false, step.Data["is_repeat"])
}

func TestLoad_FailureLeavesControllerUnusable(t *testing.T) {
	api := &fakeStepAPI{stepErr: errors.New("connection refused")}
	ctrl := NewStepDataController(api, nil)

	_, err := ctrl.Load(context.Background(), 3, StepD2)
	require.Error(t, err)
	assert.Nil(t, ctrl.Step())
	assert.Error(t, ctrl.SaveDraft(context.Background()), "saving without a loaded step must fail")
}

func TestSaveDraft_FailureChangesNothing(t *testing.T) {
	api := &fakeStepAPI{
		step:    &Step{ID: 12, ComplaintID: 3, Code: StepD2, Status: StatusDraft, Data: map[string]any{}},
		saveErr: errors.New("503 service unavailable"),
	}
	ctrl := NewStepDataController(api, nil)
	_, err := ctrl.Load(context.Background(), 3, StepD2)
	require.NoError(t, err)

	ctrl.SetField("problem_statement", "Burrs on flange edge.")
	require.Error(t, ctrl.SaveDraft(context.Background()))

	step := ctrl.Step()
	assert.Equal(t, StatusDraft, step.Status, "status unchanged on persistence failure")
	assert.Equal(t, "Burrs on flange edge.", step.Data["problem_statement"], "in-memory edits survive for retry")
}

func TestSubmit_SavesThenSubmits(t *testing.T) {
	api := &fakeStepAPI{
		step:      &Step{ID: 12, ComplaintID: 3, Code: StepD2, Status: StatusDraft, Data: map[string]any{}},
		submitRes: &SectionValidation{Decision: DecisionPass, OverallAssessment: "Clear problem description."},
	}
	ctrl := NewStepDataController(api, nil)
	_, err := ctrl.Load(context.Background(), 3, StepD2)
	require.NoError(t, err)

	result, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, DecisionPass, result.Decision)

	assert.Equal(t, []string{"get_step", "save_progress", "submit_step"}, api.callLog())
	assert.Equal(t, StatusValidated, ctrl.Step().Status)
}

func TestSubmit_FailKeepsSubmittedStatus(t *testing.T) {
	api := &fakeStepAPI{
		step:      &Step{ID: 12, ComplaintID: 3, Code: StepD2, Status: StatusDraft, Data: map[string]any{}},
		submitRes: &SectionValidation{Decision: DecisionFail, MissingFields: []string{"detection_point"}},
	}
	ctrl := NewStepDataController(api, nil)
	_, err := ctrl.Load(context.Background(), 3, StepD2)
	require.NoError(t, err)

	result, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DecisionFail, result.Decision)
	assert.Equal(t, StatusSubmitted, ctrl.Step().Status)
}

func TestSubmit_SaveFailureAbortsSubmit(t *testing.T) {
	api := &fakeStepAPI{
		step:    &Step{ID: 12, ComplaintID: 3, Code: StepD2, Status: StatusDraft, Data: map[string]any{}},
		saveErr: errors.New("timeout"),
	}
	ctrl := NewStepDataController(api, nil)
	_, err := ctrl.Load(context.Background(), 3, StepD2)
	require.NoError(t, err)

	_, err = ctrl.Submit(context.Background())
	require.Error(t, err)
	for _, call := range api.callLog() {
		assert.NotEqual(t, "submit_step", call, "no partial commit: submit must not run after a failed save")
	}
}

func TestStep_ReturnsCopy(t *testing.T) {
	api := &fakeStepAPI{
		step: &Step{ID: 12, ComplaintID: 3, Code: StepD2, Status: StatusDraft, Data: map[string]any{}},
	}
	ctrl := NewStepDataController(api, nil)
	_, err := ctrl.Load(context.Background(), 3, StepD2)
	require.NoError(t, err)

	snap := ctrl.Step()
	snap.Data["problem_statement"] = "mutated"
	assert.Equal(t, "", ctrl.Step().Data["problem_statement"], "snapshots must not alias internal state")
}
