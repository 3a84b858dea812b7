// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eightd/pkg/workflow"
)

func TestCreateComplaint_ProvisionsStepsInOrder(t *testing.T) {
	s := New()
	c := s.CreateComplaint("Scratched housings", "Acme", "housings", "high")

	for i, code := range workflow.StepOrder {
		step, err := s.GetStepByCode(c.ID, code)
		require.NoError(t, err, "step %s must exist", code)
		assert.Equal(t, code, step.Code)
		assert.Equal(t, workflow.StatusDraft, step.Status)
		assert.Equal(t, c.ID, step.ComplaintID)
		if i == 0 {
			current, err := s.CurrentStep(c.ID)
			require.NoError(t, err)
			assert.Equal(t, workflow.StepD1, current)
		}
	}
}

func TestListComplaints_FiltersAndPages(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.CreateComplaint("Complaint", "Acme", "housings", "low")
	}
	closed := s.CreateComplaint("Closed one", "Acme", "covers", "low")
	// direct mutation is fine inside the package
	s.complaints[closed.ID].Status = "closed"

	open, total := s.ListComplaints("open", "", 1, 3)
	assert.Equal(t, 5, total)
	assert.Len(t, open, 3)
	assert.Greater(t, open[0].ID, open[1].ID, "newest first")

	covers, total := s.ListComplaints("", "covers", 1, 10)
	assert.Equal(t, 1, total)
	require.Len(t, covers, 1)
	assert.Equal(t, "Closed one", covers[0].Title)

	_, total = s.ListComplaints("", "", 99, 10)
	assert.Equal(t, 6, total)
}

func TestRemainingSections_ReflectsLatestDecision(t *testing.T) {
	s := New()
	c := s.CreateComplaint("Scratches", "Acme", "housings", "high")
	d3, err := s.GetStepByCode(c.ID, workflow.StepD3)
	require.NoError(t, err)

	assert.Equal(t, []string{"containment", "restart"}, s.RemainingSections(d3.ID))

	s.SaveValidation(workflow.SectionValidation{
		StepID: d3.ID, SectionKey: "containment", Decision: workflow.DecisionPass,
	})
	assert.Equal(t, []string{"restart"}, s.RemainingSections(d3.ID))

	// a later fail supersedes the pass
	s.SaveValidation(workflow.SectionValidation{
		StepID: d3.ID, SectionKey: "containment", Decision: workflow.DecisionFail,
	})
	assert.Equal(t, []string{"containment", "restart"}, s.RemainingSections(d3.ID))

	vs := s.Validations(d3.ID)
	require.Len(t, vs, 1)
	assert.Equal(t, workflow.DecisionFail, vs[0].Decision, "only the latest record is kept")
}

func TestGetStep_ReturnsCopy(t *testing.T) {
	s := New()
	c := s.CreateComplaint("Scratches", "Acme", "housings", "high")
	d1, err := s.GetStepByCode(c.ID, workflow.StepD1)
	require.NoError(t, err)

	d1.Data["team_leader"] = "mutated"
	again, err := s.GetStepByCode(c.ID, workflow.StepD1)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Data["team_leader"])
}

func TestFiles_Lifecycle(t *testing.T) {
	s := New()
	c := s.CreateComplaint("Scratches", "Acme", "housings", "high")
	d3, err := s.GetStepByCode(c.ID, workflow.StepD3)
	require.NoError(t, err)

	meta := s.AddFile(workflow.StepFile{
		StepID: d3.ID, Filename: "defect.png", MimeType: "image/png", Size: 3,
	}, []byte("abc"))
	assert.NotZero(t, meta.ID)

	files := s.ListFiles(d3.ID)
	require.Len(t, files, 1)

	stored, err := s.GetFile(d3.ID, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), stored.Content)

	// wrong step cannot see or delete the file
	_, err = s.GetFile(d3.ID+1, meta.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteFile(d3.ID+1, meta.ID), ErrNotFound)

	require.NoError(t, s.DeleteFile(d3.ID, meta.ID))
	assert.Empty(t, s.ListFiles(d3.ID))
}

func TestStats(t *testing.T) {
	s := New()
	c := s.CreateComplaint("Scratches", "Acme", "housings", "high")
	d1, _ := s.GetStepByCode(c.ID, workflow.StepD1)
	require.NoError(t, s.SetStepStatus(d1.ID, workflow.StatusValidated))
	s.SaveValidation(workflow.SectionValidation{
		StepID: d1.ID, SectionKey: "d1", Decision: workflow.DecisionPass,
	})

	st := s.Stats()
	assert.Equal(t, 1, st.TotalComplaints)
	assert.Equal(t, 1, st.OpenComplaints)
	assert.Equal(t, 1, st.StepsValidated)
	assert.Equal(t, 1.0, st.SectionPassRate)
}
