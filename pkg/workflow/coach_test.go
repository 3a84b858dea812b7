// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoachFeed_NilRendersEmpty(t *testing.T) {
	assert.Empty(t, CoachFeed(nil))
}

func TestCoachFeed_Ordering(t *testing.T) {
	v := &SectionValidation{
		Decision:      DecisionFail,
		MissingFields: []string{"quantity_blocked", "isolation_location"},
		QualityIssues: []string{"Containment description is vague."},
		Suggestions:   []string{"Name the blocked storage locations."},
		FieldImprovements: map[string]string{
			"containment_actions": "List each blocked lot number.",
		},
		OverallAssessment: "Needs more detail before restart can be considered.",
	}

	feed := CoachFeed(v)
	require.Len(t, feed, 6)

	assert.Equal(t, CoachWarn, feed[0].Kind)
	assert.Equal(t, "Missing: quantity_blocked", feed[0].Text)
	assert.Equal(t, "Missing: isolation_location", feed[1].Text, "missing field order is preserved")
	assert.Equal(t, "Containment description is vague.", feed[2].Text)
	assert.Equal(t, CoachInfo, feed[3].Kind)
	assert.Equal(t, "Name the blocked storage locations.", feed[3].Text)
	assert.Contains(t, feed[4].Text, "containment_actions")
	assert.Equal(t, "Needs more detail before restart can be considered.", feed[5].Text)
}

func TestCoachFeed_PassLeadsWithConfirmation(t *testing.T) {
	v := &SectionValidation{
		Decision:          DecisionPass,
		OverallAssessment: "Comprehensive containment.",
	}
	feed := CoachFeed(v)
	require.Len(t, feed, 2)
	assert.Equal(t, CoachGood, feed[0].Kind)
	assert.Equal(t, "Section validated", feed[0].Text)
}
