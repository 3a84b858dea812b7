// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"fmt"
	"sort"
)

// CoachEntryKind classifies a coach feed line for rendering.
type CoachEntryKind int

const (
	CoachGood CoachEntryKind = iota
	CoachWarn
	CoachInfo
)

// CoachEntry is one rendered line of the coach side panel.
type CoachEntry struct {
	Kind CoachEntryKind
	Text string
}

// CoachFeed projects the currently selected section's latest validation
// into the side panel. It is a pure function of its input: no state, no
// failure modes; a nil validation renders an empty neutral feed.
//
// Entry order: missing fields (as reported, order preserved), quality
// issues, suggestions, field improvements (sorted by field for stable
// output), then the overall assessment.
func CoachFeed(v *SectionValidation) []CoachEntry {
	if v == nil {
		return nil
	}

	var entries []CoachEntry
	if v.Decision == DecisionPass {
		entries = append(entries, CoachEntry{Kind: CoachGood, Text: "Section validated"})
	}
	for _, f := range v.MissingFields {
		entries = append(entries, CoachEntry{Kind: CoachWarn, Text: "Missing: " + f})
	}
	for _, q := range v.QualityIssues {
		entries = append(entries, CoachEntry{Kind: CoachWarn, Text: q})
	}
	for _, s := range v.Suggestions {
		entries = append(entries, CoachEntry{Kind: CoachInfo, Text: s})
	}

	fields := make([]string, 0, len(v.FieldImprovements))
	for f := range v.FieldImprovements {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		entries = append(entries, CoachEntry{
			Kind: CoachInfo,
			Text: fmt.Sprintf("%s → %s", f, v.FieldImprovements[f]),
		})
	}

	if v.OverallAssessment != "" {
		entries = append(entries, CoachEntry{Kind: CoachInfo, Text: v.OverallAssessment})
	}
	return entries
}
