// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package workflow implements the 8D complaint workflow core: step and
// section domain types, per-section local validation rules, the section
// validation state machine, and the orchestrator that drives a step from
// draft through AI validation to completion.
//
// The 8D methodology partitions a quality complaint into eight fixed,
// ordered stages (D1 Team .. D8 Closure). Every complaint is provisioned
// with all eight steps by the backend at creation time; this package owns
// the client-side lifecycle of a single step:
//
//	load → edit → local rules → draft save → remote AI validation → advance
//
// Most steps validate in one shot. Steps partitioned into sections (D3
// containment) validate each section independently and only complete once
// every section's latest decision is a pass.
package workflow

import (
	"fmt"
	"strings"
)

// =============================================================================
// Step Codes
// =============================================================================

// StepCode identifies one of the eight fixed 8D stages.
type StepCode string

const (
	StepD1 StepCode = "D1" // Team establishment
	StepD2 StepCode = "D2" // Problem description
	StepD3 StepCode = "D3" // Interim containment
	StepD4 StepCode = "D4" // Root cause analysis
	StepD5 StepCode = "D5" // Corrective action selection
	StepD6 StepCode = "D6" // Corrective action implementation
	StepD7 StepCode = "D7" // Recurrence prevention
	StepD8 StepCode = "D8" // Closure and recognition
)

// StepOrder is the fixed D1..D8 progression. Navigation after a validated
// step always follows this ordering.
var StepOrder = []StepCode{
	StepD1, StepD2, StepD3, StepD4, StepD5, StepD6, StepD7, StepD8,
}

// ParseStepCode normalizes user input ("d3", "D3") into a StepCode.
func ParseStepCode(s string) (StepCode, error) {
	code := StepCode(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range StepOrder {
		if c == code {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown step code %q (expected D1..D8)", s)
}

// Index returns the zero-based position of the code in StepOrder, or -1
// if the code is not one of the eight stages.
func (c StepCode) Index() int {
	for i, s := range StepOrder {
		if s == c {
			return i
		}
	}
	return -1
}

// Next returns the successor step in the D1..D8 ordering. D8 has no
// successor; ok is false and the view stays put.
func (c StepCode) Next() (StepCode, bool) {
	i := c.Index()
	if i < 0 || i == len(StepOrder)-1 {
		return "", false
	}
	return StepOrder[i+1], true
}

// Title returns the human-readable stage name.
func (c StepCode) Title() string {
	switch c {
	case StepD1:
		return "Team Establishment"
	case StepD2:
		return "Problem Description"
	case StepD3:
		return "Interim Containment"
	case StepD4:
		return "Root Cause Analysis"
	case StepD5:
		return "Corrective Action Selection"
	case StepD6:
		return "Corrective Action Implementation"
	case StepD7:
		return "Recurrence Prevention"
	case StepD8:
		return "Closure & Recognition"
	default:
		return string(c)
	}
}

// =============================================================================
// Step Status
// =============================================================================

// StepStatus is the backend-owned lifecycle status of a step.
type StepStatus string

const (
	StatusDraft     StepStatus = "draft"
	StatusSubmitted StepStatus = "submitted"
	StatusValidated StepStatus = "validated"
	StatusRejected  StepStatus = "rejected"
)

// Step is one 8D stage belonging to a complaint. Data is the opaque,
// step-specific JSON payload; the client merges it over the default
// skeleton for the code on load (stored keys win) so schema additions
// don't break old records.
type Step struct {
	ID          int64          `json:"id"`
	ComplaintID int64          `json:"complaint_id"`
	Code        StepCode       `json:"code"`
	Status      StepStatus     `json:"status"`
	Data        map[string]any `json:"data"`
}

// Complaint is the quality complaint a set of eight steps belongs to.
type Complaint struct {
	ID           int64  `json:"id"`
	Reference    string `json:"reference"`
	Title        string `json:"title"`
	CustomerName string `json:"customer_name"`
	ProductLine  string `json:"product_line"`
	Severity     string `json:"severity"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

// =============================================================================
// Section Validation
// =============================================================================

// Decision is the AI validator's verdict for one section submission.
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionFail Decision = "fail"
)

// SectionValidation is the structured feedback the backend AI validator
// returns for a (step, section) submission. Each new submission supersedes
// the previous record; the client never keeps more than the latest.
type SectionValidation struct {
	StepID            int64             `json:"step_id"`
	SectionKey        string            `json:"section_key"`
	Decision          Decision          `json:"decision"`
	MissingFields     []string          `json:"missing_fields"`
	QualityIssues     []string          `json:"quality_issues"`
	Suggestions       []string          `json:"suggestions"`
	FieldImprovements map[string]string `json:"field_improvements"`
	OverallAssessment string            `json:"overall_assessment"`
}

// SectionStatus is the client-derived state of one section. It never
// leaves the client; the backend only knows decisions.
type SectionStatus int

const (
	// SectionIdle means the section has never been submitted this mount
	// and no persisted decision was restored for it.
	SectionIdle SectionStatus = iota

	// SectionValidating means a remote AI validation call is in flight.
	// The section's submit control is disabled while in this state.
	SectionValidating

	// SectionPassed means the latest decision for the section was a pass.
	SectionPassed

	// SectionFailed means the latest decision was a fail, or the remote
	// call errored out. A section never sticks at Validating.
	SectionFailed
)

// String returns the badge label for the status.
func (s SectionStatus) String() string {
	switch s {
	case SectionIdle:
		return "idle"
	case SectionValidating:
		return "validating"
	case SectionPassed:
		return "passed"
	case SectionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SectionState is the full per-section state tracked by the orchestrator.
type SectionState struct {
	Status SectionStatus
	// Last is the most recent validation payload, nil when the section is
	// idle or when a transport error produced a failure with no feedback.
	Last *SectionValidation
}

// StepFile is an evidence file attached to exactly one step. Files are
// never shared across steps; deleting the step file removes the stored
// object with it.
type StepFile struct {
	ID           int64  `json:"id"`
	ParentFileID int64  `json:"parent_file_id"`
	StepID       int64  `json:"step_id"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	SizeLabel    string `json:"size_label"`
	Icon         string `json:"icon"`
	IsImage      bool   `json:"is_image"`
	UploadedAt   string `json:"uploaded_at"`
	Checksum     string `json:"checksum"`
}

// Sections returns the ordered section keys for a step code. Steps without
// an explicit partition validate as a single implicit section keyed by the
// lowercase step code.
func Sections(code StepCode) []string {
	switch code {
	case StepD3:
		return []string{"containment", "restart"}
	default:
		return []string{strings.ToLower(string(code))}
	}
}

// MultiSection reports whether the step partitions into independently
// validated sections.
func MultiSection(code StepCode) bool {
	return len(Sections(code)) > 1
}
