// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the wire types of the quality gate API.
// Domain types shared with the client (Step, Complaint, SectionValidation)
// live in pkg/workflow; this package only adds the request envelopes and
// their binding rules.
package datatypes

import "eightd/pkg/workflow"

// CreateComplaintRequest opens a complaint. The backend provisions all
// eight workflow steps with it.
type CreateComplaintRequest struct {
	Title        string `json:"title" binding:"required,min=3"`
	CustomerName string `json:"customer_name" binding:"required"`
	ProductLine  string `json:"product_line"`
	Severity     string `json:"severity" binding:"required,oneof=low medium high critical"`
	Description  string `json:"description"`
}

// SaveProgressRequest replaces the step's data snapshot.
type SaveProgressRequest struct {
	Data map[string]any `json:"data" binding:"required"`
}

// ComplaintPage is one page of the complaint list.
type ComplaintPage struct {
	Items    []workflow.Complaint `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// SubmitStepResponse wraps the validation verdict of a single-shot submit.
type SubmitStepResponse struct {
	Validation *workflow.SectionValidation `json:"validation"`
}

// ValidationsResponse lists the latest persisted validation per section.
type ValidationsResponse struct {
	Validations []workflow.SectionValidation `json:"validations"`
}

// FilesResponse lists the evidence files attached to a step.
type FilesResponse struct {
	Files []workflow.StepFile `json:"files"`
}

// DashboardStatsResponse carries the read-only dashboard aggregates.
type DashboardStatsResponse struct {
	TotalComplaints    int            `json:"total_complaints"`
	OpenComplaints     int            `json:"open_complaints"`
	ComplaintsByStatus map[string]int `json:"complaints_by_status"`
	StepsValidated     int            `json:"steps_validated"`
	SectionPassRate    float64        `json:"section_pass_rate"`
}
