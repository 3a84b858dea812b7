// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// =============================================================================
// Backend Port
// =============================================================================

// SectionOutcome is what the backend returns for a section submission:
// the superseding validation payload plus the backend's view of which
// sections still need a pass.
type SectionOutcome struct {
	Validation        SectionValidation `json:"validation"`
	AllSectionsPassed bool              `json:"all_sections_passed"`
	RemainingSections []string          `json:"remaining_sections"`
}

// StepAPI is the slice of the backend the workflow core needs. The REST
// client in pkg/backend implements it; tests substitute fakes.
type StepAPI interface {
	// GetStepByCode fetches the persisted step for (complaint, code).
	GetStepByCode(ctx context.Context, complaintID int64, code StepCode) (*Step, error)

	// SaveStepProgress persists the full data snapshot without touching
	// the step status.
	SaveStepProgress(ctx context.Context, stepID int64, data map[string]any) error

	// SubmitStep transitions the step to submitted and, for single-shot
	// steps, returns the AI validation result.
	SubmitStep(ctx context.Context, stepID int64) (*SectionValidation, error)

	// GetSectionValidations returns the latest persisted validation per
	// section for the step.
	GetSectionValidations(ctx context.Context, stepID int64) ([]SectionValidation, error)

	// SubmitSection asks the AI validator to score one section.
	SubmitSection(ctx context.Context, stepID int64, sectionKey string) (*SectionOutcome, error)
}

// =============================================================================
// StepDataController
// =============================================================================

// StepDataController owns one step's form data lifecycle: load, in-memory
// edits, draft save, submit. It always persists the full current snapshot,
// so rapid save calls can't interleave partial writes; last write wins.
//
// The controller is safe for use from the UI goroutine plus the command
// goroutines bubbletea spawns for network work.
type StepDataController struct {
	api StepAPI
	log *slog.Logger

	mu   sync.Mutex
	step *Step
}

// NewStepDataController creates a controller with no step loaded.
func NewStepDataController(api StepAPI, log *slog.Logger) *StepDataController {
	if log == nil {
		log = slog.Default()
	}
	return &StepDataController{api: api, log: log}
}

// Load fetches the step for (complaint, code) and merges its stored data
// over the default skeleton for the code. A load failure leaves the
// controller unusable for editing; the view reports it inline.
func (c *StepDataController) Load(ctx context.Context, complaintID int64, code StepCode) (*Step, error) {
	step, err := c.api.GetStepByCode(ctx, complaintID, code)
	if err != nil {
		c.log.Error("step load failed", "complaint_id", complaintID, "code", code, "error", err)
		return nil, fmt.Errorf("loading step %s: %w", code, err)
	}
	step.Data = MergeData(DefaultData(code), step.Data)

	c.mu.Lock()
	c.step = step
	c.mu.Unlock()

	c.log.Debug("step loaded", "step_id", step.ID, "code", step.Code, "status", step.Status)
	return c.snapshot(), nil
}

// Step returns a copy of the loaded step, or nil before a successful Load.
func (c *StepDataController) Step() *Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == nil {
		return nil
	}
	return c.snapshotLocked()
}

// SetField mutates one field of the in-memory form data.
func (c *StepDataController) SetField(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == nil {
		return
	}
	c.step.Data[key] = value
}

// Data returns a copy of the current in-memory form data.
func (c *StepDataController) Data() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == nil {
		return nil
	}
	return copyData(c.step.Data)
}

// SaveDraft persists the current snapshot verbatim. Step status is not
// changed. On failure nothing is committed and the user may retry.
func (c *StepDataController) SaveDraft(ctx context.Context) error {
	c.mu.Lock()
	if c.step == nil {
		c.mu.Unlock()
		return fmt.Errorf("no step loaded")
	}
	id := c.step.ID
	data := copyData(c.step.Data)
	c.mu.Unlock()

	if err := c.api.SaveStepProgress(ctx, id, data); err != nil {
		c.log.Error("draft save failed", "step_id", id, "error", err)
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Submit persists the snapshot, then transitions the step to submitted.
// For single-shot steps the returned validation carries the AI verdict;
// the owning view navigates to Code.Next() on a pass.
func (c *StepDataController) Submit(ctx context.Context) (*SectionValidation, error) {
	if err := c.SaveDraft(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	id := c.step.ID
	c.mu.Unlock()

	result, err := c.api.SubmitStep(ctx, id)
	if err != nil {
		c.log.Error("step submit failed", "step_id", id, "error", err)
		return nil, fmt.Errorf("submitting step: %w", err)
	}

	c.mu.Lock()
	if result != nil && result.Decision == DecisionPass {
		c.step.Status = StatusValidated
	} else {
		c.step.Status = StatusSubmitted
	}
	c.mu.Unlock()
	return result, nil
}

func (c *StepDataController) snapshot() *Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *StepDataController) snapshotLocked() *Step {
	cp := *c.step
	cp.Data = copyData(c.step.Data)
	return &cp
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
