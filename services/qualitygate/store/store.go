// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store keeps the development backend's state in memory: complaints
// with their eight provisioned steps, the latest validation per section,
// and evidence file bytes. Everything is lost on restart, which is the
// point of a stub.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"eightd/pkg/workflow"
)

var ErrNotFound = errors.New("not found")

// StoredFile is an evidence record plus its raw bytes.
type StoredFile struct {
	Meta    workflow.StepFile
	Content []byte
}

// Store is safe for concurrent use by gin handlers.
type Store struct {
	mu sync.Mutex

	complaints       map[int64]*workflow.Complaint
	steps            map[int64]*workflow.Step
	stepsByComplaint map[int64][]int64 // D1..D8 step IDs in order
	validations      map[int64]map[string]workflow.SectionValidation
	files            map[int64]*StoredFile
	filesByStep      map[int64][]int64

	nextComplaint int64
	nextStep      int64
	nextFile      int64
}

func New() *Store {
	return &Store{
		complaints:       make(map[int64]*workflow.Complaint),
		steps:            make(map[int64]*workflow.Step),
		stepsByComplaint: make(map[int64][]int64),
		validations:      make(map[int64]map[string]workflow.SectionValidation),
		files:            make(map[int64]*StoredFile),
		filesByStep:      make(map[int64][]int64),
	}
}

// =============================================================================
// Complaints
// =============================================================================

// CreateComplaint registers the complaint and provisions all eight steps
// as drafts with the default data skeleton for their code.
func (s *Store) CreateComplaint(title, customer, productLine, severity string) *workflow.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextComplaint++
	c := &workflow.Complaint{
		ID:           s.nextComplaint,
		Reference:    fmt.Sprintf("QC-%d-%04d", time.Now().Year(), s.nextComplaint),
		Title:        title,
		CustomerName: customer,
		ProductLine:  productLine,
		Severity:     severity,
		Status:       "open",
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	s.complaints[c.ID] = c

	for _, code := range workflow.StepOrder {
		s.nextStep++
		s.steps[s.nextStep] = &workflow.Step{
			ID:          s.nextStep,
			ComplaintID: c.ID,
			Code:        code,
			Status:      workflow.StatusDraft,
			Data:        workflow.DefaultData(code),
		}
		s.stepsByComplaint[c.ID] = append(s.stepsByComplaint[c.ID], s.nextStep)
	}
	return clone(c)
}

func (s *Store) GetComplaint(id int64) (*workflow.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, fmt.Errorf("complaint %d: %w", id, ErrNotFound)
	}
	return clone(c), nil
}

// ListComplaints filters by status and product line, then pages. Results
// are ordered newest first.
func (s *Store) ListComplaints(status, productLine string, page, pageSize int) ([]workflow.Complaint, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []workflow.Complaint
	for _, c := range s.complaints {
		if status != "" && c.Status != status {
			continue
		}
		if productLine != "" && !strings.EqualFold(c.ProductLine, productLine) {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := len(all)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []workflow.Complaint{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total
}

// =============================================================================
// Steps
// =============================================================================

func (s *Store) GetStep(stepID int64) (*workflow.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[stepID]
	if !ok {
		return nil, fmt.Errorf("step %d: %w", stepID, ErrNotFound)
	}
	return cloneStep(step), nil
}

func (s *Store) GetStepByCode(complaintID int64, code workflow.StepCode) (*workflow.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.stepsByComplaint[complaintID] {
		if s.steps[id].Code == code {
			return cloneStep(s.steps[id]), nil
		}
	}
	return nil, fmt.Errorf("complaint %d step %s: %w", complaintID, code, ErrNotFound)
}

// CurrentStep is the first step in D1..D8 order that isn't validated yet.
// A fully validated complaint reports D8.
func (s *Store) CurrentStep(complaintID int64) (workflow.StepCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.stepsByComplaint[complaintID]
	if len(ids) == 0 {
		return "", fmt.Errorf("complaint %d: %w", complaintID, ErrNotFound)
	}
	for _, id := range ids {
		if s.steps[id].Status != workflow.StatusValidated {
			return s.steps[id].Code, nil
		}
	}
	return workflow.StepD8, nil
}

// SaveStepData replaces the step's data snapshot. Last write wins.
func (s *Store) SaveStepData(stepID int64, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[stepID]
	if !ok {
		return fmt.Errorf("step %d: %w", stepID, ErrNotFound)
	}
	step.Data = data
	return nil
}

func (s *Store) SetStepStatus(stepID int64, status workflow.StepStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[stepID]
	if !ok {
		return fmt.Errorf("step %d: %w", stepID, ErrNotFound)
	}
	step.Status = status
	return nil
}

// =============================================================================
// Section validations
// =============================================================================

// SaveValidation stores the latest validation for (step, section),
// superseding any previous record for the same section.
func (s *Store) SaveValidation(v workflow.SectionValidation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.validations[v.StepID] == nil {
		s.validations[v.StepID] = make(map[string]workflow.SectionValidation)
	}
	s.validations[v.StepID][v.SectionKey] = v
}

// Validations returns the latest record per section, ordered by the step's
// section key ordering.
func (s *Store) Validations(stepID int64) []workflow.SectionValidation {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[stepID]
	if !ok {
		return nil
	}
	var out []workflow.SectionValidation
	for _, key := range workflow.Sections(step.Code) {
		if v, ok := s.validations[stepID][key]; ok {
			out = append(out, v)
		}
	}
	return out
}

// RemainingSections lists the step's sections whose latest decision is not
// a pass, in section order.
func (s *Store) RemainingSections(stepID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[stepID]
	if !ok {
		return nil
	}
	var remaining []string
	for _, key := range workflow.Sections(step.Code) {
		if v, ok := s.validations[stepID][key]; !ok || v.Decision != workflow.DecisionPass {
			remaining = append(remaining, key)
		}
	}
	return remaining
}

// =============================================================================
// Evidence files
// =============================================================================

func (s *Store) AddFile(meta workflow.StepFile, content []byte) workflow.StepFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFile++
	meta.ID = s.nextFile
	meta.ParentFileID = s.nextFile
	s.files[meta.ID] = &StoredFile{Meta: meta, Content: content}
	s.filesByStep[meta.StepID] = append(s.filesByStep[meta.StepID], meta.ID)
	return meta
}

func (s *Store) ListFiles(stepID int64) []workflow.StepFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]workflow.StepFile, 0, len(s.filesByStep[stepID]))
	for _, id := range s.filesByStep[stepID] {
		out = append(out, s.files[id].Meta)
	}
	return out
}

func (s *Store) GetFile(stepID, fileID int64) (*StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok || f.Meta.StepID != stepID {
		return nil, fmt.Errorf("file %d on step %d: %w", fileID, stepID, ErrNotFound)
	}
	return f, nil
}

// DeleteFile removes the record and its stored bytes.
func (s *Store) DeleteFile(stepID, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok || f.Meta.StepID != stepID {
		return fmt.Errorf("file %d on step %d: %w", fileID, stepID, ErrNotFound)
	}
	delete(s.files, fileID)
	ids := s.filesByStep[stepID]
	for i, id := range ids {
		if id == fileID {
			s.filesByStep[stepID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// =============================================================================
// Dashboard
// =============================================================================

// Stats aggregates the dashboard numbers in one pass.
type Stats struct {
	TotalComplaints    int
	OpenComplaints     int
	ComplaintsByStatus map[string]int
	StepsValidated     int
	SectionPassRate    float64
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{ComplaintsByStatus: make(map[string]int)}
	st.TotalComplaints = len(s.complaints)
	for _, c := range s.complaints {
		st.ComplaintsByStatus[c.Status]++
		if c.Status == "open" {
			st.OpenComplaints++
		}
	}
	for _, step := range s.steps {
		if step.Status == workflow.StatusValidated {
			st.StepsValidated++
		}
	}
	var passes, decisions int
	for _, perSection := range s.validations {
		for _, v := range perSection {
			decisions++
			if v.Decision == workflow.DecisionPass {
				passes++
			}
		}
	}
	if decisions > 0 {
		st.SectionPassRate = float64(passes) / float64(decisions)
	}
	return st
}

func clone(c *workflow.Complaint) *workflow.Complaint {
	cp := *c
	return &cp
}

func cloneStep(step *workflow.Step) *workflow.Step {
	cp := *step
	cp.Data = make(map[string]any, len(step.Data))
	for k, v := range step.Data {
		cp.Data[k] = v
	}
	return &cp
}
