// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package backend is the REST client for the quality backend. The backend
// is treated as an opaque service: complaint CRUD, step persistence, AI
// section scoring, and file storage all live behind it.
//
// Error convention: non-2xx responses carry a JSON body with a "detail"
// (or "message") string, which is surfaced to the user verbatim via
// APIError.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"eightd/pkg/workflow"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx backend response. Detail carries the server's own
// failure reason and is shown to the user unmodified.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend returned HTTP %d", e.Status)
}

// Client talks to the quality backend. All methods take a context and
// return typed errors; none of them retries on its own.
type Client struct {
	base string
	http *http.Client
	log  *slog.Logger
}

// New creates a client for the given base URL (e.g. "http://localhost:8085").
func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// =============================================================================
// Complaints
// =============================================================================

// ComplaintPage is one page of the complaint list.
type ComplaintPage struct {
	Items    []workflow.Complaint `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// ListComplaintsParams filters and pages the complaint list. Zero values
// mean "no filter" / server defaults.
type ListComplaintsParams struct {
	Page        int
	PageSize    int
	Status      string
	ProductLine string
}

// CreateComplaintRequest creates a complaint; the backend provisions all
// eight steps with it.
type CreateComplaintRequest struct {
	Title        string `json:"title"`
	CustomerName string `json:"customer_name"`
	ProductLine  string `json:"product_line"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
}

func (c *Client) ListComplaints(ctx context.Context, params ListComplaintsParams) (*ComplaintPage, error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.ProductLine != "" {
		q.Set("product_line", params.ProductLine)
	}
	var page ComplaintPage
	if err := c.do(ctx, http.MethodGet, "/api/v1/complaints", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateComplaint(ctx context.Context, req CreateComplaintRequest) (*workflow.Complaint, error) {
	var complaint workflow.Complaint
	if err := c.do(ctx, http.MethodPost, "/api/v1/complaints", nil, req, &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (c *Client) GetComplaint(ctx context.Context, id int64) (*workflow.Complaint, error) {
	var complaint workflow.Complaint
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/complaints/%d", id), nil, nil, &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

// GetCurrentStep returns the code of the first not-yet-validated step for
// the complaint, so the CLI can open the right stage by default.
func (c *Client) GetCurrentStep(ctx context.Context, complaintID int64) (workflow.StepCode, error) {
	var resp struct {
		Code workflow.StepCode `json:"code"`
	}
	path := fmt.Sprintf("/api/v1/complaints/%d/current-step", complaintID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Code, nil
}

// =============================================================================
// Steps (implements workflow.StepAPI)
// =============================================================================

func (c *Client) GetStepByCode(ctx context.Context, complaintID int64, code workflow.StepCode) (*workflow.Step, error) {
	var step workflow.Step
	path := fmt.Sprintf("/api/v1/complaints/%d/steps/%s", complaintID, code)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &step); err != nil {
		return nil, err
	}
	return &step, nil
}

func (c *Client) SaveStepProgress(ctx context.Context, stepID int64, data map[string]any) error {
	body := map[string]any{"data": data}
	path := fmt.Sprintf("/api/v1/steps/%d/progress", stepID)
	return c.do(ctx, http.MethodPut, path, nil, body, nil)
}

func (c *Client) SubmitStep(ctx context.Context, stepID int64) (*workflow.SectionValidation, error) {
	var resp struct {
		Validation *workflow.SectionValidation `json:"validation"`
	}
	path := fmt.Sprintf("/api/v1/steps/%d/submit", stepID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Validation, nil
}

func (c *Client) GetSectionValidations(ctx context.Context, stepID int64) ([]workflow.SectionValidation, error) {
	var resp struct {
		Validations []workflow.SectionValidation `json:"validations"`
	}
	path := fmt.Sprintf("/api/v1/steps/%d/validations", stepID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Validations, nil
}

func (c *Client) SubmitSection(ctx context.Context, stepID int64, sectionKey string) (*workflow.SectionOutcome, error) {
	var outcome workflow.SectionOutcome
	path := fmt.Sprintf("/api/v1/steps/%d/sections/%s/submit", stepID, url.PathEscape(sectionKey))
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// =============================================================================
// Evidence files
// =============================================================================

// UploadStepFile streams one evidence file as multipart form data and
// returns the stored-file record. The client-side acceptance gate in
// pkg/evidence must have run already; rejected files never reach here.
func (c *Client) UploadStepFile(ctx context.Context, stepID int64, filename, mimeType string, r io.Reader) (*workflow.StepFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if err := mw.WriteField("mime_type", mimeType); err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/steps/%d/files", c.base, stepID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}
	var file workflow.StepFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &file, nil
}

func (c *Client) ListStepFiles(ctx context.Context, stepID int64) ([]workflow.StepFile, error) {
	var resp struct {
		Files []workflow.StepFile `json:"files"`
	}
	path := fmt.Sprintf("/api/v1/steps/%d/files", stepID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// DeleteStepFile removes the association and, per the backend contract,
// the underlying stored object.
func (c *Client) DeleteStepFile(ctx context.Context, stepID, fileID int64) error {
	path := fmt.Sprintf("/api/v1/steps/%d/files/%d", stepID, fileID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// DownloadStepFile returns the stored bytes. The caller owns the closer.
func (c *Client) DownloadStepFile(ctx context.Context, stepID, fileID int64) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/api/v1/steps/%d/files/%d/download", c.base, stepID, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.decodeError(resp)
	}
	return resp.Body, nil
}

// =============================================================================
// Dashboard
// =============================================================================

// DashboardStats are the read-only aggregates behind the dashboard view.
type DashboardStats struct {
	TotalComplaints    int            `json:"total_complaints"`
	OpenComplaints     int            `json:"open_complaints"`
	ComplaintsByStatus map[string]int `json:"complaints_by_status"`
	StepsValidated     int            `json:"steps_validated"`
	SectionPassRate    float64        `json:"section_pass_rate"`
}

func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/dashboard/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// =============================================================================
// Plumbing
// =============================================================================

// do issues one JSON request. out may be nil for calls with no interesting
// response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("request done", "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError extracts the server's failure reason. Bodies that aren't
// the documented JSON shape fall back to the HTTP status.
func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		if body.Detail != "" {
			apiErr.Detail = body.Detail
		} else {
			apiErr.Detail = body.Message
		}
	}
	return apiErr
}
