// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"context"
	"io"
	"log/slog"
	"time"

	"eightd/pkg/workflow"
)

// FileAPI is the slice of the backend the uploader needs. The REST client
// in pkg/backend implements it.
type FileAPI interface {
	UploadStepFile(ctx context.Context, stepID int64, filename, mimeType string, r io.Reader) (*workflow.StepFile, error)
}

// Upload is one file queued for upload.
type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Reader   io.Reader
}

// Result is the per-file outcome of a batch upload. Rejected results
// failed the local gate and never produced a network call.
type Result struct {
	Filename string
	File     *workflow.StepFile
	Err      error
	Rejected bool
}

// ProgressFunc receives simulated progress for the file currently being
// uploaded. Percent is 0..100. The value does not reflect real transfer
// progress; it exists so the user sees motion while the backend stores
// the file.
type ProgressFunc func(filename string, percent int)

const (
	progressInterval = 120 * time.Millisecond
	progressStep     = 9
	progressCeiling  = 90 // holds here until the backend acks
)

// Uploader uploads evidence batches one file at a time. A failed file is
// discarded (no retry) and the batch continues; the caller turns the
// per-file error into an auto-dismissing notice.
type Uploader struct {
	api FileAPI
	log *slog.Logger

	// interval is overridable in tests.
	interval time.Duration
}

// NewUploader creates an uploader over the given backend.
func NewUploader(api FileAPI, log *slog.Logger) *Uploader {
	if log == nil {
		log = slog.Default()
	}
	return &Uploader{api: api, log: log, interval: progressInterval}
}

// UploadAll runs the batch sequentially. Every input produces exactly one
// Result, in input order. Files failing the local gate are marked
// Rejected; transport failures carry Err; successes carry the stored
// record as returned by the backend.
func (u *Uploader) UploadAll(ctx context.Context, stepID int64, uploads []Upload, progress ProgressFunc) []Result {
	results := make([]Result, 0, len(uploads))
	for _, up := range uploads {
		results = append(results, u.uploadOne(ctx, stepID, up, progress))
	}
	return results
}

func (u *Uploader) uploadOne(ctx context.Context, stepID int64, up Upload, progress ProgressFunc) Result {
	if err := Check(up.Filename, up.MimeType, up.Size); err != nil {
		u.log.Debug("evidence rejected client side", "file", up.Filename, "error", err)
		return Result{Filename: up.Filename, Err: err, Rejected: true}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	if progress != nil {
		go func() {
			defer close(done)
			pct := 0
			progress(up.Filename, pct)
			ticker := time.NewTicker(u.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if pct < progressCeiling {
						pct += progressStep
						if pct > progressCeiling {
							pct = progressCeiling
						}
						progress(up.Filename, pct)
					}
				case <-stop:
					return
				}
			}
		}()
	} else {
		close(done)
	}

	file, err := u.api.UploadStepFile(ctx, stepID, up.Filename, up.MimeType, up.Reader)
	close(stop)
	<-done

	if err != nil {
		u.log.Error("evidence upload failed", "file", up.Filename, "error", err)
		return Result{Filename: up.Filename, Err: err}
	}
	if progress != nil {
		progress(up.Filename, 100)
	}
	u.log.Info("evidence uploaded", "file", up.Filename, "step_id", stepID, "size", up.Size)
	return Result{Filename: up.Filename, File: file}
}
