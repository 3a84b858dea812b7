// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eightd/pkg/evidence"
	"eightd/pkg/workflow"
	"eightd/services/qualitygate/datatypes"
	"eightd/services/qualitygate/store"
)

// UploadFile accepts one evidence file as multipart form data. The same
// acceptance gate the client runs is enforced again here; a client that
// skips it gets a 400 with the gate's reason.
func UploadFile(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "stepId")
		if err != nil {
			return
		}
		if _, err := s.GetStep(id); err != nil {
			notFoundOr500(c, err)
			return
		}

		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "missing multipart field 'file'"})
			return
		}
		mimeType := c.PostForm("mime_type")
		if mimeType == "" {
			mimeType = header.Header.Get("Content-Type")
		}
		if err := evidence.Check(header.Filename, mimeType, header.Size); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "reading upload: " + err.Error()})
			return
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "reading upload: " + err.Error()})
			return
		}

		sum := sha256.Sum256(content)
		meta := s.AddFile(workflow.StepFile{
			StepID:     id,
			Filename:   header.Filename,
			MimeType:   mimeType,
			Size:       int64(len(content)),
			SizeLabel:  evidence.HumanSize(int64(len(content))),
			Icon:       evidence.IconFor(mimeType),
			IsImage:    evidence.IsImage(mimeType),
			UploadedAt: time.Now().UTC().Format(time.RFC3339),
			Checksum:   hex.EncodeToString(sum[:]),
		}, content)

		slog.Info("evidence stored", "step_id", id, "file_id", meta.ID,
			"filename", meta.Filename, "size", meta.Size)
		c.JSON(http.StatusCreated, meta)
	}
}

func ListFiles(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "stepId")
		if err != nil {
			return
		}
		if _, err := s.GetStep(id); err != nil {
			notFoundOr500(c, err)
			return
		}
		files := s.ListFiles(id)
		c.JSON(http.StatusOK, datatypes.FilesResponse{Files: files})
	}
}

// DeleteFile removes the record and the stored bytes with it. Files belong
// to exactly one step, so there is no shared-object bookkeeping.
func DeleteFile(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stepID, err := pathID(c, "stepId")
		if err != nil {
			return
		}
		fileID, err := pathID(c, "fileId")
		if err != nil {
			return
		}
		if err := s.DeleteFile(stepID, fileID); err != nil {
			notFoundOr500(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

func DownloadFile(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stepID, err := pathID(c, "stepId")
		if err != nil {
			return
		}
		fileID, err := pathID(c, "fileId")
		if err != nil {
			return
		}
		f, err := s.GetFile(stepID, fileID)
		if err != nil {
			notFoundOr500(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+f.Meta.Filename+`"`)
		c.Data(http.StatusOK, f.Meta.MimeType, f.Content)
	}
}
