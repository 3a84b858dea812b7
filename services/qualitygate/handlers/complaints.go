// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the quality gate HTTP API. Every handler is
// a closure over its dependencies, and every error body carries a "detail"
// string the client surfaces verbatim.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eightd/services/qualitygate/datatypes"
	"eightd/services/qualitygate/store"
)

func CreateComplaint(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateComplaintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		complaint := s.CreateComplaint(req.Title, req.CustomerName, req.ProductLine, req.Severity)
		slog.Info("complaint created", "id", complaint.ID, "reference", complaint.Reference)
		c.JSON(http.StatusCreated, complaint)
	}
}

func ListComplaints(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
		items, total := s.ListComplaints(c.Query("status"), c.Query("product_line"), page, pageSize)
		c.JSON(http.StatusOK, datatypes.ComplaintPage{
			Items: items, Total: total, Page: page, PageSize: pageSize,
		})
	}
}

func GetComplaint(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "complaintId")
		if err != nil {
			return
		}
		complaint, err := s.GetComplaint(id)
		if err != nil {
			notFoundOr500(c, err)
			return
		}
		c.JSON(http.StatusOK, complaint)
	}
}

// GetCurrentStep reports the first not-yet-validated step so the client
// opens the right stage by default.
func GetCurrentStep(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "complaintId")
		if err != nil {
			return
		}
		code, err := s.CurrentStep(id)
		if err != nil {
			notFoundOr500(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": code})
	}
}

// pathID parses an int64 path parameter, writing the 400 itself so the
// caller only has to bail out.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid " + name})
		return 0, err
	}
	return id, nil
}

func notFoundOr500(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
		return
	}
	slog.Error("store failure", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}
