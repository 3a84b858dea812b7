// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"eightd/pkg/workflow"
	"eightd/services/qualitygate/datatypes"
	"eightd/services/qualitygate/middleware"
	"eightd/services/qualitygate/store"
	"eightd/services/qualitygate/validator"
)

func GetStepByCode(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "complaintId")
		if err != nil {
			return
		}
		code, err := workflow.ParseStepCode(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		step, err := s.GetStepByCode(id, code)
		if err != nil {
			notFoundOr500(c, err)
			return
		}
		c.JSON(http.StatusOK, step)
	}
}

// SaveProgress replaces the step's data snapshot without touching its
// status. The client always sends the full snapshot; last write wins.
func SaveProgress(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "stepId")
		if err != nil {
			return
		}
		var req datatypes.SaveProgressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		if err := s.SaveStepData(id, req.Data); err != nil {
			notFoundOr500(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "saved"})
	}
}

// SubmitStep validates a single-shot step as its one implicit section. On
// a pass the step goes straight to validated; on a fail it stays submitted
// so the engineer can rework and resubmit.
func SubmitStep(s *store.Store, v validator.SectionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "stepId")
		if err != nil {
			return
		}
		step, err := s.GetStep(id)
		if err != nil {
			notFoundOr500(c, err)
			return
		}
		if workflow.MultiSection(step.Code) {
			c.JSON(http.StatusConflict, gin.H{
				"detail": "step " + string(step.Code) + " validates per section, submit each section instead"})
			return
		}

		sectionKey := workflow.Sections(step.Code)[0]
		verdict, err := v.Validate(c.Request.Context(), step, sectionKey)
		if err != nil {
			slog.Error("step validation failed", "step_id", id, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
			return
		}

		s.SaveValidation(*verdict)
		recordValidation(step.Code, verdict.Decision)
		status := workflow.StatusSubmitted
		if verdict.Decision == workflow.DecisionPass {
			status = workflow.StatusValidated
		}
		if err := s.SetStepStatus(id, status); err != nil {
			notFoundOr500(c, err)
			return
		}
		slog.Info("step submitted", "step_id", id, "code", step.Code, "decision", verdict.Decision)
		c.JSON(http.StatusOK, datatypes.SubmitStepResponse{Validation: verdict})
	}
}

// GetSectionValidations returns the latest persisted record per section,
// which the client uses to rebuild section state after a remount.
func GetSectionValidations(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "stepId")
		if err != nil {
			return
		}
		if _, err := s.GetStep(id); err != nil {
			notFoundOr500(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.ValidationsResponse{Validations: s.Validations(id)})
	}
}

// SubmitSection scores one section of a multi-section step. The step only
// becomes validated once every section's latest decision is a pass.
func SubmitSection(s *store.Store, v validator.SectionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "stepId")
		if err != nil {
			return
		}
		step, err := s.GetStep(id)
		if err != nil {
			notFoundOr500(c, err)
			return
		}
		sectionKey := c.Param("section")
		if len(workflow.SectionFields(step.Code, sectionKey)) == 0 {
			c.JSON(http.StatusNotFound, gin.H{
				"detail": "step " + string(step.Code) + " has no section " + sectionKey})
			return
		}

		verdict, err := v.Validate(c.Request.Context(), step, sectionKey)
		if err != nil {
			slog.Error("section validation failed",
				"step_id", id, "section", sectionKey, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
			return
		}

		s.SaveValidation(*verdict)
		recordValidation(step.Code, verdict.Decision)
		remaining := s.RemainingSections(id)
		allPassed := len(remaining) == 0

		status := workflow.StatusSubmitted
		if allPassed {
			status = workflow.StatusValidated
		}
		if err := s.SetStepStatus(id, status); err != nil {
			notFoundOr500(c, err)
			return
		}
		if remaining == nil {
			remaining = []string{}
		}

		slog.Info("section submitted", "step_id", id, "section", sectionKey,
			"decision", verdict.Decision, "remaining", remaining)
		c.JSON(http.StatusOK, workflow.SectionOutcome{
			Validation:        *verdict,
			AllSectionsPassed: allPassed,
			RemainingSections: remaining,
		})
	}
}

func recordValidation(code workflow.StepCode, decision workflow.Decision) {
	if middleware.DefaultMetrics != nil {
		middleware.DefaultMetrics.ValidationsTotal.
			WithLabelValues(string(code), string(decision)).Inc()
	}
}
