// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eightd/services/qualitygate/handlers"
	"eightd/services/qualitygate/middleware"
	"eightd/services/qualitygate/store"
	"eightd/services/qualitygate/validator"
)

// SetupRoutes mounts the quality gate API. metrics may be nil, in which
// case only request logging is attached.
func SetupRoutes(router *gin.Engine, s *store.Store, v validator.SectionValidator,
	log *slog.Logger, metrics *middleware.GateMetrics) {

	router.Use(middleware.RequestLogger(log))
	if metrics != nil {
		router.Use(middleware.Metrics(metrics))
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/health", handlers.HealthCheck)

	// API version 1 group
	v1 := router.Group("/api/v1")
	{
		complaints := v1.Group("/complaints")
		{
			complaints.POST("", handlers.CreateComplaint(s))
			complaints.GET("", handlers.ListComplaints(s))
			complaints.GET("/:complaintId", handlers.GetComplaint(s))
			complaints.GET("/:complaintId/current-step", handlers.GetCurrentStep(s))
			complaints.GET("/:complaintId/steps/:code", handlers.GetStepByCode(s))
		}
		steps := v1.Group("/steps")
		{
			steps.PUT("/:stepId/progress", handlers.SaveProgress(s))
			steps.POST("/:stepId/submit", handlers.SubmitStep(s, v))
			steps.GET("/:stepId/validations", handlers.GetSectionValidations(s))
			steps.POST("/:stepId/sections/:section/submit", handlers.SubmitSection(s, v))
			steps.POST("/:stepId/files", handlers.UploadFile(s))
			steps.GET("/:stepId/files", handlers.ListFiles(s))
			steps.DELETE("/:stepId/files/:fileId", handlers.DeleteFile(s))
			steps.GET("/:stepId/files/:fileId/download", handlers.DownloadFile(s))
		}
		v1.GET("/dashboard/stats", handlers.DashboardStats(s))
	}
}
