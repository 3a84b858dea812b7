// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eightd/services/qualitygate/datatypes"
	"eightd/services/qualitygate/store"
)

func DashboardStats(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := s.Stats()
		c.JSON(http.StatusOK, datatypes.DashboardStatsResponse{
			TotalComplaints:    stats.TotalComplaints,
			OpenComplaints:     stats.OpenComplaints,
			ComplaintsByStatus: stats.ComplaintsByStatus,
			StepsValidated:     stats.StepsValidated,
			SectionPassRate:    stats.SectionPassRate,
		})
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
