// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/process"
	"github.com/AleutianAI/scms/services/scms/store"
)

const (
	serviceTitle       = "SCMS"
	serviceDescription = "Management API over YAML-backed records with actions on commands and files"
)

// Summarizer is implemented by every Category.
type Summarizer interface {
	Name() datatypes.Category
	Summary() datatypes.CategoryInfo
}

// ProcessLister exposes the daemon registry. *process.Registry implements it.
type ProcessLister interface {
	List() []process.Entry
	Get(id string) (process.Entry, bool)
}

// HealthCheck handles GET /health.
func HealthCheck(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.HealthResponse{Status: "healthy", Version: version})
	}
}

// Info handles GET /.
func Info(version string, categories ...Summarizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := datatypes.InfoResponse{
			Title:       serviceTitle,
			Version:     version,
			Description: serviceDescription,
			Categories:  make(map[datatypes.Category]datatypes.CategoryInfo, len(categories)),
		}
		for _, cat := range categories {
			resp.Categories[cat.Name()] = cat.Summary()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ListProcesses handles GET /processes.
func ListProcesses(processes ProcessLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, processes.List())
	}
}

// GetProcess handles GET /processes/:id.
func GetProcess(processes ProcessLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		entry, ok := processes.Get(id)
		if !ok {
			respondError(c, &store.NotFoundError{Label: "process", Name: id})
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}
