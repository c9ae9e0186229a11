// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/handlers"
)

// Config carries the handlers mounted by SetupRoutes.
type Config struct {
	Version string

	Chains         *handlers.Category[datatypes.Chain]
	Commands       *handlers.Category[datatypes.Command]
	Configurations *handlers.Category[datatypes.Configuration]
	Parameters     *handlers.Category[datatypes.Parameter]

	Processes handlers.ProcessLister

	// Gatherer backs /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Limit, when set, wraps every category route.
	Limit gin.HandlerFunc
}

// SetupRoutes mounts the API on router.
func SetupRoutes(router *gin.Engine, cfg Config) {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	router.GET("/", handlers.Info(cfg.Version, cfg.Chains, cfg.Commands, cfg.Configurations, cfg.Parameters))
	router.GET("/health", handlers.HealthCheck(cfg.Version))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	processes := router.Group("/processes")
	{
		processes.GET("", handlers.ListProcesses(cfg.Processes))
		processes.GET("/:id", handlers.GetProcess(cfg.Processes))
	}

	api := router.Group("")
	if cfg.Limit != nil {
		api.Use(cfg.Limit)
	}
	registerCategory(api, cfg.Chains)
	registerCategory(api, cfg.Commands)
	registerCategory(api, cfg.Configurations)
	parameters := registerCategory(api, cfg.Parameters)
	parameters.POST("/:id/:value", cfg.Parameters.RunWithPathValue)
}

// registerCategory mounts the read routes of h and, for categories with an
// action, its POST and history routes.
func registerCategory[T any](router gin.IRouter, h *handlers.Category[T]) *gin.RouterGroup {
	group := router.Group("/" + string(h.Name()))
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	if h.Actionable() {
		group.POST("", h.RunAll)
		group.POST("/:id", h.Run)
		group.GET("/:id/history", h.History)
	}
	return group
}
