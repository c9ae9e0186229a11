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
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/store"
)

// ErrInvalidRequest marks request bodies and path values that cannot be
// decoded.
var ErrInvalidRequest = errors.New("invalid request")

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// respondError writes the ErrorResponse for err.
//
//	store.ValidationError  → 404 INVALID_RECORD (details = field errors)
//	store.ErrNotFound      → 404 NOT_FOUND
//	ErrInvalidRequest      → 422 INVALID_REQUEST
//	store.ErrInvalidDocument → 500 INVALID_DOCUMENT
//	anything else          → 500 INTERNAL
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
			Error:   err.Error(),
			Code:    datatypes.CodeInvalidRecord,
			Details: verr.Fields,
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
			Error: err.Error(),
			Code:  datatypes.CodeNotFound,
		})
	case errors.Is(err, ErrInvalidRequest):
		c.JSON(http.StatusUnprocessableEntity, datatypes.ErrorResponse{
			Error: err.Error(),
			Code:  datatypes.CodeInvalidRequest,
		})
	case errors.Is(err, store.ErrInvalidDocument):
		c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
			Error: err.Error(),
			Code:  datatypes.CodeInvalidDocument,
		})
	default:
		slog.Error("unhandled error", slog.String("path", c.Request.URL.Path), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
			Error: err.Error(),
			Code:  datatypes.CodeInternal,
		})
	}
}
