// Package api provides the HTTP API for the discovery service.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aroundme/aroundme/pkg/services"
)

// Stable problem type tags of the error taxonomy.
const (
	problemValidation = "validation-error"
	problemNotFound   = "not-found"
	problemInternal   = "internal-error"
)

// Problem is an RFC 7807 problem-details payload.
type Problem struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// writeProblem sends a problem response with the RFC 7807 media type.
func writeProblem(c *gin.Context, p Problem) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(p.Status, p)
}

// respondError maps service-layer errors to problem responses.
func respondError(c *gin.Context, err error) {
	traceID := traceIDFrom(c)

	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		writeProblem(c, Problem{
			Type:       problemValidation,
			Title:      "Validation Error",
			Status:     http.StatusUnprocessableEntity,
			Detail:     validErr.Error(),
			TraceID:    traceID,
			Extensions: map[string]any{"field": validErr.Field},
		})
		return
	}
	if errors.Is(err, services.ErrNotFound) {
		writeProblem(c, Problem{
			Type:    problemNotFound,
			Title:   "Not Found",
			Status:  http.StatusNotFound,
			Detail:  err.Error(),
			TraceID: traceID,
		})
		return
	}
	if errors.Is(err, services.ErrInvalidInput) {
		writeProblem(c, Problem{
			Type:    problemValidation,
			Title:   "Validation Error",
			Status:  http.StatusUnprocessableEntity,
			Detail:  err.Error(),
			TraceID: traceID,
		})
		return
	}

	slog.Error("unexpected service error", "trace_id", traceID, "error", err)
	writeProblem(c, Problem{
		Type:    problemInternal,
		Title:   "Internal Server Error",
		Status:  http.StatusInternalServerError,
		Detail:  "an unexpected error occurred",
		TraceID: traceID,
	})
}
