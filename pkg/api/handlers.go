package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aroundme/aroundme/pkg/database"
	"github.com/aroundme/aroundme/pkg/models"
	"github.com/aroundme/aroundme/pkg/version"
)

// handleSearch runs the discovery pipeline for POST /api/search.
func (s *Server) handleSearch(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, Problem{
			Type:    problemValidation,
			Title:   "Validation Error",
			Status:  http.StatusUnprocessableEntity,
			Detail:  "malformed request body: " + err.Error(),
			TraceID: traceIDFrom(c),
		})
		return
	}

	resp, err := s.searchService.Search(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handlePlaceDetail serves one place from a live result set.
func (s *Server) handlePlaceDetail(c *gin.Context) {
	place, err := s.searchService.PlaceDetail(
		c.Request.Context(),
		c.Param("result_set_id"),
		c.Param("place_id"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, place)
}

// preferencesRequest is the body of PUT /api/profile/:user_id/preferences.
type preferencesRequest struct {
	Preferences []database.Preference `json:"preferences"`
}

// preferencesResponse is returned by the profile endpoints.
type preferencesResponse struct {
	UserID      string                `json:"user_id"`
	Preferences []database.Preference `json:"preferences"`
}

func (s *Server) handleGetProfile(c *gin.Context) {
	if s.profileService == nil {
		s.persistenceDisabled(c)
		return
	}
	userID := c.Param("user_id")
	prefs, err := s.profileService.Preferences(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preferencesResponse{UserID: userID, Preferences: prefs})
}

func (s *Server) handlePutPreferences(c *gin.Context) {
	if s.profileService == nil {
		s.persistenceDisabled(c)
		return
	}
	userID := c.Param("user_id")

	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, Problem{
			Type:    problemValidation,
			Title:   "Validation Error",
			Status:  http.StatusUnprocessableEntity,
			Detail:  "malformed request body: " + err.Error(),
			TraceID: traceIDFrom(c),
		})
		return
	}

	if err := s.profileService.UpsertPreferences(c.Request.Context(), userID, req.Preferences); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preferencesResponse{UserID: userID, Preferences: req.Preferences})
}

// feedbackRequest is the body of POST /api/feedback.
type feedbackRequest struct {
	PlaceID  string `json:"place_id"`
	UserID   string `json:"user_id"`
	ThumbsUp bool   `json:"thumbs_up"`
	Notes    string `json:"notes"`
}

func (s *Server) handleFeedback(c *gin.Context) {
	if s.feedbackSvc == nil {
		s.persistenceDisabled(c)
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, Problem{
			Type:    problemValidation,
			Title:   "Validation Error",
			Status:  http.StatusUnprocessableEntity,
			Detail:  "malformed request body: " + err.Error(),
			TraceID: traceIDFrom(c),
		})
		return
	}

	if err := s.feedbackSvc.Record(c.Request.Context(), req.PlaceID, req.UserID, req.ThumbsUp, req.Notes); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

// healthCheck is the status of one dependency.
type healthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is returned by GET /health.
type healthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]healthCheck `json:"checks"`
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	resp := healthResponse{
		Status:  "healthy",
		Version: version.Version,
		Checks:  make(map[string]healthCheck),
	}

	if err := s.searchService.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Checks["result_store"] = healthCheck{Status: "unhealthy", Message: err.Error()}
	} else {
		resp.Checks["result_store"] = healthCheck{Status: "healthy"}
	}

	if s.dbClient != nil {
		if _, err := database.Health(ctx, s.dbClient.DB()); err != nil {
			resp.Status = "unhealthy"
			resp.Checks["database"] = healthCheck{Status: "unhealthy", Message: err.Error()}
		} else {
			resp.Checks["database"] = healthCheck{Status: "healthy"}
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *Server) persistenceDisabled(c *gin.Context) {
	writeProblem(c, Problem{
		Type:    problemNotFound,
		Title:   "Not Found",
		Status:  http.StatusNotFound,
		Detail:  "persistence is not enabled on this deployment",
		TraceID: traceIDFrom(c),
	})
}
