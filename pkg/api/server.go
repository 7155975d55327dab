package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aroundme/aroundme/pkg/database"
	"github.com/aroundme/aroundme/pkg/services"
	"github.com/aroundme/aroundme/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	router         *gin.Engine
	httpServer     *http.Server
	searchService  *services.SearchService
	profileService *services.ProfileService  // nil if persistence disabled
	feedbackSvc    *services.FeedbackService // nil if persistence disabled
	dbClient       *database.Client          // nil if persistence disabled
}

// NewServer creates the API server and registers its routes.
func NewServer(searchService *services.SearchService) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), traceMiddleware(), requestLogMiddleware())

	s := &Server{
		router:        router,
		searchService: searchService,
	}
	s.setupRoutes()
	return s
}

// SetProfileService enables the profile endpoints.
func (s *Server) SetProfileService(svc *services.ProfileService) {
	s.profileService = svc
}

// SetFeedbackService enables the feedback endpoint.
func (s *Server) SetFeedbackService(svc *services.FeedbackService) {
	s.feedbackSvc = svc
}

// SetDatabaseClient enables the database health check.
func (s *Server) SetDatabaseClient(client *database.Client) {
	s.dbClient = client
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	apiGroup := s.router.Group("/api")
	{
		apiGroup.POST("/search", s.handleSearch)
		apiGroup.GET("/place/:result_set_id/:place_id", s.handlePlaceDetail)
		apiGroup.GET("/profile/:user_id", s.handleGetProfile)
		apiGroup.PUT("/profile/:user_id/preferences", s.handlePutPreferences)
		apiGroup.POST("/feedback", s.handleFeedback)
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start begins serving on addr, blocking until the listener fails.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("http server starting", "addr", addr, "version", version.Version)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
