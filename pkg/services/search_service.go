package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aroundme/aroundme/pkg/database"
	"github.com/aroundme/aroundme/pkg/fusion"
	"github.com/aroundme/aroundme/pkg/models"
	"github.com/aroundme/aroundme/pkg/pipeline"
	"github.com/aroundme/aroundme/pkg/resultstore"
)

// FollowupParser turns a follow-up utterance into a filter/sort delta.
type FollowupParser interface {
	ParseFollowup(ctx context.Context, utterance, originalQuery string, currentRadiusM int) (models.FollowupIntent, error)
}

// Summarizer produces a short conversational summary of a result set.
type Summarizer interface {
	Summarize(ctx context.Context, utterance string, places []models.Place) string
}

// PreferenceSource loads a user's weighted preferences.
type PreferenceSource interface {
	Preferences(ctx context.Context, userID string) ([]database.Preference, error)
}

// SearchLogger records completed searches, best-effort.
type SearchLogger interface {
	Insert(ctx context.Context, conversationID string, request, responseMeta any) error
}

// SearchService orchestrates the discovery pipeline, the response cache,
// the result store and the follow-up refiner.
type SearchService struct {
	pipeline  *pipeline.Pipeline
	results   *resultstore.ResultStore
	followups FollowupParser
	responder Summarizer       // nil disables conversational summaries
	prefs     PreferenceSource // nil disables personalization
	logs      SearchLogger     // nil disables search logging
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewSearchService builds a SearchService. responder, prefs and logs are
// optional collaborators.
func NewSearchService(
	pipe *pipeline.Pipeline,
	results *resultstore.ResultStore,
	followups FollowupParser,
	responder Summarizer,
	prefs PreferenceSource,
	logs SearchLogger,
	cacheTTL time.Duration,
) *SearchService {
	return &SearchService{
		pipeline:  pipe,
		results:   results,
		followups: followups,
		responder: responder,
		prefs:     prefs,
		logs:      logs,
		cacheTTL:  cacheTTL,
		logger:    slog.With("component", "search-service"),
	}
}

// Search executes a search request: validation, follow-up routing, cache
// check, pipeline run, result-set storage and response caching.
func (s *SearchService) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		var fieldErr *models.FieldError
		if errors.As(err, &fieldErr) {
			return nil, NewValidationError(fieldErr.Field, fieldErr.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	traceID := TraceIDFrom(ctx)
	start := time.Now()

	s.logger.Info("search start",
		"trace_id", traceID,
		"query", req.Query,
		"lat", req.Lat, "lng", req.Lng,
		"radius_m", req.RadiusM)

	if req.Context != nil && req.Context.FollowUp {
		return s.handleFollowup(ctx, req, traceID)
	}

	// Whole-response cache in front of the pipeline.
	cacheKey := resultstore.CacheKey(req)
	if cached, err := s.results.GetCachedResponse(ctx, cacheKey); err == nil {
		cached.Debug.CacheHit = true
		cached.Debug.TraceID = traceID
		s.logger.Info("cache hit", "trace_id", traceID, "cache_key", cacheKey)
		return cached, nil
	}

	var prefs []fusion.Preference
	if s.prefs != nil && req.Context != nil && req.Context.UserID != "" {
		stored, err := s.prefs.Preferences(ctx, req.Context.UserID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			s.logger.Warn("preference load failed, continuing without personalization",
				"user_id", req.Context.UserID, "error", err)
		}
		for _, p := range stored {
			prefs = append(prefs, fusion.Preference{Key: p.Key, Value: p.Value, Weight: p.Weight})
		}
	}

	result, err := s.pipeline.Run(ctx, req, prefs)
	if err != nil {
		return nil, err
	}

	conversationID := ""
	if req.Context != nil {
		conversationID = req.Context.ConversationID
	}
	resultSetID, err := s.results.StoreResultSet(ctx, models.ResultSet{
		Places:         result.Places,
		CreatedAt:      time.Now().UTC(),
		ConversationID: conversationID,
		Query:          req.Query,
		RadiusM:        req.RadiusM,
	})
	if err != nil {
		s.logger.Error("result set store failed", "trace_id", traceID, "error", err)
		resultSetID = ""
	}

	result.Debug.TraceID = traceID
	result.Debug.Timings["total"] = float64(time.Since(start).Microseconds()) / 1000.0

	resp := &models.SearchResponse{
		Places:      result.Places,
		Debug:       result.Debug,
		ResultSetID: resultSetID,
	}

	if err := s.results.CacheResponse(ctx, cacheKey, resp, s.cacheTTL); err != nil {
		s.logger.Warn("response cache write failed", "trace_id", traceID, "error", err)
	}
	s.logSearch(ctx, conversationID, req, resp)

	s.logger.Info("search complete",
		"trace_id", traceID,
		"places", len(resp.Places),
		"duration_ms", resp.Debug.Timings["total"])
	return resp, nil
}

// handleFollowup refines a stored result set without re-querying providers.
// A missing result set falls through to a fresh search.
func (s *SearchService) handleFollowup(ctx context.Context, req *models.SearchRequest, traceID string) (*models.SearchResponse, error) {
	start := time.Now()
	sctx := req.Context

	var prior *models.ResultSet
	var err error
	switch {
	case sctx.ResultSetID != "":
		prior, err = s.results.GetResultSet(ctx, sctx.ResultSetID)
	case sctx.ConversationID != "":
		prior, err = s.results.LatestResultSet(ctx, sctx.ConversationID)
	default:
		err = resultstore.ErrCacheMiss
	}
	if err != nil {
		if !errors.Is(err, resultstore.ErrCacheMiss) {
			s.logger.Error("result set load failed", "trace_id", traceID, "error", err)
		}
		s.logger.Info("no prior result set, falling back to fresh search", "trace_id", traceID)
		sctx.FollowUp = false
		return s.Search(ctx, req)
	}

	originalQuery := sctx.OriginalQuery
	if originalQuery == "" {
		originalQuery = prior.Query
	}
	currentRadius := prior.RadiusM
	if currentRadius == 0 {
		currentRadius = req.RadiusM
	}

	intent, err := s.followups.ParseFollowup(ctx, req.Query, originalQuery, currentRadius)
	if err != nil {
		// The parser has its own fallback; an error here means even that
		// failed, so treat the utterance as a no-op refinement.
		s.logger.Warn("followup parse failed, applying empty delta", "trace_id", traceID, "error", err)
		intent = models.FollowupIntent{}
	}

	if intent.IsNewSearch {
		s.logger.Info("followup is a new search", "trace_id", traceID, "new_query", intent.NewQuery)
		if intent.NewQuery != "" {
			req.Query = intent.NewQuery
		}
		sctx.FollowUp = false
		return s.Search(ctx, req)
	}

	filtered := applyFollowupFilters(prior.Places, intent)
	sortFollowup(filtered, intent.SortBy)
	if len(filtered) > req.TopK {
		filtered = filtered[:req.TopK]
	}

	resultSetID, err := s.results.StoreResultSet(ctx, models.ResultSet{
		Places:         filtered,
		CreatedAt:      time.Now().UTC(),
		ConversationID: sctx.ConversationID,
		Query:          originalQuery,
		RadiusM:        effectiveRadius(currentRadius, intent),
	})
	if err != nil {
		s.logger.Error("refined result set store failed", "trace_id", traceID, "error", err)
		resultSetID = ""
	}

	debug := models.SearchDebug{
		Timings:  map[string]float64{"followup_filter": float64(time.Since(start).Microseconds()) / 1000.0},
		TraceID:  traceID,
		CacheHit: false,
		CountsBeforeAfter: map[string]int{
			"before": len(prior.Places),
			"after":  len(filtered),
		},
		RankingPreset: models.PresetBalanced,
		AgentMode:     models.AgentMode("followup"),
	}
	debug.Timings["total"] = debug.Timings["followup_filter"]

	if s.responder != nil {
		// Summaries are garnish; never let them fail the refinement.
		summary := s.responder.Summarize(ctx, req.Query, filtered)
		s.logger.Info("followup summary", "trace_id", traceID, "summary", summary)
	}

	s.logger.Info("followup complete",
		"trace_id", traceID,
		"before", len(prior.Places),
		"after", len(filtered))

	return &models.SearchResponse{
		Places:      filtered,
		Debug:       debug,
		ResultSetID: resultSetID,
	}, nil
}

// applyFollowupFilters applies the refinement deltas in contract order:
// radius, price, rating, then features. The input slice is not mutated.
func applyFollowupFilters(places []models.Place, intent models.FollowupIntent) []models.Place {
	out := make([]models.Place, 0, len(places))
	for _, p := range places {
		if intent.AdjustRadiusM != nil && p.DistanceKm*1000 > float64(*intent.AdjustRadiusM) {
			continue
		}
		if intent.PriceMin != nil || intent.PriceMax != nil {
			if p.PriceLevel == nil {
				continue
			}
			if intent.PriceMin != nil && *p.PriceLevel < *intent.PriceMin {
				continue
			}
			if intent.PriceMax != nil && *p.PriceLevel > *intent.PriceMax {
				continue
			}
		}
		if intent.MinRating != nil {
			if p.Rating == nil || *p.Rating < *intent.MinRating {
				continue
			}
		}
		if !hasAllFeatures(p, intent.RequiredFeatures) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasAllFeatures(p models.Place, required []string) bool {
	for _, feat := range required {
		if !fusion.FeatureSatisfied(p.Features, feat) {
			return false
		}
	}
	return true
}

// sortFollowup re-sorts in place. Score order is the stored order, so it is
// a no-op; the other orders sort ascending/descending with nils last.
func sortFollowup(places []models.Place, by models.SortOrder) {
	switch by {
	case models.SortByDistance:
		sort.SliceStable(places, func(i, j int) bool {
			return places[i].DistanceKm < places[j].DistanceKm
		})
	case models.SortByRating:
		sort.SliceStable(places, func(i, j int) bool {
			return ratingOf(places[i]) > ratingOf(places[j])
		})
	case models.SortByPrice:
		sort.SliceStable(places, func(i, j int) bool {
			return priceOf(places[i]) < priceOf(places[j])
		})
	}
}

func ratingOf(p models.Place) float64 {
	if p.Rating == nil {
		return -1
	}
	return *p.Rating
}

func priceOf(p models.Place) int {
	if p.PriceLevel == nil {
		return 5
	}
	return *p.PriceLevel
}

func effectiveRadius(current int, intent models.FollowupIntent) int {
	if intent.AdjustRadiusM != nil {
		return *intent.AdjustRadiusM
	}
	return current
}

// PlaceDetail serves a single place from a live result set.
func (s *SearchService) PlaceDetail(ctx context.Context, resultSetID, placeID string) (*models.Place, error) {
	set, err := s.results.GetResultSet(ctx, resultSetID)
	if err != nil {
		if errors.Is(err, resultstore.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: result set %s", ErrNotFound, resultSetID)
		}
		return nil, err
	}
	for i := range set.Places {
		if set.Places[i].ID == placeID {
			return &set.Places[i], nil
		}
	}
	return nil, fmt.Errorf("%w: place %s", ErrNotFound, placeID)
}

// Ping verifies the result store is reachable.
func (s *SearchService) Ping(ctx context.Context) error {
	return s.results.Ping(ctx)
}

func (s *SearchService) logSearch(ctx context.Context, conversationID string, req *models.SearchRequest, resp *models.SearchResponse) {
	if s.logs == nil {
		return
	}
	meta := map[string]any{
		"result_set_id": resp.ResultSetID,
		"places":        len(resp.Places),
		"timings":       resp.Debug.Timings,
	}
	if err := s.logs.Insert(ctx, conversationID, req, meta); err != nil {
		s.logger.Warn("search log write failed", "error", err)
	}
}
