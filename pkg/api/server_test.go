package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/pkg/config"
	"github.com/aroundme/aroundme/pkg/llm"
	"github.com/aroundme/aroundme/pkg/models"
	"github.com/aroundme/aroundme/pkg/pipeline"
	"github.com/aroundme/aroundme/pkg/providers"
	"github.com/aroundme/aroundme/pkg/resultstore"
	"github.com/aroundme/aroundme/pkg/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeProvider serves canned places.
type fakeProvider struct {
	places []models.ProviderPlace
}

func (f *fakeProvider) Name() models.Provider { return models.ProviderGoogle }

func (f *fakeProvider) SearchNearby(context.Context, providers.SearchParams) ([]models.ProviderPlace, error) {
	return f.places, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	rating := 4.5
	reviews := 100
	provider := &fakeProvider{places: []models.ProviderPlace{{
		Provider: models.ProviderGoogle, ProviderID: "g1",
		Name: "Blue Bottle Coffee", Category: "cafe",
		Lat: 37.7749, Lng: -122.4194,
		Rating: &rating, ReviewCount: &reviews, DistanceKm: 0.5,
	}}}

	cfg := &config.Config{
		ProviderTimeout:         time.Second,
		MaxResultsPerProvider:   60,
		NameSimilarityThreshold: 0.82,
		GeoDistanceThresholdM:   120,
		DefaultNearDistanceM:    500,
		SemanticMatchThreshold:  0.75,
		RankingPreset:           "balanced",
		AgentMode:               "full",
	}

	store := resultstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	results := resultstore.NewResultStore(store, 900*time.Second)
	pipe := pipeline.New(cfg, []providers.SearchProvider{provider}, llm.NewDeterministic(), llm.NewDeterministic(), nil)
	searchSvc := services.NewSearchService(pipe, results, llm.NewDeterministic(), nil, nil, nil, 1200*time.Second)

	return NewServer(searchSvc)
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	server := newTestServer(t)

	t.Run("successful search", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/search", map[string]any{
			"query": "coffee", "lat": 37.7749, "lng": -122.4194,
			"radius_m": 3000, "top_k": 10,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Places, 1)
		assert.Equal(t, "Blue Bottle Coffee", resp.Places[0].Name)
		assert.NotEmpty(t, resp.ResultSetID)
		assert.NotEmpty(t, resp.Debug.TraceID)
	})

	t.Run("validation problem for bad latitude", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/search", map[string]any{
			"query": "coffee", "lat": 123.0, "lng": -122.4194, "radius_m": 3000, "top_k": 10,
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var problem Problem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, "validation-error", problem.Type)
		assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
		assert.NotEmpty(t, problem.TraceID)
		assert.Equal(t, "lat", problem.Extensions["field"])
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("inbound trace id is honored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewBufferString(
			`{"query":"coffee","lat":37.7749,"lng":-122.4194,"radius_m":3000,"top_k":10}`))
		req.Header.Set("X-Trace-Id", "trace-from-gateway")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "trace-from-gateway", rec.Header().Get("X-Trace-Id"))

		var resp models.SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "trace-from-gateway", resp.Debug.TraceID)
	})
}

func TestPlaceDetailEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/search", map[string]any{
		"query": "coffee", "lat": 37.7749, "lng": -122.4194, "radius_m": 3000, "top_k": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var search models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	require.NotEmpty(t, search.Places)

	t.Run("live place", func(t *testing.T) {
		detail := doJSON(t, server, http.MethodGet,
			"/api/place/"+search.ResultSetID+"/"+search.Places[0].ID, nil)
		require.Equal(t, http.StatusOK, detail.Code)

		var place models.Place
		require.NoError(t, json.Unmarshal(detail.Body.Bytes(), &place))
		assert.Equal(t, "Blue Bottle Coffee", place.Name)
	})

	t.Run("unknown place is a 404 problem", func(t *testing.T) {
		detail := doJSON(t, server, http.MethodGet,
			"/api/place/"+search.ResultSetID+"/ghost", nil)
		require.Equal(t, http.StatusNotFound, detail.Code)

		var problem Problem
		require.NoError(t, json.Unmarshal(detail.Body.Bytes(), &problem))
		assert.Equal(t, "not-found", problem.Type)
	})

	t.Run("unknown result set is a 404 problem", func(t *testing.T) {
		detail := doJSON(t, server, http.MethodGet, "/api/place/expired/ghost", nil)
		assert.Equal(t, http.StatusNotFound, detail.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Checks["result_store"].Status)
	assert.NotEmpty(t, health.Version)
}

func TestProfileEndpointsWithoutPersistence(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/api/profile/u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/api/feedback", map[string]any{
		"place_id": "p", "user_id": "u", "thumbs_up": true,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFollowupThroughAPI(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/search", map[string]any{
		"query": "coffee", "lat": 37.7749, "lng": -122.4194, "radius_m": 3000, "top_k": 10,
		"context": map[string]any{"conversation_id": "conv-api"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))

	rec = doJSON(t, server, http.MethodPost, "/api/search", map[string]any{
		"query": "closest first", "lat": 37.7749, "lng": -122.4194, "radius_m": 3000, "top_k": 10,
		"context": map[string]any{
			"follow_up":      true,
			"result_set_id":  fresh.ResultSetID,
			"original_query": "coffee",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var refined models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refined))
	assert.NotEqual(t, fresh.ResultSetID, refined.ResultSetID)
	assert.Equal(t, "followup", string(refined.Debug.AgentMode))
}
