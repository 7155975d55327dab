// Package resultstore provides the TTL key-value store backing
// conversational follow-ups and the search response cache, with Redis and
// in-memory implementations behind one interface.
package resultstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aroundme/aroundme/pkg/models"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is the TTL key-value contract. Writes are idempotent replacements;
// a successful read within TTL returns exactly the bytes written.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// ResultStore persists result sets and whole-response cache entries on top
// of a Store.
type ResultStore struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewResultStore builds a ResultStore with the conversation TTL.
func NewResultStore(store Store, ttl time.Duration) *ResultStore {
	return &ResultStore{
		store:  store,
		ttl:    ttl,
		logger: slog.With("component", "result-store"),
	}
}

func resultSetKey(id string) string    { return "result_set:" + id }
func conversationKey(id string) string { return "conversation:" + id }

// conversationPointer is the value stored under a conversation key.
type conversationPointer struct {
	LatestResultSetID string `json:"latest_result_set_id"`
}

// StoreResultSet persists a result set under a fresh id and, when a
// conversation is given, repoints the conversation at it.
func (rs *ResultStore) StoreResultSet(ctx context.Context, set models.ResultSet) (string, error) {
	set.ResultSetID = uuid.NewString()

	data, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("marshal result set: %w", err)
	}
	if err := rs.store.Set(ctx, resultSetKey(set.ResultSetID), data, rs.ttl); err != nil {
		return "", err
	}

	if set.ConversationID != "" {
		ptr, err := json.Marshal(conversationPointer{LatestResultSetID: set.ResultSetID})
		if err != nil {
			return "", fmt.Errorf("marshal conversation pointer: %w", err)
		}
		if err := rs.store.Set(ctx, conversationKey(set.ConversationID), ptr, rs.ttl); err != nil {
			return "", err
		}
	}

	rs.logger.Info("result set stored",
		"result_set_id", set.ResultSetID,
		"conversation_id", set.ConversationID,
		"count", len(set.Places))
	return set.ResultSetID, nil
}

// GetResultSet loads a result set by id. ErrCacheMiss when absent/expired.
func (rs *ResultStore) GetResultSet(ctx context.Context, resultSetID string) (*models.ResultSet, error) {
	data, err := rs.store.Get(ctx, resultSetKey(resultSetID))
	if err != nil {
		return nil, err
	}
	var set models.ResultSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("unmarshal result set: %w", err)
	}
	return &set, nil
}

// LatestResultSet resolves a conversation to its newest result set.
func (rs *ResultStore) LatestResultSet(ctx context.Context, conversationID string) (*models.ResultSet, error) {
	data, err := rs.store.Get(ctx, conversationKey(conversationID))
	if err != nil {
		return nil, err
	}
	var ptr conversationPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, fmt.Errorf("unmarshal conversation pointer: %w", err)
	}
	if ptr.LatestResultSetID == "" {
		return nil, ErrCacheMiss
	}
	return rs.GetResultSet(ctx, ptr.LatestResultSetID)
}

// GetCachedResponse loads a cached search response by request hash.
func (rs *ResultStore) GetCachedResponse(ctx context.Context, cacheKey string) (*models.SearchResponse, error) {
	data, err := rs.store.Get(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal cached response: %w", err)
	}
	return &resp, nil
}

// CacheResponse stores a search response under a request hash.
func (rs *ResultStore) CacheResponse(ctx context.Context, cacheKey string, resp *models.SearchResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return rs.store.Set(ctx, cacheKey, data, ttl)
}

// Ping delegates to the backing store.
func (rs *ResultStore) Ping(ctx context.Context) error {
	return rs.store.Ping(ctx)
}

// CacheKey derives the deterministic whole-response cache key for a search
// request. Filter and multi-entity payloads hash through canonical JSON.
func CacheKey(req *models.SearchRequest) string {
	preset := models.PresetBalanced
	if req.Context != nil && req.Context.RankingPreset != "" {
		preset = req.Context.RankingPreset
	}

	parts := []string{
		req.Query,
		fmt.Sprintf("%.6f", req.Lat),
		fmt.Sprintf("%.6f", req.Lng),
		fmt.Sprintf("%d", req.RadiusM),
		string(preset),
	}
	if req.Filters != nil {
		parts = append(parts, canonicalJSON(req.Filters))
	}
	if req.MultiEntity != nil {
		parts = append(parts, canonicalJSON(req.MultiEntity))
	}

	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += "|"
		}
		joined += p
	}
	sum := sha256.Sum256([]byte(joined))
	return "search:" + hex.EncodeToString(sum[:])[:16]
}

// canonicalJSON marshals with sorted keys (encoding/json sorts map keys, so
// a round-trip through a map canonicalizes struct field order).
func canonicalJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(m)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
