package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a row is absent.
var ErrNotFound = errors.New("row not found")

// SearchLog is one recorded search request.
type SearchLog struct {
	ID             int64
	ConversationID string
	RequestJSON    json.RawMessage
	ResponseMeta   json.RawMessage
	CreatedAt      time.Time
}

// SearchLogStore persists search logs for analytics.
type SearchLogStore struct {
	db *sql.DB
}

// NewSearchLogStore builds the store.
func NewSearchLogStore(client *Client) *SearchLogStore {
	return &SearchLogStore{db: client.DB()}
}

// Insert records one search. Best-effort callers log and drop the error.
func (s *SearchLogStore) Insert(ctx context.Context, conversationID string, request, responseMeta any) error {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	metaJSON, err := json.Marshal(responseMeta)
	if err != nil {
		return fmt.Errorf("marshal response meta: %w", err)
	}

	var conv sql.NullString
	if conversationID != "" {
		conv = sql.NullString{String: conversationID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_logs (conversation_id, request_json, response_meta) VALUES ($1, $2, $3)`,
		conv, reqJSON, metaJSON)
	if err != nil {
		return fmt.Errorf("insert search log: %w", err)
	}
	return nil
}

// Preference mirrors one profile preference row.
type Preference struct {
	Key    string  `json:"key"`
	Value  string  `json:"value"`
	Weight float64 `json:"weight"`
}

// ProfileStore persists user profiles and their weighted preferences.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore builds the store.
func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{db: client.DB()}
}

// Preferences returns a user's preferences. ErrNotFound when no profile
// exists.
func (s *ProfileStore) Preferences(ctx context.Context, userID string) ([]Preference, error) {
	var profileID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM profiles WHERE user_id = $1`, userID).Scan(&profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, weight FROM profile_preferences WHERE profile_id = $1 ORDER BY key, value`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.Key, &p.Value, &p.Weight); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// UpsertPreferences creates the profile if needed and replaces the listed
// preferences.
func (s *ProfileStore) UpsertPreferences(ctx context.Context, userID string, prefs []Preference) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var profileID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id`, userID).Scan(&profileID)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	for _, p := range prefs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO profile_preferences (profile_id, key, value, weight, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (profile_id, key, value)
			 DO UPDATE SET weight = EXCLUDED.weight, updated_at = now()`,
			profileID, p.Key, p.Value, p.Weight)
		if err != nil {
			return fmt.Errorf("upsert preference %s=%s: %w", p.Key, p.Value, err)
		}
	}

	return tx.Commit()
}

// DeletePreference removes one preference. ErrNotFound when nothing matched.
func (s *ProfileStore) DeletePreference(ctx context.Context, userID, key, value string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM profile_preferences
		 WHERE profile_id = (SELECT id FROM profiles WHERE user_id = $1)
		   AND key = $2 AND value = $3`,
		userID, key, value)
	if err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// FeedbackStore persists thumbs up/down feedback on places.
type FeedbackStore struct {
	db *sql.DB
}

// NewFeedbackStore builds the store.
func NewFeedbackStore(client *Client) *FeedbackStore {
	return &FeedbackStore{db: client.DB()}
}

// Insert records one feedback entry.
func (s *FeedbackStore) Insert(ctx context.Context, placeID, userID string, thumbsUp bool, notes string) error {
	var n sql.NullString
	if notes != "" {
		n = sql.NullString{String: notes, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (place_id, user_id, thumbs_up, notes) VALUES ($1, $2, $3, $4)`,
		placeID, userID, thumbsUp, n)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}
