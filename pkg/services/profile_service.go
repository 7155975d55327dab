package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aroundme/aroundme/pkg/database"
)

// ProfileService manages user profiles and their weighted preferences.
type ProfileService struct {
	store *database.ProfileStore
}

// NewProfileService builds a ProfileService.
func NewProfileService(store *database.ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// Preferences returns a user's preferences, empty for unknown users.
func (s *ProfileService) Preferences(ctx context.Context, userID string) ([]database.Preference, error) {
	if userID == "" {
		return nil, NewValidationError("user_id", "required")
	}
	prefs, err := s.store.Preferences(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return []database.Preference{}, nil
	}
	return prefs, err
}

// UpsertPreferences validates and stores a preference set.
func (s *ProfileService) UpsertPreferences(ctx context.Context, userID string, prefs []database.Preference) error {
	if userID == "" {
		return NewValidationError("user_id", "required")
	}
	for i, p := range prefs {
		if p.Key == "" {
			return NewValidationError(fmt.Sprintf("preferences[%d].key", i), "required")
		}
		if p.Value == "" {
			return NewValidationError(fmt.Sprintf("preferences[%d].value", i), "required")
		}
		if p.Weight < 0 || p.Weight > 1 {
			return NewValidationError(fmt.Sprintf("preferences[%d].weight", i), "must be within [0, 1]")
		}
	}
	return s.store.UpsertPreferences(ctx, userID, prefs)
}

// DeletePreference removes one preference.
func (s *ProfileService) DeletePreference(ctx context.Context, userID, key, value string) error {
	if userID == "" {
		return NewValidationError("user_id", "required")
	}
	err := s.store.DeletePreference(ctx, userID, key, value)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: preference %s=%s", ErrNotFound, key, value)
	}
	return err
}

// FeedbackService records thumbs up/down feedback on places.
type FeedbackService struct {
	store *database.FeedbackStore
}

// NewFeedbackService builds a FeedbackService.
func NewFeedbackService(store *database.FeedbackStore) *FeedbackService {
	return &FeedbackService{store: store}
}

// Record validates and stores one feedback entry.
func (s *FeedbackService) Record(ctx context.Context, placeID, userID string, thumbsUp bool, notes string) error {
	if placeID == "" {
		return NewValidationError("place_id", "required")
	}
	if userID == "" {
		return NewValidationError("user_id", "required")
	}
	return s.store.Insert(ctx, placeID, userID, thumbsUp, notes)
}
