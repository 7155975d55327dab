// Package providers contains the upstream place-catalog adapters. Each
// adapter normalizes its catalog into models.ProviderPlace records; nothing
// upstream-shaped leaks past this package.
package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aroundme/aroundme/pkg/models"
)

// SearchParams are the normalized inputs to a provider search.
type SearchParams struct {
	Lat        float64
	Lng        float64
	RadiusM    int
	Query      string
	Category   string
	MaxResults int
}

// SearchProvider is the contract every place provider implements.
type SearchProvider interface {
	// Name identifies the provider in plans, debug counts and provenance.
	Name() models.Provider

	// SearchNearby returns normalized places ordered as upstream returned
	// them. Implementations retry transient failures internally and return
	// an error only after retries are exhausted.
	SearchNearby(ctx context.Context, params SearchParams) ([]models.ProviderPlace, error)
}

// Error is a provider-scoped upstream failure.
type Error struct {
	Provider models.Provider
	Status   int
	Message  string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error: HTTP %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// retryPolicy builds the exponential backoff schedule shared by the
// adapters: 1s, 2s, 4s between attempts, capped at maxRetries attempts.
func retryPolicy(ctx context.Context, maxRetries int) backoff.BackOff {
	if maxRetries < 1 {
		maxRetries = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries-1)), ctx)
}

// doWithRetry executes an HTTP request with the shared retry semantics:
// 5xx and transport errors retry with exponential backoff, 4xx fails fast.
// The request is rebuilt on every attempt so bodies can be re-read.
func doWithRetry(ctx context.Context, client *http.Client, provider models.Provider, maxRetries int, build func() (*http.Request, error)) ([]byte, error) {
	logger := slog.With("provider", provider)
	var body []byte
	attempt := 0

	op := func() error {
		attempt++
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			logger.Warn("provider request failed, retrying",
				"attempt", attempt, "error", err)
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			logger.Warn("provider response read failed, retrying",
				"attempt", attempt, "error", err)
			return err
		}

		switch {
		case resp.StatusCode >= 500:
			logger.Warn("provider returned server error, retrying",
				"attempt", attempt, "status", resp.StatusCode)
			return &Error{Provider: provider, Status: resp.StatusCode, Message: truncate(string(data), 200)}
		case resp.StatusCode >= 400:
			return backoff.Permanent(&Error{Provider: provider, Status: resp.StatusCode, Message: truncate(string(data), 200)})
		}

		body = data
		return nil
	}

	if err := backoff.Retry(op, retryPolicy(ctx, maxRetries)); err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
