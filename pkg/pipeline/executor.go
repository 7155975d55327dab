package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aroundme/aroundme/pkg/models"
)

// fanOut invokes the planned provider calls concurrently, one task per
// call, each bounded by callTimeout under the request context. Failures and
// late returns collapse to empty slices; one dead provider never sinks the
// request. Result order matches plan order, so the cross-provider
// concatenation stays deterministic.
func fanOut(ctx context.Context, calls []ProviderCall, callTimeout time.Duration) [][]models.ProviderPlace {
	results := make([][]models.ProviderPlace, len(calls))

	g, groupCtx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, callTimeout)
			defer cancel()

			places, err := call.Provider.SearchNearby(callCtx, call.Params)
			if err != nil {
				// provider-error: isolated to this provider, absorbed here.
				slog.Error("provider search failed",
					"provider", call.Provider.Name(),
					"error", err)
				results[i] = nil
				return nil
			}
			results[i] = places
			return nil
		})
	}
	_ = g.Wait()

	return results
}
