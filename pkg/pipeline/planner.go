// Package pipeline wires the discovery stages together: intent parsing,
// planning, provider fan-out, fusion, constraint joining, ranking and
// formatting.
package pipeline

import (
	"github.com/aroundme/aroundme/pkg/models"
	"github.com/aroundme/aroundme/pkg/providers"
)

// ProviderCall is one planned provider invocation.
type ProviderCall struct {
	Provider providers.SearchProvider
	Params   providers.SearchParams
}

// Plan is the set of provider calls for one request, in deterministic
// provider order.
type Plan struct {
	Calls     []ProviderCall
	Reasoning string
}

// BuildPlan selects providers and parameters for an intent. The baseline
// plan calls every configured provider; a nonempty query routes as a text
// query, otherwise as a category-filtered nearby query.
func BuildPlan(intent models.Intent, req *models.SearchRequest, available []providers.SearchProvider, maxResults int) Plan {
	query := intent.Query
	category := intent.Category
	if intent.Type == models.IntentMultiEntity {
		// Providers search for the anchor entity; partners come from the
		// same result pool during the constraint join.
		query = req.Query
		if query == "" && len(intent.Entities) > 0 {
			query = intent.Entities[0].Kind
		}
		category = ""
	}
	if category == "" && req.Filters != nil {
		category = req.Filters.Category
	}

	plan := Plan{Reasoning: "baseline: all providers"}
	for _, p := range available {
		plan.Calls = append(plan.Calls, ProviderCall{
			Provider: p,
			Params: providers.SearchParams{
				Lat:        req.Lat,
				Lng:        req.Lng,
				RadiusM:    req.RadiusM,
				Query:      query,
				Category:   category,
				MaxResults: maxResults,
			},
		})
	}
	return plan
}
