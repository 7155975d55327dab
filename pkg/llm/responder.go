package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aroundme/aroundme/pkg/models"
)

// Responder produces short conversational summaries of refined result sets.
type Responder struct {
	completer TextCompleter
	logger    *slog.Logger
}

// NewResponder builds a Responder.
func NewResponder(completer TextCompleter) *Responder {
	return &Responder{
		completer: completer,
		logger:    slog.With("component", "responder"),
	}
}

// Summarize returns a 1-3 sentence natural-language summary of the places.
// Any failure yields the deterministic summary instead.
func (r *Responder) Summarize(ctx context.Context, utterance string, places []models.Place) string {
	fallback := deterministicSummary(places)
	if r.completer == nil {
		return fallback
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Refinement: %q\nResults (%d):\n", utterance, len(places))
	for i, p := range places {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "- %s (%s, %.1fkm", p.Name, p.Category, p.DistanceKm)
		if p.Rating != nil {
			fmt.Fprintf(&sb, ", rated %.1f", *p.Rating)
		}
		sb.WriteString(")\n")
	}

	text, err := r.completer.Complete(ctx, respondSystem, sb.String(), 0.4)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			r.logger.Warn("conversational summary failed, using fallback", "error", err)
		}
		return fallback
	}
	return strings.TrimSpace(text)
}

func deterministicSummary(places []models.Place) string {
	switch len(places) {
	case 0:
		return "No places matched your refinement. Try widening the search."
	case 1:
		return fmt.Sprintf("Found 1 place matching your refinement: %s.", places[0].Name)
	default:
		return fmt.Sprintf("Found %d places matching your refinement, starting with %s.", len(places), places[0].Name)
	}
}
