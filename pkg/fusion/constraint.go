package fusion

import (
	"log/slog"

	"github.com/aroundme/aroundme/pkg/geo"
	"github.com/aroundme/aroundme/pkg/models"
)

// Joiner evaluates multi-entity spatial constraints over a fused result set.
// The first entity is the anchor; only relations anchored on it are
// evaluated, the others are skipped and counted.
type Joiner struct {
	// DefaultNearDistanceM is used for NEAR relations without an explicit
	// distance.
	DefaultNearDistanceM float64

	logger *slog.Logger
}

// NewJoiner builds a Joiner.
func NewJoiner(defaultNearDistanceM float64) *Joiner {
	return &Joiner{
		DefaultNearDistanceM: defaultNearDistanceM,
		logger:               slog.With("component", "constraint-joiner"),
	}
}

// JoinStats reports the outcome of one join.
type JoinStats struct {
	Kept             int `json:"kept"`
	Dropped          int `json:"dropped"`
	RelationsSkipped int `json:"relations_skipped"`
}

// Join filters the fused set down to anchors whose partners exist.
// An anchor survives iff it satisfies the anchor entity's must-haves and
// every anchor-rooted relation finds at least one qualifying partner.
// Relations not rooted at the anchor are skipped and counted.
//
// Partners are returned per fused-place id, in fused-set enumeration order.
func (j *Joiner) Join(intent models.Intent, fused []models.FusedPlace) ([]models.FusedPlace, map[string][]models.MatchedPartner, JoinStats) {
	stats := JoinStats{}
	if intent.Type != models.IntentMultiEntity || len(intent.Entities) <= 1 || len(intent.Relations) == 0 {
		return fused, nil, stats
	}

	anchor := intent.Entities[0]

	// Anchor-rooted relations only; others are silently skipped.
	var relations []models.Relation
	for _, r := range intent.Relations {
		if r.Left != 0 {
			stats.RelationsSkipped++
			continue
		}
		relations = append(relations, r)
	}
	if len(relations) == 0 {
		j.logger.Warn("no anchor-rooted relations, skipping join",
			"skipped", stats.RelationsSkipped)
		return fused, nil, stats
	}

	var candidates []models.FusedPlace
	for _, fp := range fused {
		if satisfiesMustHaves(fp.Representative, anchor.MustHaves) {
			candidates = append(candidates, fp)
		}
	}

	kept := make([]models.FusedPlace, 0, len(candidates))
	partnersByID := make(map[string][]models.MatchedPartner)

	for _, cand := range candidates {
		var partners []models.MatchedPartner
		satisfied := true

		for _, rel := range relations {
			if rel.Right <= 0 || rel.Right >= len(intent.Entities) {
				satisfied = false
				break
			}
			partnerEntity := intent.Entities[rel.Right]

			maxDist := rel.DistanceM
			if maxDist <= 0 {
				maxDist = j.DefaultNearDistanceM
			}

			found := false
			for _, other := range fused {
				if other.ID == cand.ID {
					continue
				}
				rep := other.Representative
				dist := geo.DistanceM(cand.Representative.Lat, cand.Representative.Lng, rep.Lat, rep.Lng)
				if dist > maxDist {
					continue
				}
				matchedMustHaves := MatchedMustHaves(rep, partnerEntity.MustHaves)
				if len(matchedMustHaves) < len(partnerEntity.MustHaves) {
					continue
				}
				partners = append(partners, models.MatchedPartner{
					Kind:             partnerEntity.Kind,
					Name:             rep.Name,
					DistanceM:        roundTo(dist, 2),
					MatchedMustHaves: matchedMustHaves,
					Lat:              rep.Lat,
					Lng:              rep.Lng,
				})
				found = true
			}
			if !found {
				satisfied = false
				break
			}
		}

		if satisfied {
			kept = append(kept, cand)
			partnersByID[cand.ID] = partners
		}
	}

	stats.Kept = len(kept)
	stats.Dropped = len(candidates) - len(kept)
	j.logger.Info("constraint join complete",
		"kept", stats.Kept,
		"dropped", stats.Dropped,
		"relations_skipped", stats.RelationsSkipped)

	return kept, partnersByID, stats
}

func satisfiesMustHaves(p models.ProviderPlace, mustHaves []string) bool {
	return len(MatchedMustHaves(p, mustHaves)) == len(mustHaves)
}
