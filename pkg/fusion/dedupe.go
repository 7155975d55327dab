package fusion

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/aroundme/aroundme/pkg/geo"
	"github.com/aroundme/aroundme/pkg/models"
)

// businessSuffixes are stripped from the end of names before comparison.
var businessSuffixes = []string{
	", inc", ", llc", " inc.", " inc", " llc.", " llc",
	" ltd.", " ltd", " corporation", " corp.", " corp",
}

const namePunctuation = `.,!?;:"'()`

// NormalizeName lowercases a place name, strips common business suffixes and
// punctuation, and collapses whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)

	for _, suffix := range businessSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}

	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(namePunctuation, r) {
			return -1
		}
		return r
	}, name)

	return strings.Join(strings.Fields(name), " ")
}

// Deduper clusters provider records that refer to the same physical place.
type Deduper struct {
	// NameThreshold is the minimum partial-ratio similarity in [0,100].
	NameThreshold float64
	// GeoThresholdM is the maximum distance in meters.
	GeoThresholdM float64

	logger *slog.Logger
}

// NewDeduper builds a Deduper with the given thresholds.
func NewDeduper(nameThreshold, geoThresholdM float64) *Deduper {
	return &Deduper{
		NameThreshold: nameThreshold,
		GeoThresholdM: geoThresholdM,
		logger:        slog.With("component", "deduper"),
	}
}

// DedupeStats summarizes one clustering pass.
type DedupeStats struct {
	InputCount        int `json:"input_count"`
	OutputCount       int `json:"output_count"`
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// areDuplicates holds iff both the name similarity and the geographic
// proximity conditions are met. The relation is symmetric and reflexive.
func (d *Deduper) areDuplicates(a, b models.ProviderPlace) bool {
	nameSim := fuzzy.PartialRatio(NormalizeName(a.Name), NormalizeName(b.Name))
	if float64(nameSim) < d.NameThreshold {
		return false
	}
	return geo.DistanceM(a.Lat, a.Lng, b.Lat, b.Lng) <= d.GeoThresholdM
}

// Cluster partitions the input into fused places. Every input record lands
// in exactly one cluster; cluster order follows the index of each cluster's
// first member, so the result is deterministic for a given input order.
func (d *Deduper) Cluster(places []models.ProviderPlace) ([]models.FusedPlace, DedupeStats) {
	n := len(places)
	if n == 0 {
		return nil, DedupeStats{}
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			if ri > rj {
				ri, rj = rj, ri
			}
			parent[rj] = ri
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d.areDuplicates(places[i], places[j]) {
				union(i, j)
			}
		}
	}

	// Group members by root, keeping first-member index order.
	memberIdx := make(map[int][]int, n)
	var roots []int
	for i := 0; i < n; i++ {
		root := find(i)
		if _, seen := memberIdx[root]; !seen {
			roots = append(roots, root)
		}
		memberIdx[root] = append(memberIdx[root], i)
	}

	fused := make([]models.FusedPlace, 0, len(roots))
	for _, root := range roots {
		members := make([]models.ProviderPlace, 0, len(memberIdx[root]))
		for _, idx := range memberIdx[root] {
			members = append(members, places[idx])
		}
		rep := selectRepresentative(members)
		fused = append(fused, models.FusedPlace{
			ID:             uuid.NewString(),
			Representative: rep,
			Members:        members,
			Provenance:     buildProvenance(members, rep),
		})
	}

	stats := DedupeStats{
		InputCount:        n,
		OutputCount:       len(fused),
		DuplicatesRemoved: n - len(fused),
	}
	d.logger.Info("deduplication complete",
		"input", stats.InputCount,
		"output", stats.OutputCount,
		"removed", stats.DuplicatesRemoved)

	return fused, stats
}

// providerRank orders providers by preference for representative selection.
func providerRank(p models.Provider) int {
	switch p {
	case models.ProviderGoogle:
		return 0
	case models.ProviderYelp:
		return 1
	default:
		return 2
	}
}

// selectRepresentative picks the member with the most reviews, breaking ties
// by rating then provider preference. Sorting is stable so equal members
// keep their input order.
func selectRepresentative(members []models.ProviderPlace) models.ProviderPlace {
	if len(members) == 1 {
		return members[0]
	}
	sorted := make([]models.ProviderPlace, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ReviewCountValue() != sorted[j].ReviewCountValue() {
			return sorted[i].ReviewCountValue() > sorted[j].ReviewCountValue()
		}
		if sorted[i].RatingValue() != sorted[j].RatingValue() {
			return sorted[i].RatingValue() > sorted[j].RatingValue()
		}
		return providerRank(sorted[i].Provider) < providerRank(sorted[j].Provider)
	})
	return sorted[0]
}

// buildProvenance records each member's similarity and offset relative to
// the representative.
func buildProvenance(members []models.ProviderPlace, rep models.ProviderPlace) []models.ProvenanceEntry {
	repName := NormalizeName(rep.Name)
	entries := make([]models.ProvenanceEntry, 0, len(members))
	for _, m := range members {
		sim := fuzzy.PartialRatio(NormalizeName(m.Name), repName)
		entries = append(entries, models.ProvenanceEntry{
			Provider:       m.Provider,
			ProviderID:     m.ProviderID,
			Name:           m.Name,
			NameSimilarity: float64(sim) / 100.0,
			GeoOffsetM:     roundTo(geo.DistanceM(m.Lat, m.Lng, rep.Lat, rep.Lng), 2),
			Rating:         m.Rating,
			ReviewCount:    m.ReviewCount,
		})
	}
	return entries
}
