package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/aroundme/aroundme/pkg/config"
	"github.com/aroundme/aroundme/pkg/fusion"
	"github.com/aroundme/aroundme/pkg/models"
	"github.com/aroundme/aroundme/pkg/providers"
)

// IntentExtractor turns a query string into structured intent and ranked
// requirements. Implementations must be safe for concurrent use.
type IntentExtractor interface {
	ParseIntent(ctx context.Context, query string) (models.Intent, error)
	ExtractRequirements(ctx context.Context, query string) ([]models.Requirement, error)
}

// Pipeline is the staged request processor. One Pipeline serves many
// requests concurrently; all per-request state lives on the stack.
type Pipeline struct {
	providers     []providers.SearchProvider
	extractor     IntentExtractor
	deterministic IntentExtractor
	embedder      fusion.Embedder
	cfg           *config.Config
	logger        *slog.Logger
}

// New builds a Pipeline. extractor handles full agent mode; deterministic
// serves deterministic mode and doubles as the guaranteed-available
// extractor. embedder may be nil.
func New(cfg *config.Config, provs []providers.SearchProvider, extractor, deterministic IntentExtractor, embedder fusion.Embedder) *Pipeline {
	return &Pipeline{
		providers:     provs,
		extractor:     extractor,
		deterministic: deterministic,
		embedder:      embedder,
		cfg:           cfg,
		logger:        slog.With("component", "pipeline"),
	}
}

// Result is the output of one pipeline run.
type Result struct {
	Places       []models.Place
	Requirements []models.Requirement
	Debug        models.SearchDebug
}

// Run executes the full pipeline for a validated request.
func (p *Pipeline) Run(ctx context.Context, req *models.SearchRequest, prefs []fusion.Preference) (*Result, error) {
	mode := models.AgentModeFull
	preset := models.RankingPresetName(p.cfg.RankingPreset)
	if req.Context != nil {
		if req.Context.AgentMode != "" {
			mode = req.Context.AgentMode
		}
		if req.Context.RankingPreset != "" {
			preset = req.Context.RankingPreset
		}
	}
	if p.cfg.AgentMode == "deterministic" {
		mode = models.AgentModeDeterministic
	}

	extractor := p.extractor
	if mode == models.AgentModeDeterministic || extractor == nil {
		extractor = p.deterministic
	}

	timings := make(map[string]float64)
	counts := make(map[string]int)
	debug := models.SearchDebug{
		Timings:           timings,
		CountsBeforeAfter: counts,
		RankingPreset:     preset,
		AgentMode:         mode,
	}

	// Parse intent. An explicit multi_entity block overrides parsing.
	stageStart := time.Now()
	var intent models.Intent
	if req.MultiEntity != nil {
		intent = models.Intent{
			Type:      models.IntentMultiEntity,
			Entities:  req.MultiEntity.Entities,
			Relations: req.MultiEntity.Relations,
		}
	} else {
		var err error
		intent, err = extractor.ParseIntent(ctx, req.Query)
		if err != nil {
			// extractor-error: recovered by the deterministic fallback.
			p.logger.Warn("intent extraction failed, using deterministic intent", "error", err)
			intent = models.SimpleIntent(req.Query)
		}
	}
	timings["parse_intent"] = msSince(stageStart)

	// Extract requirements.
	stageStart = time.Now()
	requirements, err := extractor.ExtractRequirements(ctx, req.Query)
	if err != nil {
		p.logger.Warn("requirement extraction failed, continuing without requirements", "error", err)
		requirements = nil
	}
	timings["extract_requirements"] = msSince(stageStart)

	// Plan and fan out.
	stageStart = time.Now()
	plan := BuildPlan(intent, req, p.providers, p.cfg.MaxResultsPerProvider)
	timings["plan"] = msSince(stageStart)

	stageStart = time.Now()
	perProvider := fanOut(ctx, plan.Calls, p.cfg.ProviderTimeout)
	timings["providers"] = msSince(stageStart)

	var all []models.ProviderPlace
	for i, places := range perProvider {
		counts[string(plan.Calls[i].Provider.Name())] = len(places)
		all = append(all, places...)
	}

	// Fuse.
	stageStart = time.Now()
	deduper := fusion.NewDeduper(p.cfg.NameSimilarityThreshold*100, p.cfg.GeoDistanceThresholdM)
	fused, dedupeStats := deduper.Cluster(all)
	counts["fused"] = dedupeStats.OutputCount
	timings["dedupe"] = msSince(stageStart)

	// Constraint join.
	stageStart = time.Now()
	joiner := fusion.NewJoiner(p.cfg.DefaultNearDistanceM)
	fused, partnersByID, joinStats := joiner.Join(intent, fused)
	debug.RelationsSkipped = joinStats.RelationsSkipped
	if intent.Type == models.IntentMultiEntity {
		counts["constraint_kept"] = joinStats.Kept
		counts["constraint_dropped"] = joinStats.Dropped
	}
	timings["constraint_join"] = msSince(stageStart)

	// Score and rank.
	stageStart = time.Now()
	var embedder fusion.Embedder
	if p.cfg.EnableSemanticMatching && mode == models.AgentModeFull {
		embedder = p.embedder
	}
	matcher := fusion.NewMatcher(embedder, p.cfg.SemanticMatchThreshold)
	ranker := fusion.NewRanker(preset, req.Filters, requirements, matcher)
	ranker.Preferences = prefs
	ranker.MaxPreferenceBoost = p.cfg.MaxPersonalizationBoostPts
	scored := ranker.Rank(ctx, fused)
	timings["rank"] = msSince(stageStart)

	// Validate: empty results invite a broader search.
	debug.ExpandSearch = len(scored) == 0

	// Format.
	stageStart = time.Now()
	if len(scored) > req.TopK {
		scored = scored[:req.TopK]
	}
	places := make([]models.Place, 0, len(scored))
	for _, sp := range scored {
		sp.MatchedPartners = partnersByID[sp.Fused.ID]
		places = append(places, models.PlaceFromScored(sp, requirements))
	}
	counts["final"] = len(places)
	timings["format"] = msSince(stageStart)

	p.logger.Info("pipeline complete",
		"mode", mode,
		"preset", preset,
		"input", dedupeStats.InputCount,
		"final", len(places))

	return &Result{Places: places, Requirements: requirements, Debug: debug}, nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
