// Package orchestrator drives one full crawl for a zone: seed
// discovery, the selected crawl strategy, entity fusion, validation,
// expansion, deduplication, enrichment, and persistence.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/clock"
	"github.com/kidsparis/activity-crawler/internal/discover"
	"github.com/kidsparis/activity-crawler/internal/enrich"
	"github.com/kidsparis/activity-crawler/internal/id"
	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/store"
	"github.com/kidsparis/activity-crawler/internal/strategy"
	"github.com/kidsparis/activity-crawler/internal/validate"
)

// DefaultStrategy is used when a run does not name one.
const DefaultStrategy = "locality"

// Options selects what one run does.
type Options struct {
	Zone     string `json:"zone"`
	Strategy string `json:"strategy,omitempty"`
}

// Stats summarizes a finished run.
type Stats struct {
	Seeds     int           `json:"seeds"`
	Extracted int           `json:"extracted"`
	Valid     int           `json:"valid"`
	Stored    int           `json:"stored"`
	Duration  time.Duration `json:"duration"`
}

// RunResult is everything a run produced.
type RunResult struct {
	Zone     string                `json:"zone"`
	Strategy string                `json:"strategy"`
	Entities []activity.Entity     `json:"entities"`
	Records  []activity.Record     `json:"records"`
	Errors   []activity.StageError `json:"errors,omitempty"`
	Stats    Stats                 `json:"stats"`
}

// StrategyFactory builds a fresh strategy for one run. Strategies carry
// run-scoped visited state, so they cannot be shared across runs.
type StrategyFactory func(name string) (strategy.Strategy, error)

// NewStrategyFactory wires the standard three strategies.
func NewStrategyFactory(deps strategy.Deps, cfg strategy.Config) StrategyFactory {
	return func(name string) (strategy.Strategy, error) {
		switch name {
		case "", DefaultStrategy:
			return strategy.NewLocality(deps, cfg), nil
		case "intelligent":
			return strategy.NewIntelligent(deps, cfg), nil
		case "advanced":
			return strategy.NewAdvanced(deps, cfg), nil
		default:
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
	}
}

// Seeder produces the seed list for a zone. *discover.Discoverer is the
// production implementation.
type Seeder interface {
	Seeds(ctx context.Context, zone activity.Zone) []activity.Seed
}

// RejectionSource loads persisted reviewer rejections at the start of a
// run. store.RejectionStore is the production implementation.
type RejectionSource interface {
	Rejections(ctx context.Context) (names, websites []string, err error)
}

// Orchestrator owns the pipeline stages.
type Orchestrator struct {
	discoverer   Seeder
	expander     func() *discover.Expander
	strategies   StrategyFactory
	validator    *validate.Validator
	deduper      *validate.Deduper
	enricher     *enrich.Enricher
	rejections   *store.RejectionList
	rejectionSrc RejectionSource
	records      store.RecordStore
	ids          id.Generator
	clock        clock.Clock
	logger       *zap.Logger
}

// Params collects the orchestrator's collaborators.
type Params struct {
	Discoverer      Seeder
	NewExpander     func() *discover.Expander
	Strategies      StrategyFactory
	Validator       *validate.Validator
	Deduper         *validate.Deduper
	Enricher        *enrich.Enricher
	Rejections      *store.RejectionList
	RejectionSource RejectionSource
	Records         store.RecordStore
	IDs             id.Generator
	Clock           clock.Clock
	Logger          *zap.Logger
}

func New(p Params) *Orchestrator {
	if p.Clock == nil {
		p.Clock = clock.System{}
	}
	if p.IDs == nil {
		p.IDs = id.UUID{}
	}
	if p.Rejections == nil {
		p.Rejections = store.NewRejectionList()
	}
	return &Orchestrator{
		discoverer:   p.Discoverer,
		expander:     p.NewExpander,
		strategies:   p.Strategies,
		validator:    p.Validator,
		deduper:      p.Deduper,
		enricher:     p.Enricher,
		rejections:   p.Rejections,
		rejectionSrc: p.RejectionSource,
		records:      p.Records,
		ids:          p.IDs,
		clock:        p.Clock,
		logger:       logging.OrNop(p.Logger),
	}
}

// Run executes the full pipeline. It returns partial results with stage
// errors rather than failing wholesale; only an unknown zone, an
// unknown strategy, or a canceled context abort the run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*RunResult, error) {
	start := o.clock.Now()

	zone, ok := activity.ZoneByName(opts.Zone)
	if !ok {
		return nil, fmt.Errorf("unknown zone %q", opts.Zone)
	}
	strategyName := opts.Strategy
	if strategyName == "" {
		strategyName = DefaultStrategy
	}
	strat, err := o.strategies(strategyName)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Zone: zone.Name, Strategy: strategyName}

	o.hydrateRejections(ctx)
	known := o.existingRecords(ctx)

	seeds := o.dropRejectedSeeds(o.discoverer.Seeds(ctx, zone))
	result.Stats.Seeds = len(seeds)

	entities, errs := strat.Run(ctx, zone, seeds)
	result.Errors = append(result.Errors, errs...)

	valid := o.refine(ctx, zone, entities, known, result)

	// Expansion round: names discovered so far become follow-up
	// searches, capped so one run cannot snowball.
	if o.expander != nil && ctx.Err() == nil && len(valid) > 0 {
		expansionSeeds := o.dropRejectedSeeds(o.expander().Expand(ctx, zone, entityNames(valid), entityWebsites(valid)))
		if len(expansionSeeds) > 0 {
			more, errs := strat.Run(ctx, zone, expansionSeeds)
			result.Errors = append(result.Errors, errs...)
			if len(more) > 0 {
				valid = o.refine(ctx, zone, append(valid, more...), known, result)
			}
		}
	}

	result.Entities = valid
	result.Stats.Valid = len(valid)

	if err := ctx.Err(); err != nil {
		result.Stats.Duration = o.clock.Now().Sub(start)
		return result, err
	}

	o.persist(ctx, result)
	result.Stats.Duration = o.clock.Now().Sub(start)

	o.logger.Info("crawl run finished",
		zap.String("zone", zone.Name),
		zap.String("strategy", strategyName),
		zap.Int("seeds", result.Stats.Seeds),
		zap.Int("extracted", result.Stats.Extracted),
		zap.Int("valid", result.Stats.Valid),
		zap.Int("stored", result.Stats.Stored),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.Stats.Duration),
	)
	return result, nil
}

// hydrateRejections reloads the rejection list from storage so each run
// honors rejections recorded since the process started.
func (o *Orchestrator) hydrateRejections(ctx context.Context) {
	if o.rejectionSrc == nil {
		return
	}
	names, websites, err := o.rejectionSrc.Rejections(ctx)
	if err != nil {
		o.logger.Warn("loading rejection list", zap.Error(err))
		return
	}
	o.rejections.Load(names, websites)
}

// existingRecords indexes stored records by name and website so the run
// does not resubmit entities that already have a record.
func (o *Orchestrator) existingRecords(ctx context.Context) *store.RejectionList {
	known := store.NewRejectionList()
	if o.records == nil {
		return known
	}
	recs, err := o.records.List(ctx)
	if err != nil {
		o.logger.Warn("listing existing records", zap.Error(err))
		return known
	}
	for _, rec := range recs {
		name := rec.Title.FR
		if name == "" {
			name = rec.Title.EN
		}
		known.Add(name, rec.Website)
	}
	return known
}

// dropRejectedSeeds removes seeds pointing at previously rejected sites
// so the crawl does not spend budget refetching them.
func (o *Orchestrator) dropRejectedSeeds(seeds []activity.Seed) []activity.Seed {
	kept := seeds[:0]
	for _, s := range seeds {
		if o.rejections.RejectedURL(s.URL) {
			o.logger.Debug("seed on rejection list", zap.String("url", s.URL))
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// refine runs fusion, validation, deduplication, enrichment, and the
// rejection and existing-record filters over raw extractions.
func (o *Orchestrator) refine(ctx context.Context, zone activity.Zone, raw []activity.Entity, known *store.RejectionList, result *RunResult) []activity.Entity {
	result.Stats.Extracted += len(raw)

	fused := enrich.Fuse(raw)

	var valid []activity.Entity
	for i := range fused {
		if verdict := o.validator.Validate(&fused[i]); !verdict.Valid {
			continue
		}
		if o.rejections.Rejected(fused[i]) {
			o.logger.Debug("entity on rejection list",
				zap.String("name", fused[i].Name))
			continue
		}
		if known.Rejected(fused[i]) {
			o.logger.Debug("entity already has a record",
				zap.String("name", fused[i].Name))
			continue
		}
		valid = append(valid, fused[i])
	}

	deduped := o.deduper.Dedup(valid)
	for i := range deduped {
		if deduped[i].Zone == "" {
			deduped[i].Zone = zone.Name
		}
		o.enricher.Enrich(ctx, &deduped[i])
	}
	return deduped
}

// persist writes accepted entities as pending records.
func (o *Orchestrator) persist(ctx context.Context, result *RunResult) {
	now := o.clock.Now()
	for _, e := range result.Entities {
		recID, err := o.ids.NewID()
		if err != nil {
			result.Errors = append(result.Errors, activity.StageError{
				Stage: "store", Error: err.Error(),
			})
			continue
		}
		rec := activity.NewRecord(recID, e, now)
		if err := o.records.Create(ctx, rec); err != nil {
			result.Errors = append(result.Errors, activity.StageError{
				Stage: "store", Error: fmt.Sprintf("%s: %v", e.Name, err),
			})
			continue
		}
		result.Records = append(result.Records, rec)
	}
	result.Stats.Stored = len(result.Records)
}

func entityNames(entities []activity.Entity) []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return names
}

func entityWebsites(entities []activity.Entity) []string {
	sites := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.Website != "" {
			sites = append(sites, e.Website)
		}
	}
	return sites
}
