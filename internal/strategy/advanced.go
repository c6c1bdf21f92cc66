package strategy

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Advanced runs a bounded best-first crawl: a priority frontier seeded
// from discovery, link following up to MaxDepth, and adaptive headless
// rendering for script-driven pages.
type Advanced struct {
	*crawler
}

// NewAdvanced builds the deep crawler. It is the only strategy that
// follows links past the seed list, so it alone honors DomainDelay as a
// floor on per-domain politeness.
func NewAdvanced(deps Deps, cfg Config) *Advanced {
	c := newCrawler(deps, cfg)
	c.delayFloor = cfg.DomainDelay
	return &Advanced{crawler: c}
}

func (s *Advanced) Name() string { return "advanced" }

// followPriority ranks harvested links below every discovery source so
// seeds drain before the crawl descends.
const followPriority = 0.3

func (s *Advanced) Run(ctx context.Context, zone activity.Zone, seeds []activity.Seed) ([]activity.Entity, []activity.StageError) {
	var entities []activity.Entity
	var errs []activity.StageError

	frontier := NewFrontier()
	for _, seed := range seeds {
		frontier.Push(seed, 0)
	}

	pages := 0
	for pages < s.cfg.MaxURLs {
		if ctx.Err() != nil {
			errs = append(errs, stageError("fetch", "", ctx.Err()))
			break
		}
		seed, depth, ok := frontier.Pop()
		if !ok {
			break
		}
		if !s.visited.MarkURL(seed.URL) {
			continue
		}
		pages++

		doc, err := s.fetchAdaptive(ctx, seed.URL)
		if err != nil {
			if !errors.Is(err, errSkipped) {
				errs = append(errs, stageError("fetch", seed.URL, err))
			}
			continue
		}
		if len(doc.Body) > 0 && !s.visited.MarkContent(doc.Body) {
			continue
		}

		found := s.deps.Engine.Extract(doc)
		for i := range found {
			found[i].Zone = zone.Name
		}
		entities = append(entities, found...)

		if depth >= s.cfg.MaxDepth {
			continue
		}
		for _, link := range harvestLinks(doc) {
			frontier.Push(activity.Seed{
				URL:      link,
				Priority: followPriority,
				Source:   seed.Source,
				Metadata: map[string]string{"zone": zone.Name, "parent": seed.URL},
			}, depth+1)
		}
	}

	s.logger.Info("advanced run finished",
		zap.String("zone", zone.Name),
		zap.Int("pages", pages),
		zap.Int("frontier_left", frontier.Len()),
		zap.Int("entities", len(entities)),
	)
	return entities, errs
}
