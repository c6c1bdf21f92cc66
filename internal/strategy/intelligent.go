package strategy

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Intelligent visits every seed and follows one hop of promising links
// from each page: organization-looking anchors and PDF brochures.
// Content hashing collapses mirrored pages within the run.
type Intelligent struct {
	*crawler
}

func NewIntelligent(deps Deps, cfg Config) *Intelligent {
	return &Intelligent{crawler: newCrawler(deps, cfg)}
}

func (s *Intelligent) Name() string { return "intelligent" }

func (s *Intelligent) Run(ctx context.Context, zone activity.Zone, seeds []activity.Seed) ([]activity.Entity, []activity.StageError) {
	var entities []activity.Entity
	var errs []activity.StageError

	pages := 0
	visit := func(rawURL string) []string {
		if pages >= s.cfg.MaxURLs || !s.visited.MarkURL(rawURL) {
			return nil
		}
		pages++

		doc, err := s.fetchPage(ctx, rawURL, false)
		if err != nil {
			if !errors.Is(err, errSkipped) {
				errs = append(errs, stageError("fetch", rawURL, err))
			}
			return nil
		}
		if len(doc.Body) > 0 && !s.visited.MarkContent(doc.Body) {
			s.logger.Debug("duplicate content", zap.String("url", rawURL))
			return nil
		}
		found := s.deps.Engine.Extract(doc)
		for i := range found {
			found[i].Zone = zone.Name
		}
		entities = append(entities, found...)
		return harvestLinks(doc)
	}

	sources := 0
	for _, seed := range seeds {
		if ctx.Err() != nil {
			errs = append(errs, stageError("fetch", seed.URL, ctx.Err()))
			break
		}
		if sources >= s.cfg.MaxSources || pages >= s.cfg.MaxURLs {
			break
		}
		sources++

		for _, link := range visit(seed.URL) {
			if ctx.Err() != nil || pages >= s.cfg.MaxURLs {
				break
			}
			visit(link)
		}
	}

	s.logger.Info("intelligent run finished",
		zap.String("zone", zone.Name),
		zap.Int("pages", pages),
		zap.Int("entities", len(entities)),
	)
	return entities, errs
}
