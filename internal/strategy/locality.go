package strategy

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Locality is the conservative strategy: it only visits official seeds,
// registry entries and municipal portals, and never leaves them. It
// trades recall for precision and is the default for scheduled runs.
type Locality struct {
	*crawler
}

func NewLocality(deps Deps, cfg Config) *Locality {
	return &Locality{crawler: newCrawler(deps, cfg)}
}

func (l *Locality) Name() string { return "locality" }

func (l *Locality) Run(ctx context.Context, zone activity.Zone, seeds []activity.Seed) ([]activity.Entity, []activity.StageError) {
	var entities []activity.Entity
	var errs []activity.StageError

	visited := 0
	for _, seed := range seeds {
		if ctx.Err() != nil {
			errs = append(errs, stageError("fetch", seed.URL, ctx.Err()))
			break
		}
		if visited >= l.cfg.MaxSources {
			break
		}
		if !seed.Source.Official() {
			continue
		}
		if !l.visited.MarkURL(seed.URL) {
			continue
		}
		visited++

		doc, err := l.fetchPage(ctx, seed.URL, false)
		if err != nil {
			if !errors.Is(err, errSkipped) {
				errs = append(errs, stageError("fetch", seed.URL, err))
			}
			continue
		}
		found := l.deps.Engine.Extract(doc)
		for i := range found {
			found[i].Zone = zone.Name
		}
		entities = append(entities, found...)
	}

	l.logger.Info("locality run finished",
		zap.String("zone", zone.Name),
		zap.Int("sources", visited),
		zap.Int("entities", len(entities)),
	)
	return entities, errs
}
