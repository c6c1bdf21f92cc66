package discover

import (
	"context"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/logging"
)

// Discoverer assembles the seed list for a zone from every source,
// highest authority first.
type Discoverer struct {
	wikidata    *WikidataClient
	search      *SearchClient
	aggregators []string
	logger      *zap.Logger
}

func NewDiscoverer(wikidata *WikidataClient, search *SearchClient, aggregators []string, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		wikidata:    wikidata,
		search:      search,
		aggregators: aggregators,
		logger:      logging.OrNop(logger),
	}
}

// Seeds builds the full prioritized, deduplicated seed list. Registry
// and search lookups degrade gracefully; municipal seeds are always
// present because they are built locally.
func (d *Discoverer) Seeds(ctx context.Context, zone activity.Zone) []activity.Seed {
	seeds := MunicipalSeeds(zone)
	seeds = append(seeds, AggregatorSeeds(zone, d.aggregators)...)

	if d.wikidata != nil {
		seeds = append(seeds, d.wikidata.Seeds(ctx, zone)...)
	}
	if d.search != nil {
		searchSeeds, err := d.search.Seeds(ctx, zone)
		if err != nil {
			d.logger.Warn("search discovery incomplete",
				zap.String("zone", zone.Name), zap.Error(err))
		}
		seeds = append(seeds, searchSeeds...)
	}

	seeds = dedupSeeds(seeds)
	activity.SortSeeds(seeds)

	d.logger.Info("seed list built",
		zap.String("zone", zone.Name),
		zap.Int("count", len(seeds)),
	)
	return seeds
}

// dedupSeeds keeps the highest-priority occurrence of each URL.
func dedupSeeds(seeds []activity.Seed) []activity.Seed {
	best := make(map[string]int, len(seeds))
	out := make([]activity.Seed, 0, len(seeds))
	for _, s := range seeds {
		if i, dup := best[s.URL]; dup {
			if s.Priority > out[i].Priority {
				out[i] = s
			}
			continue
		}
		best[s.URL] = len(out)
		out = append(out, s)
	}
	return out
}
