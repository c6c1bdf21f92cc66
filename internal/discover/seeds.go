// Package discover builds the prioritized seed list for a zone from
// municipal portals, the Wikidata registry, aggregator directories, and
// web search.
package discover

import (
	"fmt"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Seed priorities by source class. Registries outrank portals, portals
// outrank directories, search results come last.
const (
	priorityRegistry   = 0.9
	priorityMunicipal  = 0.8
	priorityAggregator = 0.7
	prioritySearch     = 0.6
)

// mairieSearchTemplate is the per-arrondissement activity directory on
// the municipal estate.
const mairieSearchTemplate = "https://mairie%d.paris.fr/recherche/activites?arrondissements=%s"

// MunicipalSeeds returns the official portal pages for a zone.
func MunicipalSeeds(zone activity.Zone) []activity.Seed {
	return []activity.Seed{
		{
			URL:      fmt.Sprintf(mairieSearchTemplate, zone.Number, zone.Postal),
			Priority: priorityMunicipal,
			Source:   activity.SourceMunicipal,
			Metadata: map[string]string{"zone": zone.Name},
		},
		{
			URL:      fmt.Sprintf("https://mairie%d.paris.fr/", zone.Number),
			Priority: priorityMunicipal,
			Source:   activity.SourceMunicipal,
			Metadata: map[string]string{"zone": zone.Name},
		},
	}
}

// AggregatorSeeds wraps configured directory sites. The URLs come from
// configuration because directories appear and disappear faster than
// releases ship.
func AggregatorSeeds(zone activity.Zone, sites []string) []activity.Seed {
	seeds := make([]activity.Seed, 0, len(sites))
	for _, site := range sites {
		seeds = append(seeds, activity.Seed{
			URL:      site,
			Priority: priorityAggregator,
			Source:   activity.SourceAggregator,
			Metadata: map[string]string{"zone": zone.Name},
		})
	}
	return seeds
}
