package activity

import "sort"

// SeedSource identifies where a discovery seed came from.
type SeedSource string

// Seed sources, from most to least authoritative.
const (
	SourceRegistry   SeedSource = "registry"
	SourceMunicipal  SeedSource = "municipal"
	SourceAggregator SeedSource = "aggregator"
	SourceSearch     SeedSource = "search"
	SourceExpansion  SeedSource = "expansion"
)

// Official reports whether the source is a registry or municipal endpoint.
func (s SeedSource) Official() bool {
	return s == SourceRegistry || s == SourceMunicipal
}

// Seed is a unit of discovery work: a URL that has not been fetched yet.
type Seed struct {
	URL      string            `json:"url"`
	Priority float64           `json:"priority"`
	Source   SeedSource        `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SortSeeds orders seeds by priority descending; ties go to official
// sources ahead of generic search results. The sort is stable so equal
// seeds keep their discovery order.
func SortSeeds(seeds []Seed) {
	sort.SliceStable(seeds, func(i, j int) bool {
		if seeds[i].Priority != seeds[j].Priority {
			return seeds[i].Priority > seeds[j].Priority
		}
		return seeds[i].Source.Official() && !seeds[j].Source.Official()
	})
}
