package enrich

import (
	"sort"
	"strings"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Fuse collapses entities that several extraction methods produced for
// the same organization on the same page. The highest-confidence copy
// is the base; lower-confidence copies only fill fields the base lacks.
// Entities from different pages are left alone, deduplication across
// sources happens later.
func Fuse(entities []activity.Entity) []activity.Entity {
	groups := make(map[string][]activity.Entity)
	var order []string
	for _, e := range entities {
		key := fuseKey(e)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	out := make([]activity.Entity, 0, len(order))
	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Confidence > group[j].Confidence
		})
		base := group[0].Clone()
		for _, other := range group[1:] {
			base = fillGaps(base, other)
		}
		out = append(out, base)
	}
	return out
}

func fuseKey(e activity.Entity) string {
	return e.SourceURL + "\x00" + strings.ToLower(strings.TrimSpace(e.Name))
}

func fillGaps(base, other activity.Entity) activity.Entity {
	if base.Description == "" {
		base.Description = other.Description
	}
	if base.Email == "" {
		base.Email = other.Email
	}
	if base.Phone == "" {
		base.Phone = other.Phone
	}
	if base.Website == "" {
		base.Website = other.Website
	}
	if base.Address == "" {
		base.Address = other.Address
	}
	if base.Context == "" {
		base.Context = other.Context
	}
	if base.Price == nil && other.Price != nil {
		p := *other.Price
		base.Price = &p
	}
	if base.AgeRange == nil && other.AgeRange != nil {
		r := *other.AgeRange
		base.AgeRange = &r
	}
	if len(base.Images) == 0 {
		base.Images = append([]string(nil), other.Images...)
	}
	return base
}
