package validate

import (
	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/metrics"
)

// DefaultSimilarityThreshold is the score at or above which two
// entities are treated as the same organization.
const DefaultSimilarityThreshold = 0.85

// Deduper collapses near-duplicate entities discovered across sources.
type Deduper struct {
	threshold float64
	logger    *zap.Logger
}

func NewDeduper(threshold float64, logger *zap.Logger) *Deduper {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &Deduper{threshold: threshold, logger: logging.OrNop(logger)}
}

// Dedup merges duplicates greedily: each entity either joins the first
// kept entity it matches or becomes a new kept entity. Running the
// result through Dedup again produces the same output.
func (d *Deduper) Dedup(entities []activity.Entity) []activity.Entity {
	kept := make([]activity.Entity, 0, len(entities))
	for _, e := range entities {
		merged := false
		for i := range kept {
			if Similarity(kept[i], e) >= d.threshold {
				d.logger.Debug("merging duplicate entity",
					zap.String("kept", kept[i].Name),
					zap.String("duplicate", e.Name),
					zap.String("source", e.SourceURL),
				)
				kept[i] = Merge(kept[i], e)
				metrics.ObserveMerge()
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, e.Clone())
		}
	}
	return kept
}

// Merge combines two duplicates. The copy with the higher confidence
// wins field-by-field; the loser only fills fields the winner lacks.
// On equal confidence the entity with the lexically smaller source URL
// wins, which keeps merging order-independent.
func Merge(a, b activity.Entity) activity.Entity {
	winner, loser := a, b
	if b.Confidence > a.Confidence ||
		(b.Confidence == a.Confidence && b.SourceURL < a.SourceURL) {
		winner, loser = b, a
	}
	out := winner.Clone()

	if out.Description == "" {
		out.Description = loser.Description
	}
	if out.Email == "" {
		out.Email = loser.Email
	}
	if out.Phone == "" {
		out.Phone = loser.Phone
	}
	if out.Website == "" {
		out.Website = loser.Website
	}
	if out.Address == "" {
		out.Address = loser.Address
	}
	if out.Price == nil && loser.Price != nil {
		p := *loser.Price
		out.Price = &p
	}
	if out.AgeRange == nil && loser.AgeRange != nil {
		r := *loser.AgeRange
		out.AgeRange = &r
	}
	if out.Zone == "" {
		out.Zone = loser.Zone
	}
	out.Categories = unionStrings(out.Categories, loser.Categories)
	out.Images = unionStrings(out.Images, loser.Images)
	if loser.Validation.Score > out.Validation.Score {
		out.Validation = loser.Validation
	}
	return out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
