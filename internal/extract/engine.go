package extract

import (
	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/clock"
	"github.com/kidsparis/activity-crawler/internal/fetch"
	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/metrics"
)

// Extractor pulls candidate entities from a fetched document. An
// extractor that does not apply to the document returns nil.
type Extractor interface {
	Method() activity.Method
	Extract(doc *fetch.Document) []activity.Entity
}

// Engine runs every extractor over a document and unions the results.
// Structured extractors go first so that later stages can prefer their
// higher-confidence output during fusion.
type Engine struct {
	extractors []Extractor
	clock      clock.Clock
	logger     *zap.Logger
}

// NewEngine builds the default extractor chain.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		extractors: []Extractor{JSONLD{}, Microdata{}, Heuristic{}, PDFText{}},
		clock:      clock.System{},
		logger:     logging.OrNop(logger),
	}
}

// WithClock overrides the timestamp source, used by tests.
func (e *Engine) WithClock(c clock.Clock) *Engine {
	e.clock = c
	return e
}

// Extract runs the chain and stamps provenance onto every entity.
func (e *Engine) Extract(doc *fetch.Document) []activity.Entity {
	if doc == nil {
		return nil
	}
	now := e.clock.Now()
	var out []activity.Entity
	for _, ex := range e.extractors {
		entities := ex.Extract(doc)
		if len(entities) == 0 {
			continue
		}
		for i := range entities {
			entities[i].SourceURL = doc.URL
			entities[i].ExtractedAt = now
			if entities[i].Method == "" {
				entities[i].Method = ex.Method()
			}
		}
		metrics.ObserveEntities(string(ex.Method()), len(entities))
		e.logger.Debug("extracted entities",
			zap.String("url", doc.URL),
			zap.String("method", string(ex.Method())),
			zap.Int("count", len(entities)),
		)
		out = append(out, entities...)
	}
	return out
}
