package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/logging"
)

// Enricher normalizes contact fields and derives categories, ages,
// prices, and the arrondissement from an entity's text.
type Enricher struct {
	geocoder Geocoder
	logger   *zap.Logger
}

func New(geocoder Geocoder, logger *zap.Logger) *Enricher {
	if geocoder == nil {
		geocoder = NoopGeocoder{}
	}
	return &Enricher{geocoder: geocoder, logger: logging.OrNop(logger)}
}

// Enrich fills derived fields in place. Existing values are kept;
// enrichment only adds what extraction left empty. The zone falls back
// to the geocoder when the address does not carry a postal code.
func (en *Enricher) Enrich(ctx context.Context, e *activity.Entity) {
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	if e.Phone != "" {
		e.Phone = activity.FormatPhone(e.Phone)
	}

	text := strings.Join([]string{e.Name, e.Description, e.Context}, " ")
	if len(e.Categories) == 0 {
		e.Categories = Categorize(text)
	}
	if e.AgeRange == nil {
		e.AgeRange = ParseAgeRange(text)
	}
	if e.Price == nil {
		e.Price = ParsePrice(text)
	}
	if e.Zone == "" {
		e.Zone = en.resolveZone(ctx, e)
	}
}

func (en *Enricher) resolveZone(ctx context.Context, e *activity.Entity) string {
	if zone, ok := postalZone(e.Address); ok {
		return zone.Name
	}
	if e.Address == "" {
		return ""
	}
	zone, err := en.geocoder.Locate(ctx, e.Address)
	if err != nil {
		if err != ErrNoMatch {
			en.logger.Warn("geocoding failed",
				zap.String("address", e.Address),
				zap.Error(err),
			)
		}
		return ""
	}
	return zone.Name
}

// postalZone looks for an inline 750XX postal code.
func postalZone(address string) (activity.Zone, bool) {
	for i := 0; i+5 <= len(address); i++ {
		if address[i] == '7' && strings.HasPrefix(address[i:], "750") {
			if zone, ok := activity.ZoneByPostal(address[i : i+5]); ok {
				return zone, true
			}
		}
	}
	return activity.Zone{}, false
}
