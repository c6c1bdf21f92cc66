package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// Geocoder resolves a street address to an arrondissement.
type Geocoder interface {
	Locate(ctx context.Context, address string) (activity.Zone, error)
}

// NoopGeocoder never resolves anything. It is the default when no
// geocoding endpoint is configured.
type NoopGeocoder struct{}

func (NoopGeocoder) Locate(context.Context, string) (activity.Zone, error) {
	return activity.Zone{}, ErrNoMatch
}

// ErrNoMatch reports that the geocoder found no usable result.
var ErrNoMatch = fmt.Errorf("geocode: no match")

// BANGeocoder queries the Base Adresse Nationale search endpoint and
// maps the returned postcode to an arrondissement.
type BANGeocoder struct {
	Endpoint string
	Client   *http.Client
}

func NewBANGeocoder(endpoint string) *BANGeocoder {
	if endpoint == "" {
		endpoint = "https://api-adresse.data.gouv.fr/search/"
	}
	return &BANGeocoder{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *BANGeocoder) Locate(ctx context.Context, address string) (activity.Zone, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return activity.Zone{}, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return activity.Zone{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return activity.Zone{}, fmt.Errorf("geocode: status %d", resp.StatusCode)
	}

	var payload struct {
		Features []struct {
			Properties struct {
				Postcode string `json:"postcode"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return activity.Zone{}, err
	}
	if len(payload.Features) == 0 {
		return activity.Zone{}, ErrNoMatch
	}
	zone, ok := activity.ZoneByPostal(payload.Features[0].Properties.Postcode)
	if !ok {
		return activity.Zone{}, ErrNoMatch
	}
	return zone, nil
}
