package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/logging"
)

// sparqlQuery asks for organizations (Q43229) located in Paris (Q90)
// that expose an official website. The arrondissement filter is applied
// on the located-in chain.
const sparqlQuery = `SELECT DISTINCT ?org ?orgLabel ?website WHERE {
  ?org wdt:P31/wdt:P279* wd:Q43229 .
  ?org wdt:P131* wd:Q90 .
  ?org wdt:P856 ?website .
  SERVICE wikibase:label { bd:serviceParam wikibase:language "fr,en" . }
} LIMIT %d`

const defaultSPARQLLimit = 200

// WikidataClient queries the public SPARQL endpoint for registered
// organizations. Registry hits get the highest seed priority because a
// Wikidata entry is strong evidence the organization exists.
type WikidataClient struct {
	endpoint  string
	limit     int
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

func NewWikidataClient(endpoint, userAgent string, logger *zap.Logger) *WikidataClient {
	if endpoint == "" {
		endpoint = "https://query.wikidata.org/sparql"
	}
	return &WikidataClient{
		endpoint:  endpoint,
		limit:     defaultSPARQLLimit,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logging.OrNop(logger),
	}
}

// Seeds runs the registry query and converts bindings to seeds. A
// failing endpoint degrades to an empty slice; the other discovery
// sources still feed the run.
func (w *WikidataClient) Seeds(ctx context.Context, zone activity.Zone) []activity.Seed {
	bindings, err := w.query(ctx, fmt.Sprintf(sparqlQuery, w.limit))
	if err != nil {
		w.logger.Warn("wikidata query failed", zap.String("zone", zone.Name), zap.Error(err))
		return nil
	}

	seeds := make([]activity.Seed, 0, len(bindings))
	seen := make(map[string]struct{})
	for _, b := range bindings {
		website := strings.TrimSpace(b.Website.Value)
		if website == "" {
			continue
		}
		if _, dup := seen[website]; dup {
			continue
		}
		seen[website] = struct{}{}
		seeds = append(seeds, activity.Seed{
			URL:      website,
			Priority: priorityRegistry,
			Source:   activity.SourceRegistry,
			Metadata: map[string]string{
				"zone":  zone.Name,
				"label": b.OrgLabel.Value,
			},
		})
	}
	return seeds
}

type sparqlBinding struct {
	OrgLabel struct {
		Value string `json:"value"`
	} `json:"orgLabel"`
	Website struct {
		Value string `json:"value"`
	} `json:"website"`
}

func (w *WikidataClient) query(ctx context.Context, query string) ([]sparqlBinding, error) {
	form := url.Values{}
	form.Set("query", query)
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sparql: status %d", resp.StatusCode)
	}

	var payload struct {
		Results struct {
			Bindings []sparqlBinding `json:"bindings"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Results.Bindings, nil
}
