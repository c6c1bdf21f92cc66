package discover

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/fetch"
)

// searchKeywords are combined with the zone name into search queries.
var searchKeywords = []string{
	"association enfants",
	"activités enfants",
	"cours enfants",
	"club sportif enfants",
	"atelier musique enfants",
	"stage vacances enfants",
	"éveil",
	"périscolaire",
	"centre d'animation",
	"école de danse",
	"association loi 1901 jeunesse",
	"activités extrascolaires",
}

// SearchClient turns keyword queries into result-page seeds. The rate
// limiter spans all queries in a run so chunking cannot burst the
// search engine.
type SearchClient struct {
	fetcher    *fetch.Fetcher
	userAgent  string
	template   string
	limiter    *rate.Limiter
	queryChunk int
}

func NewSearchClient(fetcher *fetch.Fetcher, userAgent, template string, rps float64, queryChunk int) *SearchClient {
	if template == "" {
		template = "https://duckduckgo.com/html/?q=%s"
	}
	if rps <= 0 {
		rps = 1
	}
	if queryChunk <= 0 {
		queryChunk = 6
	}
	return &SearchClient{
		fetcher:    fetcher,
		userAgent:  userAgent,
		template:   template,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		queryChunk: queryChunk,
	}
}

// Seeds runs the chunked keyword queries for the zone and collects
// result links as low-priority seeds.
func (s *SearchClient) Seeds(ctx context.Context, zone activity.Zone) ([]activity.Seed, error) {
	queries := s.buildQueries(zone)

	var seeds []activity.Seed
	seen := make(map[string]struct{})
	for _, q := range queries {
		if err := s.limiter.Wait(ctx); err != nil {
			return seeds, err
		}
		links, err := s.resultLinks(ctx, q)
		if err != nil {
			// One failed query should not sink the chunk.
			continue
		}
		for _, link := range links {
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			seeds = append(seeds, activity.Seed{
				URL:      link,
				Priority: prioritySearch,
				Source:   activity.SourceSearch,
				Metadata: map[string]string{"zone": zone.Name, "query": q},
			})
		}
	}
	return seeds, nil
}

// buildQueries joins the whole keyword vocabulary into queries of at
// most queryChunk keywords each, so no keyword is dropped and no single
// query exceeds engine length limits.
func (s *SearchClient) buildQueries(zone activity.Zone) []string {
	var queries []string
	for start := 0; start < len(searchKeywords); start += s.queryChunk {
		end := start + s.queryChunk
		if end > len(searchKeywords) {
			end = len(searchKeywords)
		}
		joined := strings.Join(searchKeywords[start:end], " OR ")
		queries = append(queries, fmt.Sprintf("%s Paris %s", joined, zone.Name))
	}
	return queries
}

func (s *SearchClient) resultLinks(ctx context.Context, query string) ([]string, error) {
	searchURL := fmt.Sprintf(s.template, url.QueryEscape(query))
	doc, err := s.fetcher.Fetch(ctx, searchURL, fetch.Options{UserAgent: s.userAgent})
	if err != nil {
		return nil, err
	}
	if doc.HTML == nil {
		return nil, nil
	}

	var links []string
	collect := func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if link := cleanResultLink(href); link != "" {
			links = append(links, link)
		}
	}
	doc.HTML.Find("a.result__a").Each(collect)
	if len(links) == 0 {
		doc.HTML.Find(`a[href^="http"], a[href^="//"]`).Each(collect)
	}
	return links, nil
}

// cleanResultLink unwraps engine redirect links and drops anything that
// is not an external organic result.
func cleanResultLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		decoded, err := url.QueryUnescape(uddg)
		if err != nil {
			return ""
		}
		if u, err = url.Parse(decoded); err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com") {
		return ""
	}
	return u.String()
}
