package discover

import (
	"context"
	"net/url"
	"strings"

	"github.com/kidsparis/activity-crawler/internal/activity"
)

// DefaultExpansionCap bounds how many expansion queries one run may add.
const DefaultExpansionCap = 5

const priorityExpansion = 0.5

// Expander grows the seed list from organizations found during the
// crawl. Each novel website domain becomes a direct root-page seed and
// each novel name becomes one follow-up search; the shared cap keeps a
// noisy page from flooding the frontier, and nothing expands twice
// within a run.
type Expander struct {
	cap      int
	search   *SearchClient
	searched map[string]struct{}
}

func NewExpander(search *SearchClient, cap int) *Expander {
	if cap <= 0 {
		cap = DefaultExpansionCap
	}
	return &Expander{
		cap:      cap,
		search:   search,
		searched: make(map[string]struct{}),
	}
}

// Expand turns newly discovered websites and names into expansion seeds
// until the cap is exhausted. Domains come first: crawling an
// organization's own site costs no search query.
func (x *Expander) Expand(ctx context.Context, zone activity.Zone, names, websites []string) []activity.Seed {
	var seeds []activity.Seed
	for _, site := range websites {
		if len(x.searched) >= x.cap {
			break
		}
		host := expansionHost(site)
		if host == "" {
			continue
		}
		if _, done := x.searched[host]; done {
			continue
		}
		x.searched[host] = struct{}{}

		seeds = append(seeds, activity.Seed{
			URL:      "https://" + host + "/",
			Priority: priorityExpansion,
			Source:   activity.SourceExpansion,
			Metadata: map[string]string{"zone": zone.Name, "domain": host},
		})
	}
	for _, name := range names {
		if len(x.searched) >= x.cap {
			break
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) < 4 {
			continue
		}
		if _, done := x.searched[key]; done {
			continue
		}
		x.searched[key] = struct{}{}

		links, err := x.search.resultLinks(ctx, name+" Paris "+zone.Name)
		if err != nil {
			continue
		}
		for _, link := range links {
			seeds = append(seeds, activity.Seed{
				URL:      link,
				Priority: priorityExpansion,
				Source:   activity.SourceExpansion,
				Metadata: map[string]string{"zone": zone.Name, "name": name},
			})
		}
	}
	return seeds
}

// expansionHost normalizes a website to a bare lowercase hostname.
func expansionHost(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
