package strategy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/activity"
	"github.com/kidsparis/activity-crawler/internal/compliance"
	"github.com/kidsparis/activity-crawler/internal/extract"
	"github.com/kidsparis/activity-crawler/internal/fetch"
	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/metrics"
)

// Strategy walks a seed list for one zone and produces candidate
// entities. Implementations differ in how far past the seeds they go.
type Strategy interface {
	Name() string
	Run(ctx context.Context, zone activity.Zone, seeds []activity.Seed) ([]activity.Entity, []activity.StageError)
}

// Config bounds a strategy run. DomainDelay is the minimum spacing
// between fetches to one domain during deep crawls; the locality and
// intelligent strategies stay on the guard's default window.
type Config struct {
	MaxSources  int
	MaxDepth    int
	MaxURLs     int
	DomainDelay time.Duration
}

// Deps are the shared collaborators every strategy uses.
type Deps struct {
	Guard    *compliance.Guard
	Fetcher  *fetch.Fetcher
	Engine   *extract.Engine
	Detector *fetch.RenderDetector
	Logger   *zap.Logger
}

// crawler carries the run-scoped state shared by the strategy
// implementations.
type crawler struct {
	deps       Deps
	cfg        Config
	visited    *Visited
	delayFloor time.Duration
	logger     *zap.Logger
}

func newCrawler(deps Deps, cfg Config) *crawler {
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = 50
	}
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = 100
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	return &crawler{
		deps:    deps,
		cfg:     cfg,
		visited: NewVisited(),
		logger:  logging.OrNop(deps.Logger),
	}
}

// errSkipped marks URLs the compliance guard refused.
var errSkipped = fmt.Errorf("skipped by compliance guard")

// fetchPage runs one guarded fetch: robots check, politeness delay, then
// the request itself. When render is true and a renderer is wired, the
// page goes through the headless browser first.
func (c *crawler) fetchPage(ctx context.Context, rawURL string, render bool) (*fetch.Document, error) {
	if !c.deps.Guard.CanFetch(ctx, rawURL) {
		metrics.ObserveComplianceSkip(metrics.SanitizeSite(rawURL))
		c.logger.Debug("robots disallow", zap.String("url", rawURL))
		return nil, errSkipped
	}
	if err := c.deps.Guard.ThrottleFloor(ctx, rawURL, c.delayFloor); err != nil {
		return nil, err
	}
	return c.deps.Fetcher.Fetch(ctx, rawURL, fetch.Options{
		UserAgent: c.deps.Guard.UserAgent(),
		Render:    render,
	})
}

// fetchAdaptive fetches statically first and refetches through the
// renderer only when the page looks script-driven.
func (c *crawler) fetchAdaptive(ctx context.Context, rawURL string) (*fetch.Document, error) {
	doc, err := c.fetchPage(ctx, rawURL, false)
	if err != nil {
		return nil, err
	}
	if c.deps.Detector != nil && c.deps.Detector.ShouldRender(doc) {
		rendered, err := c.fetchPage(ctx, rawURL, true)
		if err == nil && rendered != nil {
			return rendered, nil
		}
		c.logger.Debug("render fallback to static document",
			zap.String("url", rawURL), zap.Error(err))
	}
	return doc, nil
}

// harvestLinks collects same-page links worth following: pages whose
// anchor text or path suggests an organization, plus PDF brochures.
func harvestLinks(doc *fetch.Document) []string {
	if doc == nil || doc.HTML == nil {
		return nil
	}
	base, err := url.Parse(doc.URL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})
	doc.HTML.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(u)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		link := resolved.String()
		if _, dup := seen[link]; dup {
			return
		}
		if !linkWorthFollowing(resolved, strings.TrimSpace(sel.Text())) {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}

func linkWorthFollowing(u *url.URL, anchorText string) bool {
	path := strings.ToLower(u.Path)
	if strings.HasSuffix(path, ".pdf") {
		return true
	}
	if extract.HasOrgKeyword(anchorText) || extract.HasYouthKeyword(anchorText) {
		return true
	}
	for _, hint := range []string{"association", "activite", "activité", "annuaire", "sport", "enfant", "jeunesse", "loisir"} {
		if strings.Contains(path, hint) {
			return true
		}
	}
	return false
}

// stageError converts a fetch failure into a reportable stage error.
func stageError(stage, rawURL string, err error) activity.StageError {
	return activity.StageError{
		Stage: stage,
		Error: fmt.Sprintf("%s: %v", rawURL, err),
	}
}
