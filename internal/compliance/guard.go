// Package compliance enforces robots.txt directives and per-domain
// politeness for every outbound fetch.
package compliance

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/metrics"
)

// robotsAgent is the user-agent group consulted in robots.txt. Directives
// for the wildcard group are the ones the crawler honors, regardless of
// which agent string a given request rotates to.
const robotsAgent = "*"

// Config controls robots handling and the politeness window.
type Config struct {
	UserAgents        []string
	MinDelay          time.Duration
	MaxDelay          time.Duration
	RobotsTTL         time.Duration
	RespectRobots     bool
	PermissiveOnError bool
}

// Guard gates fetches on robots.txt and serializes access per domain.
// It is safe for concurrent use; the robots cache, the per-domain rate
// state, and the agent counter are the only shared structures.
type Guard struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	robots sync.Map // host -> *robotsEntry

	mu      sync.Mutex
	domains map[string]*domainState

	agentCounter atomic.Uint64
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// domainState serializes fetches to one hostname. Waiters queue on mu in
// arrival order, so requests to a domain are strictly ordered by
// submission time.
type domainState struct {
	mu    sync.Mutex
	last  time.Time
	delay time.Duration // crawl-delay from robots.txt, 0 when absent
}

// New builds a Guard.
func New(cfg Config, logger *zap.Logger) *Guard {
	if cfg.RobotsTTL <= 0 {
		cfg.RobotsTTL = 24 * time.Hour
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Guard{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  logging.OrNop(logger),
		domains: make(map[string]*domainState),
	}
}

// CanFetch reports whether robots.txt allows fetching the URL. When the
// robots file cannot be fetched or parsed the configured permissive
// fallback applies; the failure is logged, never silent.
func (g *Guard) CanFetch(ctx context.Context, rawURL string) bool {
	if !g.cfg.RespectRobots {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	data, err := g.load(ctx, parsed)
	if err != nil {
		g.logger.Warn("robots fetch failed",
			zap.String("host", parsed.Host),
			zap.Bool("permissive", g.cfg.PermissiveOnError),
			zap.Error(err))
		return g.cfg.PermissiveOnError
	}
	group := data.FindGroup(robotsAgent)
	if group == nil {
		return true
	}
	if group.CrawlDelay > 0 {
		g.domainState(parsed.Hostname()).setDelay(group.CrawlDelay)
	}
	return group.Test(parsed.Path)
}

// Throttle blocks until the caller may fetch the URL's domain. The delay
// is the robots crawl-delay when present, otherwise a random duration in
// the configured [min,max] window. Access per domain is serialized; other
// domains proceed concurrently.
func (g *Guard) Throttle(ctx context.Context, rawURL string) error {
	return g.ThrottleFloor(ctx, rawURL, 0)
}

// ThrottleFloor behaves like Throttle but never waits less than floor
// between fetches to the same domain. Deep crawls use it to stay slower
// than the default politeness window.
func (g *Guard) ThrottleFloor(ctx context.Context, rawURL string, floor time.Duration) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("throttle: invalid url %q", rawURL)
	}
	st := g.domainState(parsed.Hostname())

	st.mu.Lock()
	defer st.mu.Unlock()

	delay := st.delay
	if delay <= 0 {
		delay = g.randomDelay()
	}
	if delay < floor {
		delay = floor
	}
	wait := time.Until(st.last.Add(delay))
	if !st.last.IsZero() && wait > 0 {
		metrics.ObserveThrottle(metrics.SanitizeSite(rawURL), wait)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("throttle wait canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	st.last = time.Now()
	return nil
}

// UserAgent returns the next agent string from the pool, round robin.
func (g *Guard) UserAgent() string {
	if len(g.cfg.UserAgents) == 0 {
		return ""
	}
	n := g.agentCounter.Add(1) - 1
	return g.cfg.UserAgents[n%uint64(len(g.cfg.UserAgents))]
}

func (g *Guard) domainState(host string) *domainState {
	key := strings.ToLower(host)
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.domains[key]
	if !ok {
		st = &domainState{}
		g.domains[key] = st
	}
	return st
}

func (s *domainState) setDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func (g *Guard) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Host)
	if cached, ok := g.robots.Load(hostKey); ok {
		entry, assertOK := cached.(*robotsEntry)
		if !assertOK {
			return nil, fmt.Errorf("robots cache type mismatch: %T", cached)
		}
		if time.Since(entry.fetchedAt) < g.cfg.RobotsTTL {
			return entry.data, nil
		}
		g.robots.Delete(hostKey)
	}

	robotsURL := *parsed
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", g.UserAgent())
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			g.logger.Debug("close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	g.robots.Store(hostKey, &robotsEntry{data: data, fetchedAt: time.Now()})
	return data, nil
}

func (g *Guard) randomDelay() time.Duration {
	span := g.cfg.MaxDelay - g.cfg.MinDelay
	if span <= 0 {
		return g.cfg.MinDelay
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(span)))
	if err != nil {
		return g.cfg.MinDelay + span/2
	}
	return g.cfg.MinDelay + time.Duration(n.Int64())
}
