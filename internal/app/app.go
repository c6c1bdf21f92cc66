// Package app assembles the service from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kidsparis/activity-crawler/internal/api"
	"github.com/kidsparis/activity-crawler/internal/archive"
	"github.com/kidsparis/activity-crawler/internal/compliance"
	"github.com/kidsparis/activity-crawler/internal/config"
	"github.com/kidsparis/activity-crawler/internal/discover"
	"github.com/kidsparis/activity-crawler/internal/enrich"
	"github.com/kidsparis/activity-crawler/internal/extract"
	"github.com/kidsparis/activity-crawler/internal/fetch"
	"github.com/kidsparis/activity-crawler/internal/fetch/headless"
	"github.com/kidsparis/activity-crawler/internal/jobs"
	"github.com/kidsparis/activity-crawler/internal/logging"
	"github.com/kidsparis/activity-crawler/internal/orchestrator"
	"github.com/kidsparis/activity-crawler/internal/publisher"
	"github.com/kidsparis/activity-crawler/internal/store"
	"github.com/kidsparis/activity-crawler/internal/strategy"
	"github.com/kidsparis/activity-crawler/internal/validate"
)

// App holds the fully wired service.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Records      store.RecordStore
	Publisher    publisher.Publisher
	Orchestrator *orchestrator.Orchestrator
	Manager      *jobs.Manager
	Server       *api.Server

	closers []func() error
}

// New builds every component the configuration asks for.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	records, err := a.buildStore(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Records = records
	a.closers = append(a.closers, records.Close)
	rejections, _ := records.(store.RejectionStore)

	archiver, err := a.buildArchive(ctx, cfg.Archive)
	if err != nil {
		a.Close()
		return nil, err
	}

	events, err := a.buildPublisher(ctx, cfg.Publisher)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Publisher = events
	a.closers = append(a.closers, events.Close)

	renderer, err := a.buildRenderer(cfg.Headless)
	if err != nil {
		a.Close()
		return nil, err
	}

	guard := compliance.New(compliance.Config{
		UserAgents:        cfg.Compliance.UserAgents,
		MinDelay:          cfg.Compliance.MinDelay,
		MaxDelay:          cfg.Compliance.MaxDelay,
		RobotsTTL:         cfg.Compliance.RobotsTTL,
		RespectRobots:     cfg.Compliance.RespectRobots,
		PermissiveOnError: cfg.Compliance.PermissiveOnError,
	}, logger)

	fetcher := fetch.New(
		fetch.NewStaticClient(cfg.Fetch.Timeout),
		renderer,
		fetch.NewRetryPolicy(cfg.Fetch.MaxAttempts, cfg.Fetch.BaseBackoff, cfg.Fetch.MaxBackoff),
		archiver,
		logger,
	)
	engine := extract.NewEngine(logger)

	search := discover.NewSearchClient(fetcher, guard.UserAgent(),
		cfg.Discover.SearchTemplate, cfg.Discover.SearchRPS, cfg.Discover.QueryChunk)
	discoverer := discover.NewDiscoverer(
		discover.NewWikidataClient(cfg.Discover.SPARQLEndpoint, guard.UserAgent(), logger),
		search,
		cfg.Discover.AggregatorSites,
		logger,
	)

	a.Orchestrator = orchestrator.New(orchestrator.Params{
		Discoverer: discoverer,
		NewExpander: func() *discover.Expander {
			return discover.NewExpander(search, cfg.Crawl.ExpansionCap)
		},
		Strategies: orchestrator.NewStrategyFactory(
			strategy.Deps{
				Guard:    guard,
				Fetcher:  fetcher,
				Engine:   engine,
				Detector: &fetch.RenderDetector{},
				Logger:   logger,
			},
			strategy.Config{
				MaxSources:  cfg.Crawl.MaxSources,
				MaxDepth:    cfg.Crawl.MaxDepth,
				MaxURLs:     cfg.Crawl.MaxURLs,
				DomainDelay: cfg.Crawl.DomainDelay,
			},
		),
		Validator: validate.New(validate.Config{
			AuthorityMinSignals: cfg.Validate.AuthorityMinSignals,
			ConfidenceFloor:     cfg.Validate.ConfidenceFloor,
		}, logger),
		Deduper:         validate.NewDeduper(cfg.Validate.SimilarityThreshold, logger),
		Enricher:        enrich.New(enrich.NewBANGeocoder(""), logger),
		Rejections:      store.NewRejectionList(),
		RejectionSource: rejections,
		Records:         records,
		Logger:          logger,
	})

	a.Manager = jobs.NewManager(jobs.Config{
		Watchdog: cfg.Jobs.Watchdog,
		History:  cfg.Jobs.History,
	}, a.Orchestrator, events, nil, nil, logger)

	a.Server = api.NewServer(api.Config{
		Addr:           cfg.Server.Addr,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, a.Manager, rejections, logger)

	return a, nil
}

// Close tears components down in reverse construction order.
func (a *App) Close() {
	if a.Manager != nil {
		a.Manager.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

func (a *App) buildStore(ctx context.Context, cfg config.StoreConfig) (store.RecordStore, error) {
	switch cfg.Provider {
	case "", "memory":
		return store.NewMemory(), nil
	case "postgres":
		return store.NewPostgres(ctx, cfg.DSN, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Provider)
	}
}

func (a *App) buildArchive(ctx context.Context, cfg config.ArchiveConfig) (fetch.Archiver, error) {
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "", "memory":
		return archive.NewMemory(), nil
	case "local":
		return archive.NewLocal(cfg.BaseDir), nil
	case "gcs":
		g, err := archive.NewGCS(ctx, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Provider)
	}
}

func (a *App) buildPublisher(ctx context.Context, cfg config.PublisherConfig) (publisher.Publisher, error) {
	switch cfg.Provider {
	case "", "memory":
		return publisher.NewMemory(), nil
	case "pubsub":
		return publisher.NewPubSub(ctx, cfg.ProjectID, cfg.TopicID)
	default:
		return nil, fmt.Errorf("unknown publisher provider %q", cfg.Provider)
	}
}

func (a *App) buildRenderer(cfg config.HeadlessConfig) (fetch.Renderer, error) {
	if !cfg.Enabled {
		return headless.NewNoop(), nil
	}
	r, err := headless.NewRenderer(headless.Config{
		MaxParallel: cfg.MaxParallel,
		NavTimeout:  cfg.NavTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("headless renderer: %w", err)
	}
	a.closers = append(a.closers, func() error {
		r.Close()
		return nil
	})
	return r, nil
}
