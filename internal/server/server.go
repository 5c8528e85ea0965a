package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/mohammad-safakhou/netresearch/config"
	"github.com/mohammad-safakhou/netresearch/internal/agent/core"
	"github.com/mohammad-safakhou/netresearch/internal/archive"
	"github.com/mohammad-safakhou/netresearch/internal/openalex"
	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/runs/inmemory"
	"github.com/mohammad-safakhou/netresearch/internal/store"
	"github.com/mohammad-safakhou/netresearch/provider"
)

// runSaver persists finished runs and keeps the archive index current.
type runSaver struct {
	store   *store.Store
	archive *archive.Archive
}

func (s *runSaver) SaveRun(ctx context.Context, runID, query string, graph *runs.Graph) error {
	if err := s.store.SaveRun(ctx, runID, query, graph); err != nil {
		return err
	}
	if s.archive != nil {
		s.archive.IndexRun(runID, query, graph)
	}
	return nil
}

// Run wires the whole service and serves until the listener fails. Postgres
// and redis are optional: without them the service still answers, with
// persistence, archive search, watches and the user profile degraded.
func Run(cfgPath, addr string) error {
	cfg := appconfig.LoadConfig(cfgPath)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"message": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registry := inmemory.New()

	// Optional redis: concept cache + scheduler locks.
	var rdb *redis.Client
	if cfg.Storage.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr, err)
		}
	}

	catalogLogger := log.New(log.Writer(), "[CATALOG] ", log.LstdFlags)
	var conceptCache openalex.ConceptCache
	if rdb != nil {
		conceptCache = openalex.NewRedisConceptCache(rdb, cfg.Storage.Redis.ConceptCacheTTL, catalogLogger)
	}
	catalog := openalex.New(openalex.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		Mailto:         cfg.Catalog.Mailto,
		ConceptTimeout: cfg.Catalog.ConceptTimeout,
		WorksTimeout:   cfg.Catalog.WorksTimeout,
		ConceptDelay:   cfg.Catalog.ConceptDelay,
		AuthorDelay:    cfg.Catalog.AuthorDelay,
		RetryAttempts:  cfg.Catalog.RetryAttempts,
	}, conceptCache, catalogLogger)

	llm, err := provider.NewProvider(provider.OpenAICompatible, cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)
	if err != nil {
		return err
	}

	// Optional Postgres: saved runs, user profile, watches.
	storeLogger := log.New(log.Writer(), "[STORE] ", log.LstdFlags)
	var st *store.Store
	if cfg.Storage.Postgres.Enabled() {
		dsn := cfg.Storage.Postgres.DSN()
		if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
			storeLogger.Printf("migrate: %v", err)
		}
		st, err = store.NewWithDSN(context.Background(), dsn)
		if err != nil {
			storeLogger.Printf("postgres unavailable, persistence disabled: %v", err)
			st = nil
		}
	} else {
		storeLogger.Printf("postgres not configured, persistence disabled")
	}

	archiveLogger := log.New(log.Writer(), "[ARCHIVE] ", log.LstdFlags)
	var arch *archive.Archive
	var saver core.RunSaver
	if st != nil {
		arch, err = archive.New(archiveLogger)
		if err != nil {
			return err
		}
		recs, err := st.ListRuns(context.Background())
		if err != nil {
			archiveLogger.Printf("rebuild: %v", err)
		} else {
			for _, r := range recs {
				arch.IndexRun(r.ID, r.Query, r.Graph)
			}
			archiveLogger.Printf("rebuilt index over %d saved runs", len(recs))
		}
		saver = &runSaver{store: st, archive: arch}
	}

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := core.NewOrchestrator(registry, registry, catalog, llm, saver, orchLogger)
	if cfg.Agent.PacingDisabled {
		orch.Pacing = core.Pacing{}
	}

	api := e.Group("/api")

	ah := &AgentHandler{
		Registry:        registry,
		Orch:            orch,
		Store:           st,
		Archive:         arch,
		DefaultMaxNodes: cfg.Agent.DefaultMaxNodes,
		Logger:          log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
	}
	ah.Register(api.Group("/agent"))

	cvh := &CVHandler{
		CVs:    registry,
		LLM:    llm,
		Store:  st,
		Logger: log.New(log.Writer(), "[CV] ", log.LstdFlags),
	}
	cvh.Register(api.Group("/cv"))

	uh := &UserHandler{Store: st, CVs: registry, Registry: registry, Logger: baseLogger}
	uh.Register(api)

	eh := &EmailHandler{CVs: registry, LLM: llm, Store: st, Logger: log.New(log.Writer(), "[EMAIL] ", log.LstdFlags)}
	eh.Register(api.Group("/email"))

	wh := &WatchesHandler{Store: st, DefaultMaxNodes: cfg.Agent.DefaultMaxNodes}
	wh.Register(api.Group("/watches"))

	if cfg.Scheduler.Enabled && st != nil {
		sched := &Scheduler{
			Store:    st,
			Registry: registry,
			Orch:     orch,
			Rdb:      rdb,
			Interval: cfg.Scheduler.Interval,
			Stop:     make(chan struct{}),
			Logger:   log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		}
		sched.Start()
	}

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
