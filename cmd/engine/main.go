package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"listado-engine/internal/aggregate"
	"listado-engine/internal/cache"
	"listado-engine/internal/config"
	"listado-engine/internal/domain"
	"listado-engine/internal/events"
	"listado-engine/internal/httpapi"
	"listado-engine/internal/logging"
	"listado-engine/internal/scheduler"
	"listado-engine/internal/search"
	"listado-engine/internal/secrets"
	"listado-engine/internal/source"
	"listado-engine/internal/store"
)

func main() {
	log, err := logging.New(os.Getenv("LISTADO_LOG_JSON") == "1")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// Data dir: env if provided (desktop shell passes one), else local folder.
	dataDir := os.Getenv("LISTADO_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalw("data dir", "err", err)
	}

	// One engine per data dir.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalw("lock data dir", "err", err)
	}
	if !locked {
		log.Fatalw("another engine instance owns this data dir", "dir", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalw("config bootstrap", "err", err)
	}

	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalw("config load", "path", userCfgPath, "err", err)
	}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "listado.db"))
	if err != nil {
		log.Fatalw("open store", "err", err)
	}
	defer func() { _ = db.Close() }()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatalw("migrate store", "err", err)
	}

	backend, sqliteBackend := openCacheBackend(dataDir, cfg, log)
	swr := cache.New(backend, log)

	admission := search.NewAdmission(cfg.Provider.MaxRequestsPerSecond, cfg.Provider.MonthlyQuota)
	client := search.NewClient(search.Options{
		Endpoint:         cfg.Provider.Endpoint,
		FallbackEndpoint: cfg.Fallback.Endpoint,
		APIKey: func() string {
			cur := cfgVal.Load().(config.Config)
			return secrets.ProviderAPIKey(cur.Provider.KeyringAccount, cur.Provider.APIKeyEnv)
		},
		ProviderTimeout: cfg.ProviderTimeout(),
		FallbackTimeout: cfg.FallbackTimeout(),
		DefaultDomains:  cfg.Provider.Domains,
		DefaultKeywords: cfg.Provider.Keywords,
	}, admission, swr, log)

	engine := aggregate.NewEngine(swr, log, buildAdapters(cfg, client), aggregate.Options{
		RegionTokens: cfg.Region.Tokens,
		SafeSources:  cfg.TrustedOrigins,
		Categories:   cfg.CategoryTable(),
		Areas:        cfg.AreaTable(),
	})

	hub := events.NewHub()

	var collectStatus atomic.Value
	collectStatus.Store(httpapi.CollectStatus{})

	runCollect := func(ctx context.Context, cfg config.Config) (int, error) {
		buckets := engine.FillByArea(ctx, cfg.Collect.Areas, cfg.Collect.Location, cfg.Collect.MinPer, cfg.Collect.SafeOnly)
		var all []domain.Listing
		for _, items := range buckets {
			all = append(all, items...)
		}
		stored, err := store.StoreListings(db.Pool, all)
		if stored > 0 {
			hub.Broadcast(events.TypeListingStored, map[string]any{"stored": stored})
		}
		return stored, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Collect.IntervalSeconds > 0 {
		interval := time.Duration(cfg.Collect.IntervalSeconds) * time.Second
		go scheduler.Every(ctx, log, interval, "collect", func(ctx context.Context) error {
			cur := cfgVal.Load().(config.Config)
			stored, err := runCollect(ctx, cur)
			if err == nil {
				log.Infow("collection pass done", "stored", stored)
			}
			return err
		})
	}

	if sqliteBackend != nil && cfg.Cache.PurgeSeconds > 0 {
		interval := time.Duration(cfg.Cache.PurgeSeconds) * time.Second
		go scheduler.Every(ctx, log, interval, "cache-purge", func(context.Context) error {
			purged, err := sqliteBackend.PurgeExpired()
			if purged > 0 {
				log.Infow("purged expired cache entries", "purged", purged)
			}
			return err
		})
	}

	go scheduler.Every(ctx, log, 24*time.Hour, "store-cleanup", func(context.Context) error {
		removed, err := store.CleanupOld(db.Pool)
		if removed > 0 {
			log.Infow("dropped old listings", "removed", removed)
		}
		return err
	})

	mux := httpapi.NewMux(httpapi.Deps{
		DB:            db.Pool,
		Log:           log,
		Hub:           hub,
		Engine:        engine,
		Search:        client,
		CfgVal:        &cfgVal,
		CollectStatus: &collectStatus,
		UserCfgPath:   userCfgPath,
		LoadCfg:       loadCfg,
		RunCollect:    runCollect,
	})

	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover(log),
		httpapi.AccessLog(log),
		httpapi.Cors(cfg.TrustedOrigins),
	)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalw("listen", "addr", addr, "err", err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	attachShutdown(mux, srv, log)

	log.Infow("engine listening", "addr", "http://"+addr, "data_dir", dataDir)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatalw("serve", "err", err)
	}
}

// openCacheBackend honors cfg.Cache.Backend, degrading to the in-process
// map when the sqlite file cannot be opened.
func openCacheBackend(dataDir string, cfg config.Config, log *zap.SugaredLogger) (cache.Backend, *cache.SQLiteBackend) {
	if cfg.Cache.Backend != "sqlite" {
		return cache.NewMemoryBackend(), nil
	}
	sb, err := cache.OpenSQLiteBackend(filepath.Join(dataDir, "cache.db"), log)
	if err != nil {
		log.Warnw("sqlite cache unavailable, using in-memory cache", "err", err)
		return cache.NewMemoryBackend(), nil
	}
	return sb, sb
}

func buildAdapters(cfg config.Config, client *search.Client) []source.Adapter {
	var adapters []source.Adapter
	if cfg.Sources.GobMX.Enabled {
		adapters = append(adapters, source.NewGobMX())
	}
	if cfg.Sources.CruzRoja.Enabled {
		adapters = append(adapters, source.NewCruzRoja())
	}
	if cfg.Sources.Techo.Enabled {
		adapters = append(adapters, source.NewTecho())
	}
	if cfg.Sources.UNOnline.Enabled {
		adapters = append(adapters, source.NewUNOnline())
	}
	if cfg.Sources.Provider.Enabled {
		adapters = append(adapters, source.NewProvider(client))
	}
	if e := cfg.Sources.Email; e.Enabled {
		username := e.Username
		ea := source.NewEmailAlerts(e.IMAPHost, e.IMAPPort, username, func() string {
			return secrets.IMAPPassword(username)
		})
		if e.Mailbox != "" {
			ea.Mailbox = e.Mailbox
		}
		ea.SubjectAny = e.SearchSubjectAny
		if e.MaxMessages > 0 {
			ea.MaxMessages = e.MaxMessages
		}
		adapters = append(adapters, ea)
	}
	return adapters
}
