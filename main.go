// Command backend is the main entrypoint for the ivs-lounge API server.
// It:
//   - Loads configuration and initializes structured logging.
//   - Wires the configured comment store backend (memory, file, or postgres,
//     with migrations for the latter).
//   - Connects the Amazon IVS API wrapper, with optional Redis caching and
//     encrypted stream-key persistence.
//   - Exposes the HTTP API: viewer config, channel lookup, comments with
//     live SSE/WebSocket feeds, health, status, and metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/lumaview/ivs-lounge/backend/comments"
	"github.com/lumaview/ivs-lounge/backend/config"
	"github.com/lumaview/ivs-lounge/backend/crypto"
	"github.com/lumaview/ivs-lounge/backend/db"
	"github.com/lumaview/ivs-lounge/backend/ivsapi"
	"github.com/lumaview/ivs-lounge/backend/server"
	"github.com/lumaview/ivs-lounge/backend/store"
	"github.com/lumaview/ivs-lounge/backend/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidatePlaybackReady(); err != nil {
		slog.Warn("playback not configured, /api/config will report it unavailable", slog.Any("err", err))
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("ivs-lounge", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Comment store backend
	var (
		commentStore comments.Store
		database     *sql.DB
	)
	switch cfg.CommentStoreBackend {
	case "memory":
		commentStore = store.NewMemory()
	case "file":
		commentStore, err = store.NewFile(cfg.DataDir)
		if err != nil {
			slog.Error("file store init failed", slog.Any("err", err))
			os.Exit(1)
		}
	case "postgres":
		database, err = db.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
				slog.Any("err", err), slog.String("component", "db_migrate"))
			if err := db.Migrate(context.Background(), database); err != nil {
				slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
				os.Exit(1)
			}
		}
		commentStore = store.NewPostgres(database)
	}
	slog.Info("comment store ready", slog.String("backend", cfg.CommentStoreBackend))

	// IVS API wrapper: enabled when a channel ARN is configured. Redis
	// caching and encrypted stream-key persistence attach when available.
	var ivsSvc *ivsapi.Service
	if cfg.ChannelARN != "" {
		client, err := ivsapi.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("ivs client init failed", slog.Any("err", err))
			os.Exit(1)
		}
		var opts []ivsapi.Option
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
			cache := ivsapi.NewRedisCache(rdb)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := cache.Ping(pingCtx); err != nil {
				slog.Warn("redis unreachable, channel caching disabled", slog.Any("err", err))
			} else {
				opts = append(opts, ivsapi.WithCache(cache, cfg.RedisCacheTTL))
				slog.Info("channel metadata caching enabled", slog.String("addr", cfg.RedisAddr))
			}
			cancel()
		}
		if key := os.Getenv("ENCRYPTION_KEY"); key != "" && database != nil {
			enc, err := crypto.NewAESEncryptor(key)
			if err != nil {
				slog.Error("encryption initialization failed", slog.Any("err", err))
				os.Exit(1)
			}
			opts = append(opts, ivsapi.WithStreamKeyStore(dbKV{database}, enc))
			slog.Info("stream key encryption enabled (AES-256-GCM)")
		} else if database != nil {
			slog.Warn("ENCRYPTION_KEY not set, stream keys will not be persisted")
		}
		ivsSvc = ivsapi.NewService(client, opts...)
	} else {
		slog.Info("CHANNEL_ARN not set, IVS endpoints disabled")
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handlers := server.NewHandlers(ctx, cfg, database, commentStore, ivsSvc)
	slog.Info("http server starting", slog.String("addr", addr))
	if err := server.Start(ctx, handlers, addr); err != nil {
		slog.Error("http server exited", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// dbKV adapts the db package helpers to the ivsapi.KV interface.
type dbKV struct{ db *sql.DB }

func (k dbKV) Get(ctx context.Context, key string) (string, error) {
	return db.GetKV(ctx, k.db, key)
}

func (k dbKV) Set(ctx context.Context, key, value string) error {
	return db.SetKV(ctx, k.db, key, value)
}
