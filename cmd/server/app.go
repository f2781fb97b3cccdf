package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mentalytics/internal/agent"
	"mentalytics/internal/chat"
	"mentalytics/internal/config"
	"mentalytics/internal/history"
	"mentalytics/internal/i18n"
	"mentalytics/internal/metrics"
	"mentalytics/internal/platform/telegram"
	"mentalytics/internal/platform/web"
	"mentalytics/internal/report"
	"mentalytics/internal/store"
	"mentalytics/internal/study"
)

const dbConnectAttempts = 10

// app holds the wired services shared by the server and the CLI commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	reg    *prometheus.Registry
	db     *sql.DB

	table  *i18n.Table
	store  store.Store
	model  agent.Model
	study  study.Service
	report *report.Service
	chat   chat.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{cfg: cfg, logger: logger, reg: reg, table: i18n.Default()}

	// 1. Infrastructure
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := store.OpenPostgres(ctx, cfg.Store.DatabaseURL, dbConnectAttempts, logger)
		if err != nil {
			return nil, err
		}
		a.db = db
		if err := store.Migrate(cfg.Store.DatabaseURL, cfg.Store.MigrationsDir); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("migrations applied")
		a.store = store.NewPostgresStore(db, logger)
	default:
		a.store = store.NewFileStore(cfg.DataDir, logger)
	}

	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 2. Clients
	a.model = agent.NewLlamaCLI(agent.Options{
		BinPath:     cfg.Llama.BinPath,
		ModelPath:   cfg.Llama.ModelPath,
		MaxTokens:   cfg.Llama.MaxTokens,
		Threads:     cfg.Llama.Threads,
		Batch:       cfg.Llama.Batch,
		NoWarmup:    cfg.Llama.NoWarmup,
		Temperature: cfg.Llama.Temperature,
		TopP:        cfg.Llama.TopP,
	}, logger)
	if err := a.model.Preflight(); err != nil {
		logger.Warn("patient corner disabled until the model is installed", zap.Error(err))
	}

	opts := []study.Option{study.WithLogger(logger), study.WithMetrics(recorder)}
	if cfg.Telegram.Enabled() {
		opts = append(opts, study.WithNotifier(telegram.NewNotifier(telegram.NewClient(cfg.Telegram.Token), cfg.Telegram.ChatID, logger)))
	} else {
		logger.Info("coordinator notifications off: telegram token or chat id not set")
	}

	// 3. Services
	sessions, err := study.NewSessions(cfg.SessionCacheSize)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.study = study.NewService(study.NewRepository(a.store), sessions, a.table, opts...)
	a.report = report.NewService(a.store, a.table, report.PDFRenderer{}, logger)
	a.chat = chat.NewService(a.model, a.store, history.New(cfg.DataDir, logger), recorder, logger)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors(a.cfg.AllowedOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		web.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		study.RegisterRoutes(r, study.NewHandler(a.study, a.table))
		report.RegisterRoutes(r, report.NewHandler(a.report, a.table))
		chat.RegisterRoutes(r, chat.NewHandler(a.chat))
	})
	return r
}

// cors lets the browser client on origin call the API and read the device header.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", web.DeviceHeader)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
