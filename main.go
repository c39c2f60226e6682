package main

import (
	"collab-docs/app"
	"collab-docs/components"
	"collab-docs/config"
	"collab-docs/handlers/api/collab"
	"collab-docs/handlers/api/documents"
	"collab-docs/handlers/api/templates"
	"collab-docs/metrics"
	authMiddleware "collab-docs/middleware"
	"collab-docs/notifications"
	"collab-docs/stores"
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func setupRouter(store stores.Store, session *app.Session, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documents.HandleList(session.DocumentAPI))
			r.Post("/", documents.HandleCreate(session.DocumentAPI))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", documents.HandleGet(session.DocumentAPI))
				r.Put("/", documents.HandleUpdate(session.DocumentAPI))
				r.Delete("/", documents.HandleDelete(session.DocumentAPI))
			})
		})
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", templates.HandleList(store.Templates))
			r.Post("/", templates.HandleCreate(store.Templates))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", templates.HandleGet(store.Templates))
				r.Put("/", templates.HandleUpdate(store.Templates))
				r.Delete("/", templates.HandleDelete(store.Templates))
			})
		})
		r.Post("/render", documents.HandleRender(store.Documents, session.Renderer))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT(jwtSecret))
			r.Mount("/collab", collab.Routes(session))
		})
	})

	return r
}

func setupLogging(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(lvl)
	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func newSession(cfg *config.Config, store stores.Store) *app.Session {
	return app.NewSession(store.Documents, store.Templates, app.Options{
		Clock: clockwork.NewRealClock(),
		Editor: components.EditorOptions{
			AutosaveDelay:  cfg.Session.AutosaveDelay,
			TypingInterval: cfg.Session.TypingSignalInterval,
			IndicatorTTL:   cfg.Session.IndicatorTTL,
		},
		Notifications: notifications.Options{
			DismissAfter:   cfg.Session.ToastDuration,
			TypingThrottle: cfg.Session.TypingThrottle,
		},
		PresenceInterval: cfg.Presence.Interval,
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}

	listenAddress := flag.String("listen", cfg.Server.ListenAddr, "The address to listen on.")
	logLevel := flag.String("loglevel", cfg.Log.Level, "The log level (debug, info, warn, error).")
	flag.Parse()

	setupLogging(*logLevel, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	store, err := stores.GetStore(ctx, cfg.Storage)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close storage")
		}
	}()

	session := newSession(cfg, store)
	if cfg.Session.SeedDemo {
		if err := session.Seed(ctx); err != nil {
			logrus.WithError(err).Warn("Failed to seed demo data")
		}
	}
	session.Start(ctx)
	defer session.Close()

	srv := &http.Server{
		Addr:    *listenAddress,
		Handler: setupRouter(store, session, cfg.Auth.JWTSecret),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("addr", *listenAddress).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Presence.Simulation {
		g.Go(func() error {
			session.Simulator.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithField("event", "start server").Error(err)
	}
}
