package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	localmailadapter "tempbox/internal/adapter/driven/localmail"
	mailtmadapter "tempbox/internal/adapter/driven/mailtm"
	relayadapter "tempbox/internal/adapter/driven/relay"
	sqliteadapter "tempbox/internal/adapter/driven/sqlite"
	yopmailadapter "tempbox/internal/adapter/driven/yopmail"
	httphandler "tempbox/internal/adapter/driving/http"
	"tempbox/internal/application"
	"tempbox/internal/config"
	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"provider", cfg.Provider,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"address_ttl", cfg.AddressTTL,
		"refresh_period", cfg.RefreshPeriod,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	sessionStore := sqliteadapter.NewSessionRepo(db)
	domainCache := sqliteadapter.NewDomainCacheRepo(db)
	inboundStore := sqliteadapter.NewInboundRepo(db)

	var domainSource driven.DomainSource
	if cfg.YopmailProxyURL != "" {
		domainSource = yopmailadapter.NewClient(cfg.YopmailProxyURL)
		slog.Info("yopmail domain source enabled", "url", cfg.YopmailProxyURL)
	}
	domains := application.NewDomainDirectory(domainSource, domainCache, application.SystemClock)

	// 6. Provider factory: builds any variant on demand so the session can
	// switch at runtime.
	factory := func(kind model.ProviderKind) (driven.MailProvider, error) {
		switch kind {
		case model.ProviderMailTM:
			return mailtmadapter.NewClient(cfg.MailTMBaseURL, cfg.AddressTTL), nil
		case model.ProviderRelay:
			if !cfg.HasRelayCredentials() {
				return nil, fmt.Errorf("relay provider requires TEMPBOX_RELAY_URL and TEMPBOX_RELAY_KEY")
			}
			return relayadapter.NewClient(cfg.RelayURL, cfg.RelayKey), nil
		case model.ProviderLocal:
			return localmailadapter.New(domains, inboundStore), nil
		default:
			return nil, fmt.Errorf("unknown provider %q", kind)
		}
	}

	initial, err := factory(cfg.Provider)
	if err != nil {
		return err
	}
	providers := application.NewMailProviderProvider(initial, cfg.Provider)

	// 7. Create session service and restore or create the session.
	session := application.NewSessionService(
		providers,
		sessionStore,
		inboundStore,
		factory,
		application.SystemClock,
		cfg.AddressTTL,
		cfg.RefreshPeriod,
	)
	if err := session.Init(ctx); err != nil {
		slog.Error("initial session setup failed, retrying on countdown", "error", err)
	}

	// 7b. Start the countdown scheduler.
	scheduler := application.NewScheduler(session, time.Second)
	go scheduler.Run(ctx)

	// 7c. Webhook receiver stores directly; validated against the session.
	inboundSvc := application.NewInboundService(inboundStore, session, application.SystemClock)

	// 8. HTTP server.
	apiHandler := httphandler.NewHandler(session, domains, inboundSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default(), cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("tempbox started", "listen_addr", cfg.ListenAddr, "provider", cfg.Provider)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
