package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"shusmogames.com/site/internal/catalog"
	"shusmogames.com/site/internal/platform/config"
	pfirestore "shusmogames.com/site/internal/platform/firestore"
	"shusmogames.com/site/internal/platform/observability"
	"shusmogames.com/site/internal/platform/secrets"
	"shusmogames.com/site/internal/settings"
	"shusmogames.com/site/internal/site"
	"shusmogames.com/site/internal/view"
	"shusmogames.com/site/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap, err := config.Lookup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment: %v\n", err)
		os.Exit(1)
	}
	project, _ := bootstrap("SITE_FIREBASE_PROJECT_ID")
	resolver := secrets.NewResolver(ctx, secrets.WithProject(project))
	defer resolver.Close()

	cfg, err := config.Load(ctx, config.WithSecretResolver(resolver))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")
	ctx = observability.WithLogger(ctx, logger)

	profile, err := site.Load(cfg.Site.ProfilePath)
	if err != nil {
		logger.Fatal("failed to load site profile", zap.Error(err))
	}

	var viewOpts []view.Option
	if cfg.Server.DevMode {
		viewOpts = append(viewOpts, view.WithDevDir("internal/view/templates"))
	}
	views, err := view.New(viewOpts...)
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	serverCfg := web.Config{
		Address:      cfg.Server.WebAddr,
		Profile:      profile,
		Views:        views,
		Logger:       baseLogger,
		ProjectID:    cfg.Firebase.ProjectID,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	if url := strings.TrimSpace(cfg.Catalog.URL); url != "" {
		serverCfg.Static = catalog.NewHTTPSource(url)
	} else {
		serverCfg.Static = catalog.FileSource{Path: cfg.Catalog.Path}
		serverCfg.CatalogFile = cfg.Catalog.Path
	}

	if cfg.Firestore.Enabled() {
		provider := pfirestore.NewProvider(cfg.Firestore)
		defer func() {
			if err := provider.Close(); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}()
		serverCfg.Live = catalog.NewFirestoreSource(provider)
		serverCfg.Settings = settings.NewFirestoreStore(provider)
	} else {
		logger.Info("firestore not configured; live list and stored contact details disabled")
	}

	srv, err := web.New(serverCfg)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	serverLogger := logger.With(zap.String("addr", srv.Addr))
	go func() {
		serverLogger.Info("site listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
