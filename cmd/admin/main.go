package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"shusmogames.com/site/internal/admin"
	"shusmogames.com/site/internal/admin/httpserver"
	"shusmogames.com/site/internal/admin/httpserver/middleware"
	"shusmogames.com/site/internal/admin/identity"
	"shusmogames.com/site/internal/admin/session"
	"shusmogames.com/site/internal/platform/config"
	pfirestore "shusmogames.com/site/internal/platform/firestore"
	"shusmogames.com/site/internal/platform/observability"
	"shusmogames.com/site/internal/platform/secrets"
	"shusmogames.com/site/internal/settings"
	"shusmogames.com/site/internal/view"
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
	logger := baseLogger.Named("admin")
	ctx = observability.WithLogger(ctx, logger)

	if err := cfg.ValidateAdmin(); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			logger.Fatal("admin configuration incomplete", zap.Strings("fields", verr.Fields()))
		}
		logger.Fatal("admin configuration invalid", zap.Error(err))
	}
	if !cfg.Firestore.Enabled() {
		logger.Fatal("admin console requires a firestore project")
	}

	var clientOpts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, clientOpts...)
	if err != nil {
		logger.Fatal("failed to initialise firebase app", zap.Error(err))
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firebase auth", zap.Error(err))
	}

	signer, err := identity.NewPasswordSigner(cfg.Firebase.APIKey, cfg.Firebase.IdentityEndpoint,
		identity.WithTimeout(cfg.Firebase.IdentityTimeout),
		identity.WithRefreshEndpoint(cfg.Firebase.RefreshEndpoint),
	)
	if err != nil {
		logger.Fatal("failed to initialise password sign-in", zap.Error(err))
	}

	sessions, err := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      []byte(cfg.Session.HashKey),
		BlockKey:     []byte(cfg.Session.BlockKey),
		CookiePath:   cfg.Server.AdminBasePath,
		CookieSecure: cfg.Session.Secure,
		IdleTimeout:  cfg.Session.IdleTimeout,
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	editor, err := admin.NewEditor(admin.EditorDeps{
		Games:    admin.NewFirestoreGameStore(provider),
		Settings: settings.NewFirestoreStore(provider),
		Logger:   logger.Named("editor"),
	})
	if err != nil {
		logger.Fatal("failed to initialise editor", zap.Error(err))
	}

	var viewOpts []view.Option
	if cfg.Server.DevMode {
		viewOpts = append(viewOpts, view.WithDevDir("internal/view/templates"))
	}
	views, err := view.New(viewOpts...)
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:       cfg.Server.AdminAddr,
		BasePath:      cfg.Server.AdminBasePath,
		Editor:        editor,
		Sessions:      sessions,
		Authenticator: middleware.NewFirebaseAuthenticator(authClient),
		Signer:        signer,
		Views:         views,
		Logger:        baseLogger,
		ProjectID:     cfg.Firebase.ProjectID,
		CookieSecure:  cfg.Session.Secure,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
	})
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	serverLogger := logger.With(zap.String("addr", srv.Addr), zap.String("basePath", cfg.Server.AdminBasePath))
	go func() {
		serverLogger.Info("admin console listening")
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
