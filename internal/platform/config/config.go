package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultWebAddr         = ":8080"
	defaultAdminAddr       = ":8081"
	defaultAdminBasePath   = "/admin"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultCatalogPath     = "data/games-data.json"
	defaultProfilePath     = "site.yaml"
	defaultSessionCookie   = "shusmo_admin_session"
	defaultSessionIdle     = 30 * time.Minute
	defaultIdentityTimeout = 10 * time.Second
	defaultLogLevel        = "info"
)

// Config is the runtime configuration shared by the web and admin servers.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Session   SessionConfig
	Catalog   CatalogConfig
	Site      SiteConfig
	Log       LogConfig
}

// ServerConfig configures both HTTP listeners.
type ServerConfig struct {
	WebAddr         string
	AdminAddr       string
	AdminBasePath   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	DevMode         bool
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	APIKey          string
	CredentialsFile string
	IdentityTimeout time.Duration
	// IdentityEndpoint overrides the Identity Toolkit base URL (emulator or tests).
	IdentityEndpoint string
	// RefreshEndpoint overrides the Secure Token base URL.
	RefreshEndpoint string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// Enabled reports whether a hosted store is configured.
func (c FirestoreConfig) Enabled() bool {
	return strings.TrimSpace(c.ProjectID) != ""
}

// SessionConfig controls the admin session cookie.
type SessionConfig struct {
	CookieName  string
	HashKey     string
	BlockKey    string
	Secure      bool
	IdleTimeout time.Duration
}

// CatalogConfig points at the static catalog document.
type CatalogConfig struct {
	Path string
	URL  string
}

// SiteConfig locates the site profile.
type SiteConfig struct {
	ProfilePath string
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values; they win over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Lookup returns a key lookup honouring the same precedence as Load
// (defaults < .env < OS env < explicit map). Used to bootstrap the secret resolver.
func Lookup(opts ...Option) (func(string) (string, bool), error) {
	options := newOptions(opts)
	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	return options.lookup(dotEnv), nil
}

// Load assembles the configuration from defaults, .env overrides, the environment and
// secret references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newOptions(opts)

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	lookup := options.lookup(dotEnv)

	cfg := Config{
		Server: ServerConfig{
			WebAddr:         stringWithDefault(lookup, "SITE_WEB_ADDR", defaultWebAddr),
			AdminAddr:       stringWithDefault(lookup, "SITE_ADMIN_ADDR", defaultAdminAddr),
			AdminBasePath:   stringWithDefault(lookup, "SITE_ADMIN_BASE_PATH", defaultAdminBasePath),
			ReadTimeout:     durationWithDefault(lookup, "SITE_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "SITE_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "SITE_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "SITE_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
			DevMode:         boolWithDefault(lookup, "SITE_DEV_MODE", false),
		},
		Firebase: FirebaseConfig{
			ProjectID:        stringWithDefault(lookup, "SITE_FIREBASE_PROJECT_ID", ""),
			APIKey:           stringWithDefault(lookup, "SITE_FIREBASE_API_KEY", ""),
			CredentialsFile:  stringWithDefault(lookup, "SITE_FIREBASE_CREDENTIALS_FILE", ""),
			IdentityTimeout:  durationWithDefault(lookup, "SITE_FIREBASE_IDENTITY_TIMEOUT", defaultIdentityTimeout),
			IdentityEndpoint: stringWithDefault(lookup, "SITE_FIREBASE_IDENTITY_ENDPOINT", ""),
			RefreshEndpoint:  stringWithDefault(lookup, "SITE_FIREBASE_REFRESH_ENDPOINT", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "SITE_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "SITE_FIRESTORE_EMULATOR_HOST", ""),
		},
		Session: SessionConfig{
			CookieName:  stringWithDefault(lookup, "SITE_SESSION_COOKIE_NAME", defaultSessionCookie),
			HashKey:     stringWithDefault(lookup, "SITE_SESSION_HASH_KEY", ""),
			BlockKey:    stringWithDefault(lookup, "SITE_SESSION_BLOCK_KEY", ""),
			Secure:      boolWithDefault(lookup, "SITE_SESSION_SECURE", true),
			IdleTimeout: durationWithDefault(lookup, "SITE_SESSION_IDLE_TIMEOUT", defaultSessionIdle),
		},
		Catalog: CatalogConfig{
			Path: stringWithDefault(lookup, "SITE_CATALOG_PATH", defaultCatalogPath),
			URL:  stringWithDefault(lookup, "SITE_CATALOG_URL", ""),
		},
		Site: SiteConfig{
			ProfilePath: stringWithDefault(lookup, "SITE_PROFILE_PATH", defaultProfilePath),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "SITE_LOG_LEVEL", defaultLogLevel)),
		},
	}

	// Firestore project defaults to Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}

	secretFields := []*string{
		&cfg.Firebase.APIKey,
		&cfg.Session.HashKey,
		&cfg.Session.BlockKey,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateAdmin checks the fields only the admin console needs.
func (c Config) ValidateAdmin() error {
	var missing []string
	if strings.TrimSpace(c.Firebase.ProjectID) == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if strings.TrimSpace(c.Firebase.APIKey) == "" {
		missing = append(missing, "Firebase.APIKey")
	}
	if len(c.Session.HashKey) < 32 {
		missing = append(missing, "Session.HashKey")
	}
	if n := len(c.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		missing = append(missing, "Session.BlockKey")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func newOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func (o loaderOptions) lookup(dotEnv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if o.envMap != nil {
			if value, ok := o.envMap[key]; ok {
				return value, true
			}
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnv[key]; ok {
			return value, true
		}
		return "", false
	}
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !IsSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.WebAddr) == "" {
		missing = append(missing, "Server.WebAddr")
	}
	if strings.TrimSpace(cfg.Server.AdminAddr) == "" {
		missing = append(missing, "Server.AdminAddr")
	}
	if !strings.HasPrefix(cfg.Server.AdminBasePath, "/") {
		missing = append(missing, "Server.AdminBasePath")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		missing = append(missing, "Server.ShutdownTimeout")
	}
	if strings.TrimSpace(cfg.Catalog.Path) == "" && strings.TrimSpace(cfg.Catalog.URL) == "" {
		missing = append(missing, "Catalog.Path")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		missing = append(missing, "Session.CookieName")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		missing = append(missing, "Log.Level")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

// IsSecretReference reports whether value points at Secret Manager.
func IsSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
	}
	return fallback
}
