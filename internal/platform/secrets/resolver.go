package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shusmogames.com/site/internal/platform/observability"
)

const defaultFallbackPath = ".secrets.local"

var secretManagerClientFactory = func(ctx context.Context, opts ...option.ClientOption) (*secretmanager.Client, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver resolves secret:// references against Secret Manager, caching values for the
// lifetime of the process and falling back to a local file when the service is unreachable.
type Resolver struct {
	client     secretManagerClient
	ownsClient bool
	logger     *zap.Logger
	projectID  string

	fallbackPath string
	fallbackOnce sync.Once
	fallbackVals map[string]string
	fallbackErr  error

	mu    sync.RWMutex
	cache map[string]string
}

type resolverConfig struct {
	logger       *zap.Logger
	projectID    string
	fallbackPath string
	client       secretManagerClient
	clientOpts   []option.ClientOption
}

// Option customises Resolver construction.
type Option func(*resolverConfig)

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *resolverConfig) { cfg.logger = logger }
}

// WithProject sets the project used by short references such as secret://name.
func WithProject(projectID string) Option {
	return func(cfg *resolverConfig) { cfg.projectID = strings.TrimSpace(projectID) }
}

// WithFallbackFile overrides the path to the local fallback secrets file.
func WithFallbackFile(path string) Option {
	return func(cfg *resolverConfig) { cfg.fallbackPath = strings.TrimSpace(path) }
}

// WithSecretManagerClient injects a preconfigured client (primarily for tests).
func WithSecretManagerClient(client secretManagerClient) Option {
	return func(cfg *resolverConfig) { cfg.client = client }
}

// WithClientOptions forwards Cloud client options when constructing the client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *resolverConfig) { cfg.clientOpts = append(cfg.clientOpts, opts...) }
}

// NewResolver builds a Resolver. A missing Secret Manager client is not fatal; the
// resolver then serves from the fallback file only.
func NewResolver(ctx context.Context, opts ...Option) *Resolver {
	cfg := resolverConfig{
		logger:       zap.NewNop(),
		fallbackPath: defaultFallbackPath,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	r := &Resolver{
		logger:       cfg.logger,
		projectID:    cfg.projectID,
		fallbackPath: cfg.fallbackPath,
		cache:        make(map[string]string),
	}

	switch {
	case cfg.client != nil:
		r.client = cfg.client
	case cfg.projectID != "":
		client, err := secretManagerClientFactory(ctx, cfg.clientOpts...)
		if err != nil {
			cfg.logger.Warn("secrets: secret manager client unavailable; operating in fallback mode", zap.Error(err))
		} else {
			r.client = client
			r.ownsClient = true
		}
	}
	return r
}

// Close releases the Secret Manager client when the resolver created it.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ResolveSecret returns the value behind ref.
func (r *Resolver) ResolveSecret(ctx context.Context, ref string) (string, error) {
	parsed, err := parseReference(ref)
	if err != nil {
		return "", err
	}

	ctx, span := observability.StartSpan(ctx, "secrets.Resolve", attribute.String("secret.name", parsed.Secret))
	defer span.End()

	if value, ok := r.cached(parsed.Name()); ok {
		return value, nil
	}

	project := parsed.Project
	if project == "" {
		project = r.projectID
	}

	if project != "" && r.client != nil {
		value, fetchErr := r.fetchRemote(ctx, project, parsed)
		if fetchErr == nil {
			r.store(parsed.Name(), value)
			return value, nil
		}
		if !isFallbackError(fetchErr) {
			span.RecordError(fetchErr)
			return "", fmt.Errorf("secrets: fetch failed for %s: %w", parsed.Name(), fetchErr)
		}
		r.logger.Debug("secrets: falling back to local secrets", zap.String("secret", parsed.Secret), zap.Error(fetchErr))
	}

	value, ok := r.lookupFallback(parsed)
	if !ok {
		return "", fmt.Errorf("secrets: no value found for %s", parsed.Name())
	}
	r.store(parsed.Name(), value)
	return value, nil
}

func (r *Resolver) cached(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.cache[key]
	return value, ok
}

func (r *Resolver) store(key, value string) {
	r.mu.Lock()
	r.cache[key] = value
	r.mu.Unlock()
}

func (r *Resolver) fetchRemote(ctx context.Context, project string, ref reference) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, ref.Secret, ref.version())
	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.GetPayload() == nil {
		return "", fmt.Errorf("secret manager returned empty payload for %s", name)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (r *Resolver) lookupFallback(ref reference) (string, bool) {
	r.fallbackOnce.Do(r.loadFallback)
	if r.fallbackErr != nil {
		r.logger.Debug("secrets: fallback load error", zap.Error(r.fallbackErr))
		return "", false
	}
	if value, ok := r.fallbackVals[ref.Name()]; ok {
		return value, true
	}
	value, ok := r.fallbackVals[ref.Secret]
	return value, ok
}

// loadFallback reads KEY=VALUE lines; keys are either full references or bare secret names.
func (r *Resolver) loadFallback() {
	r.fallbackVals = map[string]string{}
	if r.fallbackPath == "" {
		return
	}
	absPath, err := filepath.Abs(r.fallbackPath)
	if err != nil {
		absPath = r.fallbackPath
	}
	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		r.fallbackErr = fmt.Errorf("secrets: unable to open fallback file %s: %w", absPath, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if parsed, err := parseReference(key); err == nil {
			r.fallbackVals[parsed.Name()] = value
			continue
		}
		r.fallbackVals[key] = value
	}
	if err := scanner.Err(); err != nil {
		r.fallbackErr = fmt.Errorf("secrets: failed reading %s: %w", absPath, err)
	}
}

type reference struct {
	Project string
	Secret  string
	Version string
}

func (r reference) version() string {
	if r.Version == "" {
		return "latest"
	}
	return r.Version
}

// Name is the canonical cache key for the reference.
func (r reference) Name() string {
	return fmt.Sprintf("%s/%s@%s", r.Project, r.Secret, r.version())
}

// parseReference accepts secret://name, secret://name?version=3&project=p,
// and secret://projects/p/secrets/name[/versions/v]. sm:// is an alias.
func parseReference(ref string) (reference, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return reference{}, errors.New("secrets: empty reference")
	}
	if strings.HasPrefix(trimmed, "sm://") {
		trimmed = "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}

	path := strings.Trim(u.Host+u.Path, "/")
	out := reference{
		Project: strings.TrimSpace(u.Query().Get("project")),
		Version: strings.TrimSpace(u.Query().Get("version")),
	}

	segments := strings.Split(path, "/")
	switch {
	case len(segments) >= 4 && segments[0] == "projects" && segments[2] == "secrets":
		out.Project = segments[1]
		out.Secret = segments[3]
		if len(segments) == 6 && segments[4] == "versions" {
			out.Version = segments[5]
		} else if len(segments) != 4 {
			return reference{}, fmt.Errorf("secrets: malformed resource name in %q", ref)
		}
	default:
		out.Secret = path
	}
	if out.Secret == "" {
		return reference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	return out, nil
}

func isFallbackError(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded, codes.NotFound:
		return true
	default:
		return false
	}
}
