package secrets

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResolveCachesRemoteSecret(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretClient()
	resource := "projects/test/secrets/firebase_api_key/versions/latest"
	client.values[resource] = "remote-secret"

	resolver := NewResolver(ctx,
		WithSecretManagerClient(client),
		WithProject("test"),
		WithLogger(zap.NewNop()),
		WithFallbackFile(""),
	)
	defer resolver.Close()

	for i := 0; i < 2; i++ {
		got, err := resolver.ResolveSecret(ctx, "secret://firebase_api_key")
		if err != nil {
			t.Fatalf("ResolveSecret returned error: %v", err)
		}
		if got != "remote-secret" {
			t.Fatalf("expected remote-secret, got %s", got)
		}
	}

	if calls := client.callCount(resource); calls != 1 {
		t.Fatalf("expected remote fetch once, got %d", calls)
	}
}

func TestResolveFullResourceName(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values["projects/other/secrets/session_hash/versions/3"] = "pinned"

	resolver := NewResolver(ctx, WithSecretManagerClient(client), WithProject("test"), WithFallbackFile(""))

	got, err := resolver.ResolveSecret(ctx, "sm://projects/other/secrets/session_hash/versions/3")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if got != "pinned" {
		t.Fatalf("expected pinned, got %s", got)
	}
}

func TestResolveFallsBackWhenSecretManagerUnavailable(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	fallbackPath := filepath.Join(dir, ".secrets.local")
	content := "# local\nsecret://firebase_api_key=local-secret\nsession_hash=local-hash\n"
	if err := os.WriteFile(fallbackPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}

	client := newFakeSecretClient()
	client.errors["projects/test/secrets/firebase_api_key/versions/latest"] = status.Error(codes.PermissionDenied, "denied")
	client.errors["projects/test/secrets/session_hash/versions/latest"] = status.Error(codes.Unavailable, "down")

	resolver := NewResolver(ctx, WithSecretManagerClient(client), WithProject("test"), WithFallbackFile(fallbackPath))

	got, err := resolver.ResolveSecret(ctx, "secret://firebase_api_key")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if got != "local-secret" {
		t.Fatalf("expected local-secret, got %s", got)
	}

	got, err = resolver.ResolveSecret(ctx, "secret://session_hash")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if got != "local-hash" {
		t.Fatalf("expected local-hash, got %s", got)
	}
}

func TestResolvePropagatesHardFailures(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.errors["projects/test/secrets/broken/versions/latest"] = status.Error(codes.InvalidArgument, "bad")

	resolver := NewResolver(ctx, WithSecretManagerClient(client), WithProject("test"), WithFallbackFile(""))
	if _, err := resolver.ResolveSecret(ctx, "secret://broken"); err == nil {
		t.Fatalf("expected error for invalid argument")
	}
}

func TestResolveWithoutProjectUsesFallbackOnly(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()

	resolver := NewResolver(ctx, WithSecretManagerClient(client), WithFallbackFile(""))
	if _, err := resolver.ResolveSecret(ctx, "secret://anything"); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if calls := client.callCount("projects//secrets/anything/versions/latest"); calls != 0 {
		t.Fatalf("expected no remote call without a project, got %d", calls)
	}
}

func TestParseReference(t *testing.T) {
	cases := []struct {
		in      string
		want    reference
		wantErr bool
	}{
		{in: "secret://name", want: reference{Secret: "name"}},
		{in: "secret://name?version=2&project=p", want: reference{Project: "p", Secret: "name", Version: "2"}},
		{in: "sm://projects/p/secrets/name", want: reference{Project: "p", Secret: "name"}},
		{in: "secret://projects/p/secrets/name/versions/7", want: reference{Project: "p", Secret: "name", Version: "7"}},
		{in: "secret://projects/p/secrets/name/oops", wantErr: true},
		{in: "https://example.com", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseReference(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %+v want %+v", tc.in, got, tc.want)
		}
	}
}

type fakeSecretClient struct {
	mu     sync.Mutex
	values map[string]string
	errors map[string]error
	calls  map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{
		values: make(map[string]string),
		errors: make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.GetName()]++
	if err, ok := f.errors[req.GetName()]; ok {
		return nil, err
	}
	value, ok := f.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "missing")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (f *fakeSecretClient) Close() error { return nil }

func (f *fakeSecretClient) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}
