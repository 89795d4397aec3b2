package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"shusmogames.com/site/internal/platform/observability"
)

const maxDocumentBytes = 8 << 20

// FileSource reads the static catalog document from disk on every call.
type FileSource struct {
	Path string
}

func (s FileSource) List(ctx context.Context) ([]Game, error) {
	_, span := observability.StartSpan(ctx, "catalog.FileSource.List", attribute.String("catalog.path", s.Path))
	defer span.End()

	f, err := os.Open(s.Path)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("catalog: open %s: %w", s.Path, err)
	}
	defer f.Close()
	return DecodeStatic(f)
}

// HTTPSource fetches the static catalog document over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns an HTTPSource with a bounded client.
func NewHTTPSource(url string) HTTPSource {
	return HTTPSource{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (s HTTPSource) List(ctx context.Context) ([]Game, error) {
	ctx, span := observability.StartSpan(ctx, "catalog.HTTPSource.List", attribute.String("catalog.url", s.URL))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("catalog: fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("catalog: fetch %s: unexpected status %d", s.URL, resp.StatusCode)
	}
	return DecodeStatic(resp.Body)
}

// DecodeStatic parses a games-data.json document and normalizes every record in order.
// Ids compare after normalization, so 1 and "1" collide and the document is rejected.
func DecodeStatic(r io.Reader) ([]Game, error) {
	var doc StaticDocument
	if err := json.NewDecoder(io.LimitReader(r, maxDocumentBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode document: %w", err)
	}
	games := make([]Game, 0, len(doc.Games))
	seen := make(map[string]int, len(doc.Games))
	for i, rec := range doc.Games {
		g := NormalizeStatic(rec)
		if g.ID != "" {
			if first, dup := seen[g.ID]; dup {
				return nil, fmt.Errorf("catalog: games[%d] and games[%d] share id %q: %w", first, i, g.ID, ErrDuplicateID)
			}
			seen[g.ID] = i
		}
		games = append(games, g)
	}
	return games, nil
}
