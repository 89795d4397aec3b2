// Package identity signs administrators in with email and password through the
// Firebase Identity Toolkit REST API and renews their ID tokens through the Secure
// Token API.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the production Identity Toolkit base URL. The Auth emulator is served
// under http://<host>/identitytoolkit.googleapis.com.
const DefaultEndpoint = "https://identitytoolkit.googleapis.com"

// DefaultRefreshEndpoint is the production Secure Token base URL. The Auth emulator serves
// it under http://<host>/securetoken.googleapis.com.
const DefaultRefreshEndpoint = "https://securetoken.googleapis.com"

// ErrInvalidCredentials matches every rejection of the submitted email or password.
var ErrInvalidCredentials = errors.New("identity: invalid credentials")

// HTTPClient matches the subset of http.Client used by PasswordSigner.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Result is a successful sign-in.
type Result struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	LocalID      string `json:"localId"`
	ExpiresIn    string `json:"expiresIn"`
}

// Error carries the message returned by the identity service unchanged.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports client-side rejections as ErrInvalidCredentials.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidCredentials && e.Status >= 400 && e.Status < 500
}

// PasswordSigner calls accounts:signInWithPassword and exchanges refresh tokens.
type PasswordSigner struct {
	endpoint *url.URL
	refresh  *url.URL
	apiKey   string
	client   HTTPClient

	refreshRaw string
}

// Option customises the signer.
type Option func(*PasswordSigner)

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(s *PasswordSigner) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout bounds every sign-in call when the default client is used.
func WithTimeout(timeout time.Duration) Option {
	return func(s *PasswordSigner) {
		if timeout > 0 {
			s.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithRefreshEndpoint overrides the Secure Token base URL.
func WithRefreshEndpoint(endpoint string) Option {
	return func(s *PasswordSigner) {
		s.refreshRaw = strings.TrimSpace(endpoint)
	}
}

// NewPasswordSigner builds a signer for the given Web API key. An empty endpoint selects
// DefaultEndpoint.
func NewPasswordSigner(apiKey, endpoint string, opts ...Option) (*PasswordSigner, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("identity: api key is required")
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	parsed, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("identity: parse endpoint: %w", err)
	}
	s := &PasswordSigner{
		endpoint: parsed,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.refreshRaw == "" {
		s.refreshRaw = DefaultRefreshEndpoint
	}
	s.refresh, err = url.Parse(strings.TrimRight(s.refreshRaw, "/"))
	if err != nil {
		return nil, fmt.Errorf("identity: parse refresh endpoint: %w", err)
	}
	return s, nil
}

// SignIn exchanges email and password for an ID token.
func (s *PasswordSigner) SignIn(ctx context.Context, email, password string) (*Result, error) {
	body := map[string]any{
		"email":             strings.TrimSpace(email),
		"password":          password,
		"returnSecureToken": true,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("identity: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.signInURL(), &buf)
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("identity: decode response: %w", err)
	}
	if result.IDToken == "" {
		return nil, errors.New("identity: response carried no id token")
	}
	return &result, nil
}

// Refresh exchanges a refresh token for a new ID token. The returned Result carries the
// refresh token to use next time, which may differ from the one passed in.
func (s *PasswordSigner) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: "MISSING_REFRESH_TOKEN"}
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.keyedURL(s.refresh, "/v1/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var payload struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("identity: decode refresh response: %w", err)
	}
	if payload.IDToken == "" {
		return nil, errors.New("identity: refresh response carried no id token")
	}
	next := payload.RefreshToken
	if next == "" {
		next = refreshToken
	}
	return &Result{
		IDToken:      payload.IDToken,
		RefreshToken: next,
		LocalID:      payload.UserID,
		ExpiresIn:    payload.ExpiresIn,
	}, nil
}

func (s *PasswordSigner) signInURL() string {
	return s.keyedURL(s.endpoint, "/v1/accounts:signInWithPassword")
}

func (s *PasswordSigner) keyedURL(base *url.URL, path string) string {
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + path
	q := u.Query()
	q.Set("key", s.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return &Error{Status: resp.StatusCode, Message: payload.Error.Message}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}
