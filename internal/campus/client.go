package campus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/campuschat/internal/types"
)

const (
	ProfilePath       = "/api/user/profile"
	DocumentsPath     = "/api/documents"
	UsersPath         = "/api/users"
	AnnouncementsPath = "/api/announcements"

	maxBodySize = 8 << 20
)

// FetchError is a failed collaborator fetch. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Config holds connection settings for the read-only portal endpoints.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Retry   *RetryPolicy
}

// Client reads profile, document, user and announcement data from the
// campus portal.
type Client struct {
	baseURL    string
	token      string
	retry      *RetryPolicy
	httpClient *http.Client
}

// New creates a collaborator client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retry := cfg.Retry
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		retry:      retry,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Authenticated reports whether a bearer token is configured.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, ProfilePath, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Documents(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := c.getJSON(ctx, DocumentsPath, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Users lists all portal users. The endpoint answers 403 for non-admins.
func (c *Client) Users(ctx context.Context) ([]UserSummary, error) {
	var users []UserSummary
	if err := c.getJSON(ctx, UsersPath, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) Announcements(ctx context.Context) ([]Announcement, error) {
	var anns []Announcement
	if err := c.getJSON(ctx, AnnouncementsPath, &anns); err != nil {
		return nil, err
	}
	return anns, nil
}

// FetchBundle loads everything the role's context may draw on, in
// parallel. It never fails: each endpoint that cannot be fetched is
// logged, recorded in Bundle.Failed and left nil.
func (c *Client) FetchBundle(ctx context.Context, role types.UserRole) *Bundle {
	bundle := &Bundle{}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(4)

	fetch := func(endpoint string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				slog.Warn("context fetch failed", "endpoint", endpoint, "role", string(role), "error", err)
				mu.Lock()
				bundle.Failed = append(bundle.Failed, endpoint)
				mu.Unlock()
			}
			return nil
		})
	}

	fetch(AnnouncementsPath, func(ctx context.Context) error {
		anns, err := c.Announcements(ctx)
		if err == nil {
			mu.Lock()
			bundle.Announcements = anns
			mu.Unlock()
		}
		return err
	})

	if role != types.RoleGuest && c.Authenticated() {
		fetch(ProfilePath, func(ctx context.Context) error {
			p, err := c.Profile(ctx)
			if err == nil {
				mu.Lock()
				bundle.Profile = p
				mu.Unlock()
			}
			return err
		})
	}

	if role == types.RoleAdmin && c.Authenticated() {
		fetch(DocumentsPath, func(ctx context.Context) error {
			docs, err := c.Documents(ctx)
			if err == nil {
				mu.Lock()
				bundle.Documents = docs
				mu.Unlock()
			}
			return err
		})
		fetch(UsersPath, func(ctx context.Context) error {
			users, err := c.Users(ctx)
			if err == nil {
				mu.Lock()
				bundle.Users = users
				mu.Unlock()
			}
			return err
		})
	}

	_ = g.Wait()
	return bundle
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.retry.Execute(ctx, func() error {
		return c.get(ctx, path, out)
	})
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &FetchError{Endpoint: path, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &FetchError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", detail(body))}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return &FetchError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// detail extracts FastAPI's {"detail": ...} message from an error body.
func detail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
	}
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty response"
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
