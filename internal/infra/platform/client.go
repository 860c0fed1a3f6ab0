// Package platform reads learning activity from the study platform backend.
// The backend owns roadmaps and doubts; xpd only needs their counts.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/studyplatform/xpd/internal/domain"
	"github.com/studyplatform/xpd/internal/infra/metrics"
)

// maxBody bounds how much of a response body is read.
const maxBody = 4 << 20

// envelope is the backend's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the platform API with the user's bearer token.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL (e.g. "http://localhost:8080/api").
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Roadmaps fetches every roadmap owned by the token's user.
func (c *Client) Roadmaps(ctx context.Context, token string) ([]domain.RoadmapSummary, error) {
	var out []domain.RoadmapSummary
	if err := c.get(ctx, token, "/roadmaps", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.RoadmapSummary{}
	}
	return out, nil
}

// Insights fetches the doubt analytics summary. A null payload yields nil.
func (c *Client) Insights(ctx context.Context, token string) (*domain.LearningInsights, error) {
	var out *domain.LearningInsights
	if err := c.get(ctx, token, "/doubts/insights", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot fetches roadmaps and insights concurrently. Either failure fails
// the whole snapshot; callers fall back to domain.EmptySnapshot.
func (c *Client) Snapshot(ctx context.Context, token string) (domain.ActivitySnapshot, error) {
	start := time.Now()
	var snap domain.ActivitySnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.Roadmaps(gctx, token)
		snap.Roadmaps = r
		return err
	})
	g.Go(func() error {
		in, err := c.Insights(gctx, token)
		snap.Insights = in
		return err
	})

	err := g.Wait()
	metrics.SnapshotLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SnapshotFailures.Inc()
		return domain.ActivitySnapshot{}, fmt.Errorf("%w: %v", domain.ErrSnapshotUnavailable, err)
	}
	return snap, nil
}

// Ping checks that the backend answers at all. Any HTTP status counts as up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/roadmaps", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, token, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if !env.Success {
		return fmt.Errorf("GET %s: %s", path, env.Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

// ─── Request IDs ────────────────────────────────────────────────────────────

type requestIDKey struct{}

// WithRequestID tags outbound calls made with ctx with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
