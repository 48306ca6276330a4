// Package client calls the LiftLog REST API. It backs the liftctl CLI and
// remote MCP mode, where the binary runs locally (stdio) but the tracker
// lives in a daemon elsewhere.
package client

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

	"github.com/claude/liftlog/internal/models"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Path, e.Status, strings.TrimSpace(e.Body))
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// Client talks to one LiftLog daemon.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client targeting baseURL. apiKey may be empty when the
// daemon runs without one.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode %s: %w", path, err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, Status: resp.StatusCode, Body: errorMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

// errorMessage extracts the "error" field of a JSON error body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return string(body)
}

// State returns the live session view.
func (c *Client) State(ctx context.Context) (models.SessionView, error) {
	var v models.SessionView
	err := c.do(ctx, http.MethodGet, "/api/v1/state", nil, nil, &v)
	return v, err
}

// CurrentSession is State under the name the MCP data source uses.
func (c *Client) CurrentSession(ctx context.Context) (models.SessionView, error) {
	return c.State(ctx)
}

func (c *Client) ListWorkouts(ctx context.Context) ([]models.TemplateSummary, error) {
	var out []models.TemplateSummary
	err := c.do(ctx, http.MethodGet, "/api/v1/workouts", nil, nil, &out)
	return out, err
}

func (c *Client) Workout(ctx context.Context, id string) (models.WorkoutTemplate, error) {
	var out models.WorkoutTemplate
	err := c.do(ctx, http.MethodGet, "/api/v1/workouts/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateWorkout(ctx context.Context, tmpl models.WorkoutTemplate) (models.WorkoutTemplate, error) {
	var out models.WorkoutTemplate
	err := c.do(ctx, http.MethodPost, "/api/v1/workouts", nil, tmpl, &out)
	return out, err
}

func (c *Client) UpdateWorkout(ctx context.Context, tmpl models.WorkoutTemplate) (models.WorkoutTemplate, error) {
	var out models.WorkoutTemplate
	err := c.do(ctx, http.MethodPut, "/api/v1/workouts/"+url.PathEscape(tmpl.ID), nil, tmpl, &out)
	return out, err
}

func (c *Client) DeleteWorkout(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/workouts/"+url.PathEscape(id), nil, nil, nil)
}

// QueryHistory returns completed sessions in [start, end], optionally for
// one template.
func (c *Client) QueryHistory(ctx context.Context, start, end time.Time, templateID string) ([]models.CompletedSession, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	if templateID != "" {
		params.Set("template", templateID)
	}
	var out []models.CompletedSession
	err := c.do(ctx, http.MethodGet, "/api/v1/history", params, nil, &out)
	return out, err
}

// GetLastSession returns the newest completed session of a template, or nil
// when it has none.
func (c *Client) GetLastSession(ctx context.Context, templateID string) (*models.CompletedSession, error) {
	var out models.CompletedSession
	err := c.do(ctx, http.MethodGet, "/api/v1/workouts/"+url.PathEscape(templateID)+"/last-session", nil, nil, &out)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Activate replaces any active session with a fresh one of the template.
func (c *Client) Activate(ctx context.Context, templateID string) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/session", map[string]any{"templateId": templateID})
}

func (c *Client) Start(ctx context.Context) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/session/start", nil)
}

func (c *Client) Pause(ctx context.Context) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/session/pause", nil)
}

func (c *Client) Cancel(ctx context.Context) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodDelete, "/api/v1/session", nil)
}

// Finish completes the active session and returns its history record.
func (c *Client) Finish(ctx context.Context) (models.CompletedSession, error) {
	var out models.CompletedSession
	err := c.do(ctx, http.MethodPost, "/api/v1/session/finish", nil, nil, &out)
	return out, err
}

// MarkSet toggles one set of an exercise.
func (c *Client) MarkSet(ctx context.Context, exerciseID string, set int) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/session/sets", map[string]any{
		"exerciseId": exerciseID,
		"set":        set,
	})
}

// AdjustReps moves a set's reps by +1 or -1.
func (c *Client) AdjustReps(ctx context.Context, exerciseID string, set, delta int) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/session/reps", map[string]any{
		"exerciseId": exerciseID,
		"set":        set,
		"delta":      delta,
	})
}

func (c *Client) SetTimer(ctx context.Context, seconds int) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodPut, "/api/v1/session/timer", map[string]any{"seconds": seconds})
}

func (c *Client) StartRest(ctx context.Context, kind models.RestType, seconds int) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/rest", map[string]any{
		"type":    kind,
		"seconds": seconds,
	})
}

func (c *Client) SkipRest(ctx context.Context) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodDelete, "/api/v1/rest", nil)
}

// Lifecycle sends a "foreground" or "background" signal.
func (c *Client) Lifecycle(ctx context.Context, state string) (models.SessionView, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/lifecycle", map[string]any{"state": state})
}

func (c *Client) sessionCall(ctx context.Context, method, path string, body any) (models.SessionView, error) {
	var v models.SessionView
	err := c.do(ctx, method, path, nil, body, &v)
	return v, err
}
