package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/client"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/tracker"
)

// DataSource abstracts the session state for MCP tools. Both *tracker.Tracker
// (local) and *client.Client (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]models.TemplateSummary, error)
	CurrentSession(ctx context.Context) (models.SessionView, error)
	QueryHistory(ctx context.Context, start, end time.Time, templateID string) ([]models.CompletedSession, error)
	GetLastSession(ctx context.Context, templateID string) (*models.CompletedSession, error)
}

// Compile-time checks: both backends satisfy DataSource.
var (
	_ DataSource = (*tracker.Tracker)(nil)
	_ DataSource = (*client.Client)(nil)
)
