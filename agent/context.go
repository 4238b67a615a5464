package agent

import (
	"context"

	"github.com/earthmover/detect"
	"github.com/earthmover/service/docsearch"
	"github.com/earthmover/service/notify"
	"github.com/earthmover/service/tickets"
	"github.com/earthmover/service/warehouse"
)

// Context is the conversation state threaded through every role call.
type Context struct {
	Site        string
	EquipmentID string
	Hour        int
}

// RoleResult is one role's contribution to a turn.
type RoleResult struct {
	Response string
	Sources  []string
	Data     map[string]any
}

// Handler is one bound role capability. The orchestrator invokes handlers
// in table order for the resolved intent.
type Handler func(ctx context.Context, convCtx Context, message string) (RoleResult, error)

// Warehouse is the analytics surface the roles consume. Implemented by
// service/warehouse; every method degrades via its availability flag
// rather than returning an error.
type Warehouse interface {
	GhostCycleFeed(ctx context.Context, site string) ([]detect.GhostPrediction, bool)
	ChokePointFeed(ctx context.Context, site string) ([]detect.ChokePrediction, bool)
	TelemetrySnapshot(ctx context.Context, site string) ([]detect.TelemetryRecord, bool)
	ZoneTraffic(ctx context.Context, site string) ([]detect.ZoneMetric, bool)
	CycleTimeAggregates(ctx context.Context, site string) (warehouse.CycleStats, bool)
	FeatureImportance(ctx context.Context, model string, limit int) ([]warehouse.FeatureWeight, bool)
	ModelMetrics(ctx context.Context, model string) (map[string]float64, bool)
	FleetStatus(ctx context.Context, site string) (warehouse.FleetSummary, bool)
	OptimalCycleParams(ctx context.Context) ([]warehouse.HourlyParam, bool)
}

// DocSearcher retrieves documents for the historian. Implemented by
// service/docsearch.
type DocSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]docsearch.Document, error)
}

// Pager escalates critical alerts. Implemented by service/notify.
type Pager interface {
	Send(ctx context.Context, page notify.Page) error
}

// TicketFiler opens tracking issues for critical alerts. Implemented by
// service/tickets.
type TicketFiler interface {
	File(ctx context.Context, ticket tickets.Ticket) (string, error)
}
