package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/earthmover/internal/consts"
	"github.com/earthmover/internal/metrics"
)

// TurnResult is the aggregated outcome of one chat turn.
type TurnResult struct {
	Response     string
	Sources      []string
	ContextDelta map[string]any
	Intent       Intent
}

// Orchestrator classifies each message and routes it through the bound
// role handlers. It owns one mutable conversation context; a per-turn site
// override mutates that context before classification and persists for
// subsequent turns.
type Orchestrator struct {
	mu       sync.Mutex
	convCtx  Context
	handlers map[Intent][]Handler
}

// NewOrchestrator binds the three roles into the static intent table.
func NewOrchestrator(historian *Historian, advisor *RouteAdvisor, monitor *Monitor, defaults Context) *Orchestrator {
	if defaults.Site == "" {
		defaults.Site = consts.DefaultSite
	}
	if defaults.Hour == 0 {
		defaults.Hour = consts.DefaultHour
	}

	o := &Orchestrator{convCtx: defaults}
	o.handlers = map[Intent][]Handler{
		IntentGhostCycle: {monitor.GhostCycles},
		IntentRoute:      {advisor.Route},
		IntentCycleTime:  {advisor.CycleTime},
		IntentMLExplain:  {historian.ExplainModel},
		IntentAnalytical: {historian.Aggregates},
		IntentSearch:     {historian.Search},
		IntentStatus:     {monitor.FleetStatus},
		IntentGeneral:    {generalHandler},
	}
	return o
}

// ProcessMessage runs one chat turn. A non-empty siteOverride replaces the
// conversation's site before the message is classified. Role errors are
// fatal for the turn; degraded data sources are not errors.
func (o *Orchestrator) ProcessMessage(ctx context.Context, message, siteOverride string) (TurnResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if siteOverride != "" {
		o.convCtx.Site = siteOverride
	}

	intent := Classify(message)
	start := time.Now()
	defer func() {
		metrics.ChatTurns.WithLabelValues(string(intent)).Inc()
		metrics.ChatTurnDuration.WithLabelValues(string(intent)).Observe(time.Since(start).Seconds())
	}()

	slog.Info("agent.turn.classified", "intent", string(intent), "site", o.convCtx.Site)

	result := TurnResult{Intent: intent, ContextDelta: map[string]any{}}
	var parts []string

	for _, handler := range o.handlers[intent] {
		roleResult, err := handler(ctx, o.convCtx, message)
		if err != nil {
			return TurnResult{}, err
		}
		parts = append(parts, roleResult.Response)
		result.Sources = append(result.Sources, roleResult.Sources...)
		if roleResult.Data != nil {
			result.ContextDelta[strings.ToLower(string(intent))] = roleResult.Data
		}
	}

	result.Response = strings.Join(parts, "\n\n")
	return result, nil
}

// Site returns the conversation's current site.
func (o *Orchestrator) Site() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.convCtx.Site
}

// SetSite switches the conversation to another site.
func (o *Orchestrator) SetSite(site string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.convCtx.Site = site
}

func generalHandler(ctx context.Context, convCtx Context, message string) (RoleResult, error) {
	return RoleResult{Response: consts.GeneralCapabilities}, nil
}
