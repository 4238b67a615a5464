package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/earthmover/detect"
	"github.com/earthmover/internal/consts"
	"github.com/earthmover/service/notify"
	"github.com/earthmover/service/tickets"
)

const escalateTimeout = 10 * time.Second

// Monitor is the detection-facing role: it drives the watchdog engine over
// warehouse data and escalates critical findings to the on-call surface.
// pager and filer may be nil when those services are not configured.
type Monitor struct {
	wh     Warehouse
	engine *detect.Engine
	pager  Pager
	filer  TicketFiler
}

func NewMonitor(wh Warehouse, engine *detect.Engine, pager Pager, filer TicketFiler) *Monitor {
	return &Monitor{wh: wh, engine: engine, pager: pager, filer: filer}
}

func (m *Monitor) Name() string {
	return consts.RoleNameWatchdog
}

// GhostCycles runs a detection pass and renders the resulting alerts.
// Unavailable feeds collapse to empty input so the engine can fall back to
// its rule-based path.
func (m *Monitor) GhostCycles(ctx context.Context, convCtx Context, message string) (RoleResult, error) {
	assessment := m.evaluate(ctx, convCtx.Site)

	var parts []string
	if len(assessment.Alerts) == 0 {
		parts = append(parts, "No Ghost Cycles currently detected. All equipment appears to be operating productively.")
	} else {
		parts = append(parts, fmt.Sprintf("**Ghost Cycle Alert** - %d detected", len(assessment.Alerts)))
		for _, a := range assessment.Alerts {
			parts = append(parts, renderAlert(a))
		}
		parts = append(parts, fmt.Sprintf("**Total estimated cost impact**: $%.2f/hr", assessment.TotalCostImpact))
		parts = append(parts, fmt.Sprintf("**Status**: %s - %s", assessment.OverallStatus, assessment.Summary))
	}

	m.escalateCritical(convCtx.Site, assessment.Alerts)

	return RoleResult{
		Response: strings.Join(parts, "\n"),
		Sources:  []string{consts.ModelGhostCycleDetector + " model", "Real-time telemetry"},
		Data:     map[string]any{"assessment": assessment},
	}, nil
}

// FleetStatus renders today's fleet summary plus any active alerts.
func (m *Monitor) FleetStatus(ctx context.Context, convCtx Context, message string) (RoleResult, error) {
	parts := []string{fmt.Sprintf("**Fleet Status - Site %s**", convCtx.Site)}

	summary, ok := m.wh.FleetStatus(ctx, convCtx.Site)
	if ok {
		parts = append(parts,
			fmt.Sprintf("- **Active Equipment**: %d", summary.ActiveCount),
			fmt.Sprintf("- **Cycles Today**: %d", summary.CyclesToday),
			fmt.Sprintf("- **Volume Moved**: %.0f yd3", summary.VolumeToday),
			fmt.Sprintf("- **Avg Cycle Time**: %.1f min", summary.AvgCycleTime),
		)
	} else {
		parts = append(parts, "No status data available.")
	}

	assessment := m.evaluate(ctx, convCtx.Site)
	if len(assessment.Alerts) > 0 {
		parts = append(parts, fmt.Sprintf("**%d Active Alert(s)**", len(assessment.Alerts)))
		parts = append(parts, assessment.Summary)
	}

	return RoleResult{
		Response: strings.Join(parts, "\n"),
		Sources:  []string{"raw.cycle_events", "Real-time telemetry"},
		Data:     map[string]any{"summary": summary, "alerts": assessment.Alerts},
	}, nil
}

func (m *Monitor) evaluate(ctx context.Context, site string) detect.Assessment {
	ghostFeed, _ := m.wh.GhostCycleFeed(ctx, site)
	chokeFeed, _ := m.wh.ChokePointFeed(ctx, site)
	telemetry, _ := m.wh.TelemetrySnapshot(ctx, site)
	zones, _ := m.wh.ZoneTraffic(ctx, site)

	return m.engine.Evaluate(ctx, site, detect.Input{
		Telemetry: telemetry,
		Zones:     zones,
		GhostFeed: ghostFeed,
		ChokeFeed: chokeFeed,
	})
}

// escalateCritical pages and files a ticket for each critical alert.
// Escalation is fire-and-forget: failures are logged, never surfaced into
// the chat turn.
func (m *Monitor) escalateCritical(site string, alerts []detect.Alert) {
	for _, a := range alerts {
		if a.Severity != detect.SeverityCritical {
			continue
		}
		alert := a
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), escalateTimeout)
			defer cancel()

			if m.pager != nil {
				err := m.pager.Send(ctx, notify.Page{
					Summary:  fmt.Sprintf("[%s] %s %s: %s", site, alert.Severity, alert.Kind, alert.Message),
					Severity: "critical",
					DedupKey: fmt.Sprintf("%s-%s-%s", site, alert.Kind, alert.EquipmentID),
					Details: map[string]any{
						"equipment_id": alert.EquipmentID,
						"zone":         alert.Zone,
						"cost_impact":  alert.CostImpact,
						"source":       alert.Source,
					},
				})
				if err != nil {
					slog.Error("agent.monitor.page_failed", "error", err)
				}
			}

			if m.filer != nil {
				key, err := m.filer.File(ctx, tickets.Ticket{
					Summary: fmt.Sprintf("%s alert on %s at site %s", alert.Kind, alert.EquipmentID, site),
					Description: fmt.Sprintf("%s\n\nRecommendation: %s\nEstimated cost impact: $%.2f/hr\nSource: %s",
						alert.Message, alert.Recommendation, alert.CostImpact, alert.Source),
					Labels: []string{"earthmover", strings.ToLower(string(alert.Kind))},
				})
				if err != nil {
					slog.Error("agent.monitor.ticket_failed", "error", err)
				} else {
					slog.Info("agent.monitor.ticket_filed", "key", key)
				}
			}
		}()
	}
}

func renderAlert(a detect.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [%s] %s", a.Severity, a.Message)
	if a.Confidence != nil {
		fmt.Fprintf(&b, " (%.0f%% probability)", *a.Confidence*100)
	}
	if a.CostImpact > 0 {
		fmt.Fprintf(&b, " ~$%.2f/hr", a.CostImpact)
	}
	if a.Recommendation != "" {
		fmt.Fprintf(&b, "\n  %s", a.Recommendation)
	}
	return b.String()
}
