package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/earthmover/detect"
	"github.com/earthmover/internal/consts"
)

const (
	// Fleet-average haul cycle used when no better estimate exists.
	baseCycleMinutes = 22.0

	// Cycle times stretch during shift changes and the lunch surge.
	peakHourFactor = 1.15

	confidenceClear  = 0.85
	confidenceChoked = 0.70
)

var peakHours = map[int]bool{7: true, 8: true, 9: true, 13: true, 14: true}

// RouteAdvisor recommends routes around predicted choke points and
// estimates haul cycle times.
type RouteAdvisor struct {
	wh Warehouse
}

func NewRouteAdvisor(wh Warehouse) *RouteAdvisor {
	return &RouteAdvisor{wh: wh}
}

func (a *RouteAdvisor) Name() string {
	return consts.RoleNameRouteAdvisor
}

// Route runs a route-advisory turn: choke-point warnings, diversion
// recommendations and a cycle-time estimate for the current hour.
func (a *RouteAdvisor) Route(ctx context.Context, convCtx Context, message string) (RoleResult, error) {
	chokes, _ := a.wh.ChokePointFeed(ctx, convCtx.Site)

	parts := []string{"**Route Recommendations**"}

	if len(chokes) > 0 {
		parts = append(parts, fmt.Sprintf("**%d Choke Point(s) Predicted**", len(chokes)))
		for i, cp := range chokes {
			if i >= 3 {
				break
			}
			parts = append(parts, fmt.Sprintf("- **%s**: %d%% probability, ~%.0f min delay",
				cp.ZoneName, int(cp.Probability*100), cp.PredictedWaitMin))
		}

		parts = append(parts, "**Recommendations**:")
		for i, cp := range chokes {
			if i >= 2 {
				break
			}
			priority := "MEDIUM"
			if cp.Probability > 0.7 {
				priority = "HIGH"
			}
			action := cp.RecommendedAction
			if action == "" {
				action = "Use alternate route"
			}
			parts = append(parts, fmt.Sprintf("[%s] Avoid %s - %d%% choke probability. %s",
				priority, cp.ZoneName, int(cp.Probability*100), action))
		}

		parts = append(parts, fmt.Sprintf(
			"**Traffic Alert**: %d potential choke point(s) predicted in the next 30 minutes. The highest probability is at %s (%d%% confidence).",
			len(chokes), chokes[0].ZoneName, int(chokes[0].Probability*100)))
	} else {
		parts = append(parts, "No significant traffic issues predicted. Routes are operating normally.")
	}

	estimate := a.predictCycleTime(convCtx.Hour, chokes)
	parts = append(parts, fmt.Sprintf("**Predicted Cycle Time**: %.1f minutes (%d%% confidence)",
		estimate.PredictedMinutes, int(estimate.Confidence*100)))

	return RoleResult{
		Response: strings.Join(parts, "\n"),
		Sources:  []string{"CHOKE_POINT_PREDICTOR model", "CYCLE_TIME_OPTIMIZER model"},
		Data:     map[string]any{"choke_points": chokes, "predicted_cycle_time": estimate},
	}, nil
}

// CycleTime runs a cycle-time analysis turn: historical aggregates plus a
// deterministic prediction for the next cycle.
func (a *RouteAdvisor) CycleTime(ctx context.Context, convCtx Context, message string) (RoleResult, error) {
	parts := []string{"**Cycle Time Analysis**"}

	stats, statsOK := a.wh.CycleTimeAggregates(ctx, convCtx.Site)
	if statsOK {
		parts = append(parts,
			fmt.Sprintf("- **Average**: %.1f min", stats.AvgMinutes),
			fmt.Sprintf("- **Best**: %.1f min", stats.MinMinutes),
			fmt.Sprintf("- **Worst**: %.1f min", stats.MaxMinutes),
			fmt.Sprintf("- **Total Cycles**: %d", stats.TotalCycles),
		)
	} else {
		parts = append(parts, "Historical cycle data is currently unavailable.")
	}

	chokes, _ := a.wh.ChokePointFeed(ctx, convCtx.Site)
	estimate := a.predictCycleTime(convCtx.Hour, chokes)
	parts = append(parts, fmt.Sprintf("**Predicted Next Cycle**: %.1f min", estimate.PredictedMinutes))
	if estimate.ChokeDelayMin > 0 {
		parts = append(parts, fmt.Sprintf("   (includes %.0f min choke point delay)", estimate.ChokeDelayMin))
	}

	if params, ok := a.wh.OptimalCycleParams(ctx); ok && len(params) > 0 {
		best := params[0]
		for _, p := range params[1:] {
			if p.AchievedCycleMin < best.AchievedCycleMin {
				best = p
			}
		}
		if best.HourOfDay != convCtx.Hour {
			parts = append(parts, fmt.Sprintf("Optimal dispatch time is %d:00 (avg %.1f min cycles)",
				best.HourOfDay, best.AchievedCycleMin))
		}
	}

	return RoleResult{
		Response: strings.Join(parts, "\n"),
		Sources:  []string{"CYCLE_TIME_OPTIMIZER model"},
		Data:     map[string]any{"cycle_stats": stats, "predicted_cycle_time": estimate},
	}, nil
}

// CycleEstimate is a deterministic next-cycle prediction.
type CycleEstimate struct {
	PredictedMinutes float64
	BaseMinutes      float64
	ChokeDelayMin    float64
	Confidence       float64
}

func (a *RouteAdvisor) predictCycleTime(hour int, chokes []detect.ChokePrediction) CycleEstimate {
	base := baseCycleMinutes
	if peakHours[hour] {
		base *= peakHourFactor
	}

	var delay float64
	for _, cp := range chokes {
		delay += cp.PredictedWaitMin
	}

	confidence := confidenceClear
	if len(chokes) > 0 {
		confidence = confidenceChoked
	}

	return CycleEstimate{
		PredictedMinutes: base + delay,
		BaseMinutes:      base,
		ChokeDelayMin:    delay,
		Confidence:       confidence,
	}
}
