package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/earthmover/internal/consts"
	"github.com/earthmover/internal/metrics"
)

const (
	// A ghost cycle burns roughly this fraction of the nominal fuel rate
	// with no productive output.
	ghostWasteFraction = 0.4

	// Elapsed duration assumed for rule-based waste estimates, in hours.
	detectionWindowHours = 1.0

	// Predicted queue delay per truck in a congested zone, in minutes.
	chokeWaitPerTruckMin = 2.5

	// Probability above which a model-sourced alert escalates to CRITICAL.
	criticalProbability = 0.7
)

// Input is the already-resolved data for one detection pass. Callers
// collapse unavailable feeds to empty slices; the engine branches on data
// presence, never on errors.
type Input struct {
	Telemetry []TelemetryRecord
	Zones     []ZoneMetric
	GhostFeed []GhostPrediction
	ChokeFeed []ChokePrediction
}

// Engine evaluates telemetry and model predictions into alerts.
//
// For each anomaly class the engine runs exactly one of two paths per pass:
// the probabilistic feed when it is non-empty, or the rule-based fallback
// when the feed is empty. A non-empty feed whose records all fall below
// threshold produces zero alerts; it does not trigger the fallback.
type Engine struct {
	provider ThresholdProvider
}

func NewEngine(provider ThresholdProvider) *Engine {
	return &Engine{provider: provider}
}

// Evaluate runs one detection pass for a site.
func (e *Engine) Evaluate(ctx context.Context, site string, in Input) Assessment {
	set := e.provider.Thresholds(ctx)

	var alerts []Alert
	alerts = append(alerts, e.detectGhostCycles(site, in, set)...)
	alerts = append(alerts, e.detectChokePoints(site, in, set)...)

	var total float64
	for _, a := range alerts {
		if a.Kind == KindGhostCycle {
			total += a.CostImpact
		}
		metrics.DetectAlerts.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
	}

	status := StatusNormal
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			status = StatusCritical
			break
		}
		status = StatusAlert
	}

	slog.Info("detect.pass.complete",
		"site", site,
		"alerts", len(alerts),
		"status", string(status),
		"cost_impact", total,
	)

	return Assessment{
		Alerts:          alerts,
		OverallStatus:   status,
		TotalCostImpact: total,
		Summary:         summarize(alerts),
	}
}

func (e *Engine) detectGhostCycles(site string, in Input, set ThresholdSet) []Alert {
	if len(in.GhostFeed) > 0 {
		var alerts []Alert
		for _, pred := range in.GhostFeed {
			if pred.Probability < set.GhostCycleProbability {
				continue
			}
			severity := SeverityWarning
			if pred.Probability >= criticalProbability {
				severity = SeverityCritical
			}
			p := pred.Probability
			alerts = append(alerts, Alert{
				Kind:        KindGhostCycle,
				Severity:    severity,
				Confidence:  &p,
				EquipmentID: pred.EquipmentID,
				CostImpact:  pred.EstimatedFuelWasteGal * set.FuelCostPerGallon,
				Message: fmt.Sprintf("Ghost Cycle detected: %s moving at %.1f mph with only %.0f%% engine load",
					pred.EquipmentID, pred.SpeedMPH, pred.EngineLoadPct),
				Recommendation: "Verify equipment is performing productive work or reassign",
				Source:         consts.ModelGhostCycleDetector,
			})
		}
		return alerts
	}

	// Rule-based fallback: moving but under-loaded.
	metrics.DetectFallback.WithLabelValues(string(KindGhostCycle)).Inc()
	slog.Debug("detect.pass.fallback", "kind", string(KindGhostCycle), "site", site)

	var alerts []Alert
	for _, rec := range in.Telemetry {
		if rec.SpeedMPH <= set.GhostSpeedMinMPH || rec.EngineLoadPct >= set.GhostLoadMaxPct {
			continue
		}
		wasteGal := rec.FuelRateGPH * ghostWasteFraction * detectionWindowHours
		alerts = append(alerts, Alert{
			Kind:        KindGhostCycle,
			Severity:    SeverityWarning,
			EquipmentID: rec.EquipmentID,
			CostImpact:  wasteGal * set.FuelCostPerGallon,
			Message: fmt.Sprintf("Ghost Cycle detected: %s moving at %.1f mph with only %.0f%% engine load",
				rec.EquipmentID, rec.SpeedMPH, rec.EngineLoadPct),
			Recommendation: "Verify equipment is performing productive work or reassign",
			Source:         consts.SourceRuleBased,
		})
	}
	return alerts
}

func (e *Engine) detectChokePoints(site string, in Input, set ThresholdSet) []Alert {
	if len(in.ChokeFeed) > 0 {
		var alerts []Alert
		for _, pred := range in.ChokeFeed {
			if pred.Probability < set.ChokePointProbability {
				continue
			}
			severity := SeverityWarning
			if pred.Probability >= criticalProbability {
				severity = SeverityCritical
			}
			p := pred.Probability
			recommendation := pred.RecommendedAction
			if recommendation == "" {
				recommendation = "Divert incoming trucks to alternate route"
			}
			alerts = append(alerts, Alert{
				Kind:       KindChokePoint,
				Severity:   severity,
				Confidence: &p,
				Zone:       pred.ZoneName,
				Message: fmt.Sprintf("Choke Point forming: %s - %.0f%% probability, ~%.0f min delay",
					pred.ZoneName, pred.Probability*100, pred.PredictedWaitMin),
				Recommendation: recommendation,
				Source:         consts.ModelChokePointPredictor,
			})
		}
		return alerts
	}

	// Rule-based fallback: dense and slow.
	metrics.DetectFallback.WithLabelValues(string(KindChokePoint)).Inc()
	slog.Debug("detect.pass.fallback", "kind", string(KindChokePoint), "site", site)

	var alerts []Alert
	for _, zone := range in.Zones {
		if zone.AvgSpeedMPH >= set.ChokeSpeedMaxMPH || zone.EquipmentCount <= set.ChokeDensityMin {
			continue
		}
		alerts = append(alerts, Alert{
			Kind:     KindChokePoint,
			Severity: SeverityWarning,
			Zone:     zone.ZoneName,
			Message: fmt.Sprintf("Choke Point forming: %s - %d trucks, avg speed %.1f mph",
				zone.ZoneName, zone.EquipmentCount, zone.AvgSpeedMPH),
			Recommendation: fmt.Sprintf("Divert incoming trucks to alternate route (~%.0f min predicted wait)",
				float64(zone.EquipmentCount)*chokeWaitPerTruckMin),
			Source: consts.SourceRuleBased,
		})
	}
	return alerts
}

func summarize(alerts []Alert) string {
	var ghosts, chokes int
	var waste float64
	for _, a := range alerts {
		switch a.Kind {
		case KindGhostCycle:
			ghosts++
			waste += a.CostImpact
		case KindChokePoint:
			chokes++
		}
	}

	var parts []string
	if ghosts > 0 {
		parts = append(parts, fmt.Sprintf("%d Ghost Cycle(s) detected - estimated $%.2f/hr fuel waste", ghosts, waste))
	}
	if chokes > 0 {
		parts = append(parts, fmt.Sprintf("%d Choke Point(s) forming", chokes))
	}
	if len(parts) == 0 {
		return "All equipment operating normally"
	}
	return strings.Join(parts, " | ")
}
