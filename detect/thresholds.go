package detect

import (
	"context"
	"log/slog"

	"github.com/earthmover/internal/consts"
)

// ThresholdSet carries the decision thresholds for one detection pass.
// Probability fields are always in [0,1]; the remaining cutoffs back the
// legacy rule-based path and the fuel-cost model.
type ThresholdSet struct {
	GhostCycleProbability float64
	ChokePointProbability float64

	GhostSpeedMinMPH float64
	GhostLoadMaxPct  float64
	ChokeSpeedMaxMPH float64
	ChokeDensityMin  int

	FuelCostPerGallon float64
}

// DefaultThresholds returns the hard-coded threshold set used whenever the
// profit-curve optimizer is unavailable.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		GhostCycleProbability: 0.50,
		ChokePointProbability: 0.60,
		GhostSpeedMinMPH:      2.0,
		GhostLoadMaxPct:       30.0,
		ChokeSpeedMaxMPH:      5.0,
		ChokeDensityMin:       10,
		FuelCostPerGallon:     4.25,
	}
}

// ThresholdProvider resolves the threshold set for a detection pass.
// Implementations must degrade to defaults rather than fail.
type ThresholdProvider interface {
	Thresholds(ctx context.Context) ThresholdSet
}

// OptimizerRow is one profit-curve optimizer output record.
type OptimizerRow struct {
	ModelName        string
	OptimalThreshold float64
}

// OptimizerSource reads the optimizer output. The boolean reports
// availability; false means the source could not be reached.
type OptimizerSource interface {
	OptimalThresholds(ctx context.Context) ([]OptimizerRow, bool)
}

// StaticProvider always returns a fixed threshold set.
type StaticProvider struct {
	Set ThresholdSet
}

func (p StaticProvider) Thresholds(ctx context.Context) ThresholdSet {
	return p.Set
}

// OptimizerProvider resolves thresholds from a profit-curve optimizer,
// overlaying its per-model values on top of a default set. Thresholds are
// re-resolved on every call; freshness is preferred over caching.
type OptimizerProvider struct {
	source   OptimizerSource
	defaults ThresholdSet
}

func NewOptimizerProvider(source OptimizerSource, defaults ThresholdSet) *OptimizerProvider {
	return &OptimizerProvider{source: source, defaults: defaults}
}

func (p *OptimizerProvider) Thresholds(ctx context.Context) ThresholdSet {
	set := p.defaults

	rows, ok := p.source.OptimalThresholds(ctx)
	if !ok {
		slog.Warn("detect.thresholds.optimizer_unavailable")
		return set
	}

	for _, row := range rows {
		if row.OptimalThreshold < 0 || row.OptimalThreshold > 1 {
			slog.Warn("detect.thresholds.out_of_range",
				"model", row.ModelName,
				"value", row.OptimalThreshold,
			)
			continue
		}
		switch row.ModelName {
		case consts.ModelGhostCycleDetector:
			set.GhostCycleProbability = row.OptimalThreshold
		case consts.ModelChokePointPredictor:
			set.ChokePointProbability = row.OptimalThreshold
		}
	}

	return set
}
