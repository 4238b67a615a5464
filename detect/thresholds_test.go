package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/earthmover/internal/consts"
)

type fakeOptimizer struct {
	rows        []OptimizerRow
	unavailable bool
}

func (f fakeOptimizer) OptimalThresholds(ctx context.Context) ([]OptimizerRow, bool) {
	if f.unavailable {
		return nil, false
	}
	return f.rows, true
}

func TestOptimizerProvider_Unavailable_Defaults(t *testing.T) {
	provider := NewOptimizerProvider(fakeOptimizer{unavailable: true}, DefaultThresholds())

	set := provider.Thresholds(context.Background())
	assert.InDelta(t, 0.50, set.GhostCycleProbability, 1e-9)
	assert.InDelta(t, 0.60, set.ChokePointProbability, 1e-9)
}

func TestOptimizerProvider_OverlaysModelValues(t *testing.T) {
	provider := NewOptimizerProvider(fakeOptimizer{
		rows: []OptimizerRow{
			{ModelName: consts.ModelGhostCycleDetector, OptimalThreshold: 0.42},
		},
	}, DefaultThresholds())

	set := provider.Thresholds(context.Background())
	assert.InDelta(t, 0.42, set.GhostCycleProbability, 1e-9)
	// Models without an optimizer row keep their default.
	assert.InDelta(t, 0.60, set.ChokePointProbability, 1e-9)
}

func TestOptimizerProvider_IgnoresOutOfRangeAndUnknown(t *testing.T) {
	provider := NewOptimizerProvider(fakeOptimizer{
		rows: []OptimizerRow{
			{ModelName: consts.ModelGhostCycleDetector, OptimalThreshold: 1.7},
			{ModelName: "SOME_FUTURE_MODEL", OptimalThreshold: 0.3},
		},
	}, DefaultThresholds())

	set := provider.Thresholds(context.Background())
	assert.InDelta(t, 0.50, set.GhostCycleProbability, 1e-9)
	assert.InDelta(t, 0.60, set.ChokePointProbability, 1e-9)
}

func TestDefaultThresholds_ProbabilityRange(t *testing.T) {
	set := DefaultThresholds()
	assert.GreaterOrEqual(t, set.GhostCycleProbability, 0.0)
	assert.LessOrEqual(t, set.GhostCycleProbability, 1.0)
	assert.GreaterOrEqual(t, set.ChokePointProbability, 0.0)
	assert.LessOrEqual(t, set.ChokePointProbability, 1.0)
}
