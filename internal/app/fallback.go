package app

import (
	"context"

	"github.com/earthmover/detect"
	"github.com/earthmover/service/warehouse"
)

// unavailableWarehouse stands in when no warehouse service is configured.
// Every query reports unavailable, which pushes the detection engine onto
// its rule-based path and the roles onto their degraded texts.
type unavailableWarehouse struct{}

func (unavailableWarehouse) GhostCycleFeed(context.Context, string) ([]detect.GhostPrediction, bool) {
	return nil, false
}

func (unavailableWarehouse) ChokePointFeed(context.Context, string) ([]detect.ChokePrediction, bool) {
	return nil, false
}

func (unavailableWarehouse) TelemetrySnapshot(context.Context, string) ([]detect.TelemetryRecord, bool) {
	return nil, false
}

func (unavailableWarehouse) ZoneTraffic(context.Context, string) ([]detect.ZoneMetric, bool) {
	return nil, false
}

func (unavailableWarehouse) CycleTimeAggregates(context.Context, string) (warehouse.CycleStats, bool) {
	return warehouse.CycleStats{}, false
}

func (unavailableWarehouse) FeatureImportance(context.Context, string, int) ([]warehouse.FeatureWeight, bool) {
	return nil, false
}

func (unavailableWarehouse) ModelMetrics(context.Context, string) (map[string]float64, bool) {
	return nil, false
}

func (unavailableWarehouse) FleetStatus(context.Context, string) (warehouse.FleetSummary, bool) {
	return warehouse.FleetSummary{}, false
}

func (unavailableWarehouse) OptimalCycleParams(context.Context) ([]warehouse.HourlyParam, bool) {
	return nil, false
}
