package warehouse

import (
	"context"
	"fmt"
	"strconv"

	"github.com/earthmover/detect"
)

// Typed query methods over the analytics schema. Each returns its records
// plus an availability flag; false means the store could not serve the
// query and callers should degrade rather than fail.

const ghostFeedSQL = `
SELECT equipment_id, gps_speed_mph, engine_load_pct, ghost_probability, estimated_fuel_waste_gal
FROM ml.ghost_cycle_predictions
WHERE site_id = $1
  AND is_ghost_cycle = TRUE
  AND ts >= NOW() - INTERVAL '1 hour'
ORDER BY ts DESC
LIMIT 20`

// GhostCycleFeed returns recent probabilistic ghost-cycle predictions.
func (s *Service) GhostCycleFeed(ctx context.Context, site string) ([]detect.GhostPrediction, bool) {
	res := s.Query(ctx, ghostFeedSQL, site)
	if res.Unavailable {
		return nil, false
	}

	preds := make([]detect.GhostPrediction, 0, len(res.Rows))
	for _, row := range res.Rows {
		preds = append(preds, detect.GhostPrediction{
			EquipmentID:           asString(row["equipment_id"]),
			SpeedMPH:              asFloat(row["gps_speed_mph"]),
			EngineLoadPct:         asFloat(row["engine_load_pct"]),
			Probability:           asFloat(row["ghost_probability"]),
			EstimatedFuelWasteGal: asFloat(row["estimated_fuel_waste_gal"]),
		})
	}
	return preds, true
}

const chokeFeedSQL = `
SELECT zone_name, zone_lat, zone_lng, choke_probability, predicted_wait_time_min, recommended_action
FROM ml.choke_point_predictions
WHERE site_id = $1
  AND choke_probability > 0.5
  AND predicted_onset_time BETWEEN NOW() AND NOW() + INTERVAL '30 minutes'
ORDER BY choke_probability DESC
LIMIT 5`

// ChokePointFeed returns choke points predicted for the next half hour.
func (s *Service) ChokePointFeed(ctx context.Context, site string) ([]detect.ChokePrediction, bool) {
	res := s.Query(ctx, chokeFeedSQL, site)
	if res.Unavailable {
		return nil, false
	}

	preds := make([]detect.ChokePrediction, 0, len(res.Rows))
	for _, row := range res.Rows {
		preds = append(preds, detect.ChokePrediction{
			ZoneName:          asString(row["zone_name"]),
			Latitude:          asFloat(row["zone_lat"]),
			Longitude:         asFloat(row["zone_lng"]),
			Probability:       asFloat(row["choke_probability"]),
			PredictedWaitMin:  asFloat(row["predicted_wait_time_min"]),
			RecommendedAction: asString(row["recommended_action"]),
		})
	}
	return preds, true
}

const telemetrySQL = `
SELECT DISTINCT ON (g.equipment_id)
       g.equipment_id, g.latitude, g.longitude, g.speed_mph,
       t.engine_load_percent, t.fuel_rate_gph, t.payload_tons
FROM raw.gps_breadcrumbs g
JOIN raw.equipment_telematics t
  ON g.equipment_id = t.equipment_id AND g.ts = t.ts
WHERE g.site_id = $1
ORDER BY g.equipment_id, g.ts DESC`

// TelemetrySnapshot returns the latest GPS plus telematics reading per
// equipment at a site.
func (s *Service) TelemetrySnapshot(ctx context.Context, site string) ([]detect.TelemetryRecord, bool) {
	res := s.Query(ctx, telemetrySQL, site)
	if res.Unavailable {
		return nil, false
	}

	records := make([]detect.TelemetryRecord, 0, len(res.Rows))
	for _, row := range res.Rows {
		records = append(records, detect.TelemetryRecord{
			EquipmentID:   asString(row["equipment_id"]),
			Latitude:      asFloat(row["latitude"]),
			Longitude:     asFloat(row["longitude"]),
			SpeedMPH:      asFloat(row["speed_mph"]),
			EngineLoadPct: asFloat(row["engine_load_percent"]),
			FuelRateGPH:   asFloat(row["fuel_rate_gph"]),
			PayloadTons:   asFloat(row["payload_tons"]),
		})
	}
	return records, true
}

const zoneTrafficSQL = `
SELECT ROUND(latitude::numeric, 3) AS zone_lat,
       ROUND(longitude::numeric, 3) AS zone_lng,
       COUNT(DISTINCT equipment_id) AS equipment_count,
       ROUND(AVG(speed_mph)::numeric, 1) AS avg_speed
FROM raw.gps_breadcrumbs
WHERE site_id = $1
  AND ts >= NOW() - INTERVAL '15 minutes'
GROUP BY 1, 2
HAVING COUNT(DISTINCT equipment_id) > 1
ORDER BY equipment_count DESC`

// ZoneTraffic returns current traffic density per zone.
func (s *Service) ZoneTraffic(ctx context.Context, site string) ([]detect.ZoneMetric, bool) {
	res := s.Query(ctx, zoneTrafficSQL, site)
	if res.Unavailable {
		return nil, false
	}

	zones := make([]detect.ZoneMetric, 0, len(res.Rows))
	for _, row := range res.Rows {
		lat := asFloat(row["zone_lat"])
		lng := asFloat(row["zone_lng"])
		zones = append(zones, detect.ZoneMetric{
			ZoneName:       fmt.Sprintf("zone %.3f,%.3f", lat, lng),
			Latitude:       lat,
			Longitude:      lng,
			EquipmentCount: asInt(row["equipment_count"]),
			AvgSpeedMPH:    asFloat(row["avg_speed"]),
		})
	}
	return zones, true
}

const optimalThresholdsSQL = `
SELECT model_name, optimal_threshold
FROM ml.profit_curve_thresholds`

// OptimalThresholds reads the profit-curve optimizer output. Implements
// detect.OptimizerSource.
func (s *Service) OptimalThresholds(ctx context.Context) ([]detect.OptimizerRow, bool) {
	res := s.Query(ctx, optimalThresholdsSQL)
	if res.Unavailable {
		return nil, false
	}

	rows := make([]detect.OptimizerRow, 0, len(res.Rows))
	for _, row := range res.Rows {
		rows = append(rows, detect.OptimizerRow{
			ModelName:        asString(row["model_name"]),
			OptimalThreshold: asFloat(row["optimal_threshold"]),
		})
	}
	return rows, true
}

// CycleStats aggregates cycle-time history for a site.
type CycleStats struct {
	AvgMinutes  float64
	MinMinutes  float64
	MaxMinutes  float64
	TotalCycles int
	TotalVolume float64
}

const cycleStatsSQL = `
SELECT ROUND(AVG(cycle_time_minutes)::numeric, 1) AS avg_cycle_time,
       ROUND(MIN(cycle_time_minutes)::numeric, 1) AS min_cycle_time,
       ROUND(MAX(cycle_time_minutes)::numeric, 1) AS max_cycle_time,
       COUNT(*) AS total_cycles,
       ROUND(SUM(load_volume_yd3)::numeric, 0) AS total_volume
FROM raw.cycle_events
WHERE site_id = $1
  AND cycle_time_minutes BETWEEN 5 AND 60`

// CycleTimeAggregates analyzes historical cycle times for a site.
func (s *Service) CycleTimeAggregates(ctx context.Context, site string) (CycleStats, bool) {
	res := s.Query(ctx, cycleStatsSQL, site)
	if res.Unavailable || len(res.Rows) == 0 {
		return CycleStats{}, false
	}

	row := res.Rows[0]
	return CycleStats{
		AvgMinutes:  asFloat(row["avg_cycle_time"]),
		MinMinutes:  asFloat(row["min_cycle_time"]),
		MaxMinutes:  asFloat(row["max_cycle_time"]),
		TotalCycles: asInt(row["total_cycles"]),
		TotalVolume: asFloat(row["total_volume"]),
	}, true
}

// FeatureWeight is one SHAP importance entry for a model.
type FeatureWeight struct {
	Feature    string
	Importance float64
	Rank       int
	Direction  string
}

const featureImportanceSQL = `
SELECT feature_name, shap_importance, importance_rank, feature_direction
FROM ml.global_feature_importance
WHERE model_name = $1
ORDER BY importance_rank
LIMIT $2`

// FeatureImportance returns SHAP feature importance for a model.
func (s *Service) FeatureImportance(ctx context.Context, model string, limit int) ([]FeatureWeight, bool) {
	res := s.Query(ctx, featureImportanceSQL, model, limit)
	if res.Unavailable {
		return nil, false
	}

	weights := make([]FeatureWeight, 0, len(res.Rows))
	for _, row := range res.Rows {
		weights = append(weights, FeatureWeight{
			Feature:    asString(row["feature_name"]),
			Importance: asFloat(row["shap_importance"]),
			Rank:       asInt(row["importance_rank"]),
			Direction:  asString(row["feature_direction"]),
		})
	}
	return weights, true
}

const modelMetricsSQL = `
SELECT metric_name, metric_value
FROM ml.model_metrics
WHERE model_name = $1`

// ModelMetrics returns performance metrics for a model keyed by name.
func (s *Service) ModelMetrics(ctx context.Context, model string) (map[string]float64, bool) {
	res := s.Query(ctx, modelMetricsSQL, model)
	if res.Unavailable {
		return nil, false
	}

	out := make(map[string]float64, len(res.Rows))
	for _, row := range res.Rows {
		out[asString(row["metric_name"])] = asFloat(row["metric_value"])
	}
	return out, true
}

// FleetSummary is today's activity for one site.
type FleetSummary struct {
	ActiveCount  int
	CyclesToday  int
	VolumeToday  float64
	AvgCycleTime float64
}

const fleetSummarySQL = `
SELECT COUNT(DISTINCT equipment_id) AS active_count,
       COUNT(*) AS cycles_today,
       ROUND(SUM(load_volume_yd3)::numeric, 0) AS volume_today,
       ROUND(AVG(cycle_time_minutes)::numeric, 1) AS avg_cycle_time
FROM raw.cycle_events
WHERE site_id = $1
  AND cycle_start::date = CURRENT_DATE`

// FleetStatus returns today's fleet summary for a site.
func (s *Service) FleetStatus(ctx context.Context, site string) (FleetSummary, bool) {
	res := s.Query(ctx, fleetSummarySQL, site)
	if res.Unavailable || len(res.Rows) == 0 {
		return FleetSummary{}, false
	}

	row := res.Rows[0]
	return FleetSummary{
		ActiveCount:  asInt(row["active_count"]),
		CyclesToday:  asInt(row["cycles_today"]),
		VolumeToday:  asFloat(row["volume_today"]),
		AvgCycleTime: asFloat(row["avg_cycle_time"]),
	}, true
}

// HourlyParam is the optimal cycle parameter set for one hour of day.
type HourlyParam struct {
	HourOfDay        int
	OptimalVolume    float64
	OptimalDistance  float64
	AchievedCycleMin float64
}

const optimalParamsSQL = `
SELECT hour_of_day, optimal_volume, optimal_distance, achieved_cycle_time
FROM construction_geo.optimal_cycle_params
ORDER BY hour_of_day`

// OptimalCycleParams returns the per-hour optimal cycle parameters.
func (s *Service) OptimalCycleParams(ctx context.Context) ([]HourlyParam, bool) {
	res := s.Query(ctx, optimalParamsSQL)
	if res.Unavailable {
		return nil, false
	}

	params := make([]HourlyParam, 0, len(res.Rows))
	for _, row := range res.Rows {
		params = append(params, HourlyParam{
			HourOfDay:        asInt(row["hour_of_day"]),
			OptimalVolume:    asFloat(row["optimal_volume"]),
			OptimalDistance:  asFloat(row["optimal_distance"]),
			AchievedCycleMin: asFloat(row["achieved_cycle_time"]),
		})
	}
	return params, true
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(n), 64)
		return f
	default:
		return 0
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	case []byte:
		i, _ := strconv.Atoi(string(n))
		return i
	default:
		return 0
	}
}
