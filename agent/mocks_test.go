package agent

import (
	"context"
	"sync"

	"github.com/earthmover/detect"
	"github.com/earthmover/service/docsearch"
	"github.com/earthmover/service/notify"
	"github.com/earthmover/service/tickets"
	"github.com/earthmover/service/warehouse"
)

// fakeWarehouse satisfies Warehouse with canned data. The availability of
// each feed follows whether its field was populated unless forced off via
// the unavailable set.
type fakeWarehouse struct {
	ghostFeed []detect.GhostPrediction
	chokeFeed []detect.ChokePrediction
	telemetry []detect.TelemetryRecord
	zones     []detect.ZoneMetric
	stats     warehouse.CycleStats
	statsOK   bool
	features  []warehouse.FeatureWeight
	metricMap map[string]float64
	fleet     warehouse.FleetSummary
	fleetOK   bool
	params    []warehouse.HourlyParam

	unavailable map[string]bool
}

func (f *fakeWarehouse) avail(feed string) bool {
	return !f.unavailable[feed]
}

func (f *fakeWarehouse) GhostCycleFeed(ctx context.Context, site string) ([]detect.GhostPrediction, bool) {
	if !f.avail("ghost") {
		return nil, false
	}
	return f.ghostFeed, true
}

func (f *fakeWarehouse) ChokePointFeed(ctx context.Context, site string) ([]detect.ChokePrediction, bool) {
	if !f.avail("choke") {
		return nil, false
	}
	return f.chokeFeed, true
}

func (f *fakeWarehouse) TelemetrySnapshot(ctx context.Context, site string) ([]detect.TelemetryRecord, bool) {
	if !f.avail("telemetry") {
		return nil, false
	}
	return f.telemetry, true
}

func (f *fakeWarehouse) ZoneTraffic(ctx context.Context, site string) ([]detect.ZoneMetric, bool) {
	if !f.avail("zones") {
		return nil, false
	}
	return f.zones, true
}

func (f *fakeWarehouse) CycleTimeAggregates(ctx context.Context, site string) (warehouse.CycleStats, bool) {
	return f.stats, f.statsOK
}

func (f *fakeWarehouse) FeatureImportance(ctx context.Context, model string, limit int) ([]warehouse.FeatureWeight, bool) {
	if !f.avail("features") {
		return nil, false
	}
	return f.features, true
}

func (f *fakeWarehouse) ModelMetrics(ctx context.Context, model string) (map[string]float64, bool) {
	if !f.avail("metrics") {
		return nil, false
	}
	return f.metricMap, true
}

func (f *fakeWarehouse) FleetStatus(ctx context.Context, site string) (warehouse.FleetSummary, bool) {
	return f.fleet, f.fleetOK
}

func (f *fakeWarehouse) OptimalCycleParams(ctx context.Context) ([]warehouse.HourlyParam, bool) {
	if !f.avail("params") {
		return nil, false
	}
	return f.params, true
}

type fakeDocs struct {
	docs  []docsearch.Document
	err   error
	calls int
}

func (f *fakeDocs) Search(ctx context.Context, query string, limit int) ([]docsearch.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type fakePager struct {
	mu    sync.Mutex
	pages []notify.Page
	done  chan struct{}
}

func newFakePager(expect int) *fakePager {
	return &fakePager{done: make(chan struct{}, expect)}
}

func (f *fakePager) Send(ctx context.Context, page notify.Page) error {
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

type fakeFiler struct {
	mu      sync.Mutex
	tickets []tickets.Ticket
	done    chan struct{}
}

func newFakeFiler(expect int) *fakeFiler {
	return &fakeFiler{done: make(chan struct{}, expect)}
}

func (f *fakeFiler) File(ctx context.Context, ticket tickets.Ticket) (string, error) {
	f.mu.Lock()
	f.tickets = append(f.tickets, ticket)
	f.mu.Unlock()
	f.done <- struct{}{}
	return "OPS-101", nil
}
