package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earthmover/service/docsearch"
	"github.com/earthmover/service/warehouse"
)

func TestHistorian_Search_TruncatesExcerpts(t *testing.T) {
	long := strings.Repeat("bench stability assessment ", 20)
	docs := &fakeDocs{docs: []docsearch.Document{
		{Type: "geotech", Title: "Slope Report", Site: "BETA", Content: long, Relevance: 0.88},
	}}
	h := NewHistorian(docs, &fakeWarehouse{})

	result, err := h.Search(context.Background(), Context{Site: "BETA"}, "slope reports")
	require.NoError(t, err)

	assert.Contains(t, result.Response, "Found 1 relevant documents")
	assert.Contains(t, result.Response, "...")
	assert.NotContains(t, result.Response, long)
	assert.Equal(t, []string{"Slope Report"}, result.Sources)
}

func TestHistorian_Search_NoResults(t *testing.T) {
	h := NewHistorian(&fakeDocs{}, &fakeWarehouse{})

	result, err := h.Search(context.Background(), Context{}, "unicorns")
	require.NoError(t, err)
	assert.Contains(t, result.Response, "No relevant documents found")
	assert.Empty(t, result.Sources)
}

func TestHistorian_Search_NotConfigured(t *testing.T) {
	h := NewHistorian(nil, &fakeWarehouse{})

	result, err := h.Search(context.Background(), Context{}, "anything")
	require.NoError(t, err)
	assert.Contains(t, result.Response, "not configured")
}

func TestHistorian_ExplainModel(t *testing.T) {
	wh := &fakeWarehouse{
		features: []warehouse.FeatureWeight{
			{Feature: "gps_speed_mph", Importance: 0.412, Rank: 1, Direction: "positive"},
			{Feature: "engine_load_pct", Importance: 0.305, Rank: 2, Direction: "negative"},
		},
		metricMap: map[string]float64{"precision": 0.91, "recall": 0.87},
	}
	h := NewHistorian(&fakeDocs{}, wh)

	result, err := h.ExplainModel(context.Background(), Context{}, "explain the ghost cycle model")
	require.NoError(t, err)

	assert.Contains(t, result.Response, "Ghost Cycle Detection Model")
	assert.Contains(t, result.Response, "**gps_speed_mph**: importance 0.412 (increases risk)")
	assert.Contains(t, result.Response, "**engine_load_pct**: importance 0.305 (decreases risk)")
	assert.Contains(t, result.Response, "precision: 0.9100")
	assert.Equal(t, []string{"ml.global_feature_importance", "ml.model_metrics"}, result.Sources)
}

func TestHistorian_ExplainModel_Selection(t *testing.T) {
	tests := []struct {
		message string
		desc    string
	}{
		{"explain the ghost cycle model", "Ghost Cycle Detection"},
		{"what features predict choke points", "Choke Point Prediction"},
		{"explain the traffic model", "Choke Point Prediction"},
		{"explain the optimizer model", "Cycle Time Optimization"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			_, desc := modelForMessage(tt.message)
			assert.Equal(t, tt.desc, desc)
		})
	}
}

func TestHistorian_ExplainModel_Degraded(t *testing.T) {
	wh := &fakeWarehouse{unavailable: map[string]bool{"features": true, "metrics": true}}
	h := NewHistorian(&fakeDocs{}, wh)

	result, err := h.ExplainModel(context.Background(), Context{}, "explain the ghost model")
	require.NoError(t, err)
	assert.Contains(t, result.Response, "currently unavailable")
}

func TestHistorian_Aggregates(t *testing.T) {
	wh := &fakeWarehouse{
		stats:   warehouse.CycleStats{AvgMinutes: 25.1, MinMinutes: 16.3, MaxMinutes: 44.0, TotalCycles: 512, TotalVolume: 10240},
		statsOK: true,
	}
	h := NewHistorian(&fakeDocs{}, wh)

	result, err := h.Aggregates(context.Background(), Context{Site: "GAMMA"}, "how many cycles?")
	require.NoError(t, err)

	assert.Contains(t, result.Response, "Site GAMMA")
	assert.Contains(t, result.Response, "**Total Cycles**: 512")
	assert.Contains(t, result.Response, "10240 yd3")
}

func TestHistorian_Aggregates_Unavailable(t *testing.T) {
	h := NewHistorian(&fakeDocs{}, &fakeWarehouse{})

	result, err := h.Aggregates(context.Background(), Context{Site: "ALPHA"}, "count cycles")
	require.NoError(t, err)
	assert.Contains(t, result.Response, "I couldn't process that query")
}
