package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/earthmover/internal/consts"
)

const (
	searchResultLimit = 5
	featureLimit      = 5
	excerptMaxLen     = 200
)

// Historian retrieves institutional knowledge: safety plans and
// geotechnical reports via document search, plus ML model explanations and
// warehouse aggregates.
type Historian struct {
	docs DocSearcher
	wh   Warehouse
}

func NewHistorian(docs DocSearcher, wh Warehouse) *Historian {
	return &Historian{docs: docs, wh: wh}
}

func (h *Historian) Name() string {
	return consts.RoleNameHistorian
}

// Search runs a document search turn. Sources are the matched document
// titles.
func (h *Historian) Search(ctx context.Context, convCtx Context, message string) (RoleResult, error) {
	if h.docs == nil {
		return RoleResult{Response: "Document search is not configured for this deployment."}, nil
	}

	docs, err := h.docs.Search(ctx, message, searchResultLimit)
	if err != nil {
		return RoleResult{}, fmt.Errorf("search documents: %w", err)
	}

	if len(docs) == 0 {
		return RoleResult{Response: "No relevant documents found. Try rephrasing your search."}, nil
	}

	parts := []string{fmt.Sprintf("Found %d relevant documents:", len(docs))}
	sources := make([]string, 0, len(docs))
	for i, doc := range docs {
		if i >= 3 {
			break
		}
		excerpt := doc.Content
		if len(excerpt) > excerptMaxLen {
			excerpt = excerpt[:excerptMaxLen] + "..."
		}
		parts = append(parts, fmt.Sprintf("**%d. %s** (%s, site %s, relevance %.2f)\n%s",
			i+1, doc.Title, doc.Type, doc.Site, doc.Relevance, excerpt))
		sources = append(sources, doc.Title)
	}

	return RoleResult{
		Response: strings.Join(parts, "\n\n"),
		Sources:  sources,
		Data:     map[string]any{"documents": docs},
	}, nil
}

// ExplainModel explains whichever ML model the message refers to, with
// SHAP feature importance and performance metrics from the warehouse.
func (h *Historian) ExplainModel(ctx context.Context, convCtx Context, message string) (RoleResult, error) {
	model, desc := modelForMessage(message)

	parts := []string{"**ML Model Explanations**", fmt.Sprintf("### %s Model", desc)}

	features, featuresOK := h.wh.FeatureImportance(ctx, model, featureLimit)
	if featuresOK && len(features) > 0 {
		parts = append(parts, "**Top Predictive Features (SHAP Analysis)**:")
		for _, feat := range features {
			direction := "decreases risk"
			if feat.Direction == "positive" {
				direction = "increases risk"
			}
			parts = append(parts, fmt.Sprintf("- **%s**: importance %.3f (%s)",
				feat.Feature, feat.Importance, direction))
		}
	}

	metricsByName, metricsOK := h.wh.ModelMetrics(ctx, model)
	if metricsOK && len(metricsByName) > 0 {
		parts = append(parts, "**Model Performance**:")
		for _, name := range sortedKeys(metricsByName) {
			parts = append(parts, fmt.Sprintf("- %s: %.4f", name, metricsByName[name]))
		}
	}

	if !featuresOK && !metricsOK {
		slog.Warn("agent.historian.explain_degraded", "model", model)
		parts = append(parts, "Model explanation data is currently unavailable.")
	}

	return RoleResult{
		Response: strings.Join(parts, "\n"),
		Sources:  []string{"ml.global_feature_importance", "ml.model_metrics"},
	}, nil
}

// Aggregates answers analytical questions from the cycle-event history.
func (h *Historian) Aggregates(ctx context.Context, convCtx Context, message string) (RoleResult, error) {
	stats, ok := h.wh.CycleTimeAggregates(ctx, convCtx.Site)
	if !ok {
		return RoleResult{
			Response: "I couldn't process that query. Try asking about fleet status, cycle times, or equipment efficiency.",
		}, nil
	}

	parts := []string{
		fmt.Sprintf("**Query Results - Site %s**", convCtx.Site),
		fmt.Sprintf("- **Average Cycle Time**: %.1f min", stats.AvgMinutes),
		fmt.Sprintf("- **Range**: %.1f - %.1f min", stats.MinMinutes, stats.MaxMinutes),
		fmt.Sprintf("- **Total Cycles**: %d", stats.TotalCycles),
		fmt.Sprintf("- **Total Volume**: %.0f yd3", stats.TotalVolume),
	}

	return RoleResult{
		Response: strings.Join(parts, "\n"),
		Sources:  []string{"raw.cycle_events"},
		Data:     map[string]any{"cycle_stats": stats},
	}, nil
}

func modelForMessage(message string) (model, desc string) {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "ghost") || strings.Contains(lower, "cycle"):
		return consts.ModelGhostCycleDetector, "Ghost Cycle Detection"
	case strings.Contains(lower, "choke") || strings.Contains(lower, "traffic"):
		return consts.ModelChokePointPredictor, "Choke Point Prediction"
	default:
		return consts.ModelCycleTimeOptimizer, "Cycle Time Optimization"
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
