package telemetry

import (
	"context"
	"fmt"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// ToolStats aggregates the recorded executions of one tool.
type ToolStats struct {
	Tool       string           `json:"tool"`
	Executions int64            `json:"executions"`
	ByStatus   map[string]int64 `json:"byStatus"`
	TotalMs    float64          `json:"totalMs"`
}

// StatsCollector is an in-process meter provider whose tool metrics can be
// read back as ToolStats. It suits short-lived processes with no exporter.
type StatsCollector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewStatsCollector creates a collector backed by a manual reader.
func NewStatsCollector() *StatsCollector {
	reader := sdkmetric.NewManualReader()
	return &StatsCollector{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// MeterProvider returns the provider to pass to WithMeterProvider.
func (c *StatsCollector) MeterProvider() *sdkmetric.MeterProvider {
	return c.provider
}

// Snapshot collects the current totals, sorted by tool name.
func (c *StatsCollector) Snapshot(ctx context.Context) ([]ToolStats, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	byTool := map[string]*ToolStats{}
	get := func(tool string) *ToolStats {
		s, ok := byTool[tool]
		if !ok {
			s = &ToolStats{Tool: tool, ByStatus: map[string]int64{}}
			byTool[tool] = s
		}
		return s
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != "tool.executions" {
					continue
				}
				for _, dp := range data.DataPoints {
					tool, _ := dp.Attributes.Value(AttrTool)
					status, _ := dp.Attributes.Value(AttrStatus)
					s := get(tool.AsString())
					s.Executions += dp.Value
					s.ByStatus[status.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				if m.Name != "tool.duration" {
					continue
				}
				for _, dp := range data.DataPoints {
					tool, _ := dp.Attributes.Value(AttrTool)
					get(tool.AsString()).TotalMs += dp.Sum
				}
			}
		}
	}

	out := make([]ToolStats, 0, len(byTool))
	for _, s := range byTool {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out, nil
}

// Shutdown flushes and stops the provider.
func (c *StatsCollector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}
