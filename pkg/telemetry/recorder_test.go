package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ag-ui/agent-tools/internal/testutil"
	"github.com/ag-ui/agent-tools/pkg/telemetry"
	"github.com/ag-ui/agent-tools/pkg/tools"
)

type harness struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	engine *tools.Engine
}

func newHarness(t *testing.T, registry *tools.Registry) *harness {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	recorder, err := telemetry.NewRecorder(
		telemetry.WithTracerProvider(tp),
		telemetry.WithMeterProvider(mp),
	)
	require.NoError(t, err)

	return &harness{
		spans:  spans,
		reader: reader,
		engine: testutil.NewEngine(registry, tools.WithRecorder(recorder)),
	}
}

func (h *harness) collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) string {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestRecorderSpans(t *testing.T) {
	registry, _ := testutil.NewRegistry(t)
	testutil.Echo(t, registry)
	testutil.Failing(t, registry, "broken", errors.New("broken tool"))
	h := newHarness(t, registry)
	ctx := context.Background()

	_, err := h.engine.ExecuteToolByName(ctx, "echo", map[string]interface{}{"text": "hi"}, tools.ExecutionOptions{
		Context: tools.ExecutionContext{TraceID: "trace-1", User: &tools.User{ID: "u-1"}},
	})
	require.NoError(t, err)
	_, err = h.engine.ExecuteToolByName(ctx, "broken", nil, tools.ExecutionOptions{})
	require.NoError(t, err)

	ended := h.spans.Ended()
	require.Len(t, ended, 2)

	ok := ended[0]
	assert.Equal(t, "tool.execute echo", ok.Name())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	assert.Equal(t, "echo", attrValue(ok.Attributes(), telemetry.AttrTool))
	assert.Equal(t, "success", attrValue(ok.Attributes(), telemetry.AttrStatus))
	assert.Equal(t, "plain", attrValue(ok.Attributes(), telemetry.AttrShape))
	assert.Equal(t, "trace-1", attrValue(ok.Attributes(), telemetry.AttrTraceID))
	assert.Equal(t, "u-1", attrValue(ok.Attributes(), telemetry.AttrUserID))
	assert.NotEmpty(t, attrValue(ok.Attributes(), telemetry.AttrExecutionID))
	assert.False(t, ok.EndTime().Before(ok.StartTime()))

	failed := ended[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "broken tool", failed.Status().Description)
	assert.Equal(t, "execution", attrValue(failed.Attributes(), telemetry.AttrErrorType))
	require.NotEmpty(t, failed.Events())
	assert.Equal(t, "exception", failed.Events()[0].Name)
}

func TestRecorderPartialSpan(t *testing.T) {
	registry, _ := testutil.NewRegistry(t)
	_, err := tools.DefineTool(tools.ToolConfig{
		Name:        "partial",
		Description: "Return a partial result",
		Parameters:  testutil.EmptyParams(),
	}, func(context.Context, map[string]interface{}) (interface{}, error) {
		return nil, tools.NewPartialError("only half")
	}, tools.WithRegistry(registry))
	require.NoError(t, err)
	h := newHarness(t, registry)

	_, err = h.engine.ExecuteToolByName(context.Background(), "partial", nil, tools.ExecutionOptions{})
	require.NoError(t, err)

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, "partial", attrValue(ended[0].Attributes(), telemetry.AttrStatus))
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "partial result", ended[0].Events()[0].Name)
}

func TestRecorderMetrics(t *testing.T) {
	registry, _ := testutil.NewRegistry(t)
	testutil.Echo(t, registry)
	testutil.Sleeping(t, registry, "slow", 20*time.Millisecond)
	h := newHarness(t, registry)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := h.engine.ExecuteToolByName(ctx, "echo", map[string]interface{}{"text": "x"}, tools.ExecutionOptions{})
		require.NoError(t, err)
	}
	_, err := h.engine.ExecuteToolByName(ctx, "missing", nil, tools.ExecutionOptions{})
	require.NoError(t, err)
	_, err = h.engine.ExecuteToolByName(ctx, "slow", nil, tools.ExecutionOptions{})
	require.NoError(t, err)

	rm := h.collect(t)

	executions, ok := findMetric(rm, "tool.executions")
	require.True(t, ok)
	sum, ok := executions.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		tool, _ := dp.Attributes.Value(telemetry.AttrTool)
		status, _ := dp.Attributes.Value(telemetry.AttrStatus)
		counts[tool.AsString()+"/"+status.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"echo/success":  3,
		"missing/error": 1,
		"slow/success":  1,
	}, counts)

	duration, ok := findMetric(rm, "tool.duration")
	require.True(t, ok)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	for _, dp := range hist.DataPoints {
		tool, _ := dp.Attributes.Value(telemetry.AttrTool)
		if tool.AsString() == "slow" {
			assert.Equal(t, uint64(1), dp.Count)
			assert.GreaterOrEqual(t, dp.Sum, float64(20))
		}
	}
}

func TestStatsCollector(t *testing.T) {
	registry, _ := testutil.NewRegistry(t)
	testutil.Echo(t, registry)
	testutil.Failing(t, registry, "broken", errors.New("broken tool"))

	stats := telemetry.NewStatsCollector()
	t.Cleanup(func() { _ = stats.Shutdown(context.Background()) })
	recorder, err := telemetry.NewRecorder(telemetry.WithMeterProvider(stats.MeterProvider()))
	require.NoError(t, err)
	engine := testutil.NewEngine(registry, tools.WithRecorder(recorder))

	ctx := context.Background()
	for _, name := range []string{"echo", "echo", "broken"} {
		_, err := engine.ExecuteToolByName(ctx, name, map[string]interface{}{"text": "x"}, tools.ExecutionOptions{})
		require.NoError(t, err)
	}
	_, err = engine.ExecuteToolByName(ctx, "echo", nil, tools.ExecutionOptions{})
	require.NoError(t, err)

	snapshot, err := stats.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	assert.Equal(t, "broken", snapshot[0].Tool)
	assert.Equal(t, int64(1), snapshot[0].Executions)
	assert.Equal(t, map[string]int64{"error": 1}, snapshot[0].ByStatus)

	assert.Equal(t, "echo", snapshot[1].Tool)
	assert.Equal(t, int64(3), snapshot[1].Executions)
	assert.Equal(t, map[string]int64{"success": 2, "error": 1}, snapshot[1].ByStatus)
	assert.GreaterOrEqual(t, snapshot[1].TotalMs, float64(0))
}
