// Package telemetry exports tool execution records as OpenTelemetry spans and
// metrics.
//
//	recorder, err := telemetry.NewRecorder(
//		telemetry.WithTracerProvider(tp),
//		telemetry.WithMeterProvider(mp),
//	)
//	engine := tools.NewEngine(registry, tools.WithRecorder(recorder))
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

// InstrumentationName identifies the tracer and meter used by Recorder.
const InstrumentationName = "github.com/ag-ui/agent-tools/pkg/tools"

// Attribute keys set on spans and metric points.
const (
	AttrTool           = attribute.Key("tool.name")
	AttrCategory       = attribute.Key("tool.category")
	AttrShape          = attribute.Key("tool.shape")
	AttrStatus         = attribute.Key("tool.status")
	AttrErrorType      = attribute.Key("tool.error_type")
	AttrExecutionID    = attribute.Key("tool.execution_id")
	AttrTraceID        = attribute.Key("agent.trace_id")
	AttrConversationID = attribute.Key("agent.conversation_id")
	AttrUserID         = attribute.Key("agent.user_id")
)

// Option configures a Recorder.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// Recorder implements tools.Recorder. Each record becomes a span named
// "tool.execute <name>" covering the execution window, plus one point on the
// tool.executions counter and the tool.duration histogram.
type Recorder struct {
	tracer     trace.Tracer
	executions metric.Int64Counter
	duration   metric.Float64Histogram
}

var _ tools.Recorder = (*Recorder)(nil)

// NewRecorder creates the instruments and returns a Recorder.
func NewRecorder(opts ...Option) (*Recorder, error) {
	o := &options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}

	meter := o.meterProvider.Meter(InstrumentationName)

	executions, err := meter.Int64Counter(
		"tool.executions",
		metric.WithDescription("Number of tool executions by status"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create executions counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"tool.duration",
		metric.WithDescription("Tool execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &Recorder{
		tracer:     o.tracerProvider.Tracer(InstrumentationName),
		executions: executions,
		duration:   duration,
	}, nil
}

// Record emits the span and metric points for rec.
func (r *Recorder) Record(ctx context.Context, rec tools.ExecutionRecord) {
	if ctx == nil {
		ctx = context.Background()
	}

	metricAttrs := []attribute.KeyValue{
		AttrTool.String(rec.Tool),
		AttrCategory.String(string(rec.Category)),
		AttrStatus.String(string(rec.Status)),
	}
	if rec.ErrorType != "" {
		metricAttrs = append(metricAttrs, AttrErrorType.String(string(rec.ErrorType)))
	}

	spanAttrs := append([]attribute.KeyValue{
		AttrShape.String(rec.Shape.String()),
		AttrExecutionID.String(rec.ExecutionID),
	}, metricAttrs...)
	if rec.Context.TraceID != "" {
		spanAttrs = append(spanAttrs, AttrTraceID.String(rec.Context.TraceID))
	}
	if rec.Context.ConversationID != "" {
		spanAttrs = append(spanAttrs, AttrConversationID.String(rec.Context.ConversationID))
	}
	if rec.Context.User != nil {
		spanAttrs = append(spanAttrs, AttrUserID.String(rec.Context.User.ID))
	}

	_, span := r.tracer.Start(ctx, "tool.execute "+rec.Tool,
		trace.WithTimestamp(rec.Start),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(spanAttrs...),
	)
	switch {
	case rec.Err != nil && rec.Status == tools.StatusPartial:
		span.AddEvent("partial result", trace.WithAttributes(attribute.String("reason", rec.Err.Error())))
		span.SetStatus(codes.Ok, "")
	case rec.Err != nil:
		span.RecordError(rec.Err)
		span.SetStatus(codes.Error, rec.Err.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(rec.Start.Add(rec.Duration)))

	set := metric.WithAttributes(metricAttrs...)
	r.executions.Add(ctx, 1, set)
	r.duration.Record(ctx, float64(rec.Duration.Microseconds())/1000, set)
}
