package tools

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ExecutionRecord describes one finished invocation.
type ExecutionRecord struct {
	ExecutionID string
	Tool        string
	Category    Category
	Shape       Shape
	Status      Status
	// ErrorType is empty on success
	ErrorType ErrorType
	Err       error
	Start     time.Time
	Duration  time.Duration
	Context   ExecutionContext
}

// Recorder receives a record for every invocation the engine finishes,
// including not-found and validation failures.
type Recorder interface {
	Record(ctx context.Context, rec ExecutionRecord)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, rec ExecutionRecord)

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, rec ExecutionRecord) {
	f(ctx, rec)
}

// MultiRecorder fans a record out to several recorders in order.
type MultiRecorder []Recorder

// Record forwards rec to every non-nil recorder.
func (m MultiRecorder) Record(ctx context.Context, rec ExecutionRecord) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, rec)
		}
	}
}

// LogRecorder writes records to a logrus entry at debug level.
type LogRecorder struct {
	logger *logrus.Entry
}

// NewLogRecorder creates a LogRecorder. A nil logger uses the standard logger.
func NewLogRecorder(logger *logrus.Entry) *LogRecorder {
	if logger == nil {
		logger = logrus.WithField("component", "tools.engine")
	}
	return &LogRecorder{logger: logger}
}

// Record logs rec.
func (l *LogRecorder) Record(_ context.Context, rec ExecutionRecord) {
	fields := logrus.Fields{
		"tool":         rec.Tool,
		"execution_id": rec.ExecutionID,
		"status":       rec.Status,
		"duration_ms":  rec.Duration.Milliseconds(),
		"category":     rec.Category,
		"shape":        rec.Shape.String(),
	}
	if rec.Context.TraceID != "" {
		fields["trace_id"] = rec.Context.TraceID
	}
	entry := l.logger.WithFields(fields)
	if rec.Err != nil {
		entry = entry.WithError(rec.Err).WithField("error_type", rec.ErrorType)
	}
	entry.Debug("tool execution finished")
}
