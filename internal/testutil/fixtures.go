package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

// NewLogger returns a logger that discards output and a hook capturing its
// entries.
func NewLogger() (*logrus.Entry, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

// NewRegistry returns an isolated registry that logs to a discarded logger.
func NewRegistry(t testing.TB) (*tools.Registry, *logtest.Hook) {
	t.Helper()
	logger, hook := NewLogger()
	return tools.NewRegistry(tools.WithRegistryLogger(logger)), hook
}

// NewEngine returns an engine over registry with a discarded logger.
func NewEngine(registry *tools.Registry, opts ...tools.EngineOption) *tools.Engine {
	logger, _ := NewLogger()
	return tools.NewEngine(registry, append([]tools.EngineOption{tools.WithLogger(logger)}, opts...)...)
}

// TextParams is the {text: string} schema shared by the fixtures.
func TextParams() *tools.ParameterSchema {
	return tools.Object("", map[string]*tools.ParameterSchema{
		"text": tools.String("Input text"),
	})
}

// EmptyParams is an object schema without fields.
func EmptyParams() *tools.ParameterSchema {
	return tools.Object("", nil)
}

// Counter counts tool invocations.
type Counter struct {
	calls atomic.Int64
}

// Calls returns the number of recorded invocations.
func (c *Counter) Calls() int {
	return int(c.calls.Load())
}

func (c *Counter) inc() {
	c.calls.Add(1)
}

// Echo defines the "echo" tool returning params["text"].
func Echo(t testing.TB, r *tools.Registry) *tools.Definition {
	t.Helper()
	def, err := tools.DefineTool(tools.ToolConfig{
		Name:        "echo",
		Description: "Echo the text parameter",
		Parameters:  TextParams(),
	}, func(_ context.Context, params map[string]interface{}) (interface{}, error) {
		return params["text"], nil
	}, tools.WithRegistry(r))
	require.NoError(t, err)
	return def
}

// Counting defines a tool that increments c and returns the call number.
func Counting(t testing.TB, r *tools.Registry, name string, c *Counter) *tools.Definition {
	t.Helper()
	def, err := tools.DefineTool(tools.ToolConfig{
		Name:        name,
		Description: "Count invocations",
		Parameters:  TextParams(),
	}, func(context.Context, map[string]interface{}) (interface{}, error) {
		c.inc()
		return float64(c.Calls()), nil
	}, tools.WithRegistry(r))
	require.NoError(t, err)
	return def
}

// Failing defines a tool that always returns err.
func Failing(t testing.TB, r *tools.Registry, name string, err error) *tools.Definition {
	t.Helper()
	def, defErr := tools.DefineTool(tools.ToolConfig{
		Name:        name,
		Description: "Always fail",
		Parameters:  EmptyParams(),
	}, func(context.Context, map[string]interface{}) (interface{}, error) {
		return nil, err
	}, tools.WithRegistry(r))
	require.NoError(t, defErr)
	return def
}

// Panicking defines a tool that panics with value.
func Panicking(t testing.TB, r *tools.Registry, name string, value interface{}) *tools.Definition {
	t.Helper()
	def, err := tools.DefineTool(tools.ToolConfig{
		Name:        name,
		Description: "Always panic",
		Parameters:  EmptyParams(),
	}, func(context.Context, map[string]interface{}) (interface{}, error) {
		panic(value)
	}, tools.WithRegistry(r))
	require.NoError(t, err)
	return def
}

// Hanging defines a tool that ignores its context and blocks until the
// returned release function is called. Tests should defer release.
func Hanging(t testing.TB, r *tools.Registry, name string) (*tools.Definition, func()) {
	t.Helper()
	block := make(chan struct{})
	var once sync.Once
	def, err := tools.DefineTool(tools.ToolConfig{
		Name:        name,
		Description: "Never resolve on its own",
		Parameters:  EmptyParams(),
	}, func(context.Context, map[string]interface{}) (interface{}, error) {
		<-block
		return "released", nil
	}, tools.WithRegistry(r))
	require.NoError(t, err)
	return def, func() { once.Do(func() { close(block) }) }
}

// Sleeping defines a tool that returns name after d, or ctx.Err() when its
// context ends first.
func Sleeping(t testing.TB, r *tools.Registry, name string, d time.Duration) *tools.Definition {
	t.Helper()
	def, err := tools.DefineTool(tools.ToolConfig{
		Name:        name,
		Description: "Sleep before answering",
		Parameters:  EmptyParams(),
	}, func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		select {
		case <-time.After(d):
			return name, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, tools.WithRegistry(r))
	require.NoError(t, err)
	return def
}
