package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// DefaultTimeout is used when neither the call nor the engine sets a timeout.
const DefaultTimeout = 30 * time.Second

// ExecutionOptions configures a single invocation.
type ExecutionOptions struct {
	// Timeout bounds the call; zero or negative uses the engine default
	Timeout time.Duration

	// Context is handed to contextual and authenticated tools
	Context ExecutionContext

	// ThrowOnError returns execution faults as an error instead of an
	// error envelope. Not-found and validation failures are always envelopes.
	ThrowOnError bool
}

// ExecutionHook runs before dispatch. A non-nil error vetoes the call.
type ExecutionHook func(ctx context.Context, def *Definition, params map[string]interface{}, ec ExecutionContext) error

// Engine validates, dispatches and times tool calls.
type Engine struct {
	registry *Registry

	defaultTimeout time.Duration
	production     bool
	batchLimit     int

	// slots bounds concurrent executions when set
	slots *semaphore.Weighted

	rateLimiter   RateLimiter
	beforeExecute []ExecutionHook
	recorder      Recorder
	logger        *logrus.Entry

	active   atomic.Int64
	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaultTimeout sets the timeout used when a call does not set one.
func WithDefaultTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if timeout > 0 {
			e.defaultTimeout = timeout
		}
	}
}

// WithMaxConcurrent bounds the number of executions running at once. Calls
// wait for a slot within their own timeout.
func WithMaxConcurrent(max int) EngineOption {
	return func(e *Engine) {
		if max > 0 {
			e.slots = semaphore.NewWeighted(int64(max))
		}
	}
}

// WithRateLimiter sets the per-tool rate limiter.
func WithRateLimiter(limiter RateLimiter) EngineOption {
	return func(e *Engine) {
		e.rateLimiter = limiter
	}
}

// WithBeforeExecute adds a hook that runs before every dispatch.
func WithBeforeExecute(hook ExecutionHook) EngineOption {
	return func(e *Engine) {
		if hook != nil {
			e.beforeExecute = append(e.beforeExecute, hook)
		}
	}
}

// WithRecorder replaces the default log recorder.
func WithRecorder(recorder Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *logrus.Entry) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProduction suppresses stack traces in error details.
func WithProduction(production bool) EngineOption {
	return func(e *Engine) {
		e.production = production
	}
}

// WithBatchConcurrency bounds how many batch items run at once. Zero means
// unbounded.
func WithBatchConcurrency(limit int) EngineOption {
	return func(e *Engine) {
		e.batchLimit = limit
	}
}

// NewEngine creates an engine over registry. A nil registry uses the default
// registry.
func NewEngine(registry *Registry, opts ...EngineOption) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	e := &Engine{
		registry:       registry,
		defaultTimeout: DefaultTimeout,
		logger:         logrus.WithField("component", "tools.engine"),
		inflight:       make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.recorder == nil {
		e.recorder = NewLogRecorder(e.logger)
	}
	return e
}

// Registry returns the registry the engine resolves names against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ActiveExecutions returns the number of calls currently being waited on.
func (e *Engine) ActiveExecutions() int {
	return int(e.active.Load())
}

// CancelAll cancels every in-flight execution. Each affected call reports a
// cancellation error.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cancel := range e.inflight {
		cancel()
	}
}

// ExecuteTool runs def with params that the caller has already validated.
// Execution faults are returned as an error envelope, or as the error itself
// when opts.ThrowOnError is set.
func (e *Engine) ExecuteTool(ctx context.Context, def *Definition, params map[string]interface{}, opts ExecutionOptions) (*Response, error) {
	if def == nil {
		return nil, invalidDefinition("", "tool definition cannot be nil")
	}
	resp, fault := e.execute(ctx, def, params, opts)
	if fault != nil && opts.ThrowOnError {
		return nil, fault
	}
	return resp, nil
}

// ExecuteToolByName resolves name, validates raw against the tool's schema and
// executes it. Unknown tools and invalid parameters are always reported as
// envelopes, regardless of opts.ThrowOnError.
func (e *Engine) ExecuteToolByName(ctx context.Context, name string, raw map[string]interface{}, opts ExecutionOptions) (*Response, error) {
	resp, fault := e.executeByName(ctx, name, raw, opts)
	if fault != nil && opts.ThrowOnError {
		return nil, fault
	}
	return resp, nil
}

// executeByName always returns an envelope. fault is set only for execution
// stage failures that ThrowOnError may surface.
func (e *Engine) executeByName(ctx context.Context, name string, raw map[string]interface{}, opts ExecutionOptions) (*Response, error) {
	def, ok := e.registry.Get(name)
	if !ok {
		err := NewToolError(ErrorTypeNotFound, "TOOL_NOT_FOUND", fmt.Sprintf("Tool %q not found", name)).WithToolName(name)
		e.record(ctx, ExecutionRecord{
			ExecutionID: uuid.NewString(),
			Tool:        name,
			Status:      StatusError,
			ErrorType:   ErrorTypeNotFound,
			Err:         err,
			Start:       time.Now(),
			Context:     opts.Context,
		})
		return errorResponse(StatusError, fmt.Sprintf(`Tool "%s" not found`, name), map[string]interface{}{
			"toolName":  name,
			"errorType": string(ErrorTypeNotFound),
		}, Metadata{}), nil
	}

	params, err := def.validateParams(raw)
	if err != nil {
		details := map[string]interface{}{
			"toolName":        def.name,
			"category":        string(def.category),
			"validationError": true,
			"errorType":       string(ErrorTypeValidation),
		}
		var verr *ValidationError
		if errors.As(err, &verr) && verr.Path != "" {
			details["path"] = verr.Path
		}
		e.record(ctx, ExecutionRecord{
			ExecutionID: uuid.NewString(),
			Tool:        def.name,
			Category:    def.category,
			Shape:       def.shape,
			Status:      StatusError,
			ErrorType:   ErrorTypeValidation,
			Err:         err,
			Start:       time.Now(),
			Context:     opts.Context,
		})
		return errorResponse(StatusError, err.Error(), details, Metadata{Category: def.category}), nil
	}

	return e.execute(ctx, def, params, opts)
}

func (e *Engine) execute(ctx context.Context, def *Definition, params map[string]interface{}, opts ExecutionOptions) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	execID := uuid.NewString()
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	e.track(execID, cancel)
	defer e.untrack(execID)

	e.active.Add(1)
	data, rateInfo, err := e.run(ctx, execCtx, def, params, opts.Context, timeout)
	elapsed := time.Since(start)

	meta := Metadata{
		ExecutionTime: elapsed.Milliseconds(),
		Category:      def.category,
		RateLimit:     rateInfo,
		ExecutionID:   execID,
	}

	rec := ExecutionRecord{
		ExecutionID: execID,
		Tool:        def.name,
		Category:    def.category,
		Shape:       def.shape,
		Start:       start,
		Duration:    elapsed,
		Context:     opts.Context,
	}

	if err == nil {
		rec.Status = StatusSuccess
		e.record(ctx, rec)
		return successResponse(data, meta), nil
	}

	status := StatusError
	var partial *PartialError
	if errors.As(err, &partial) {
		status = StatusPartial
	}

	rec.Status = status
	rec.Err = err
	rec.ErrorType = errorTypeOf(err)
	e.record(ctx, rec)

	e.logger.WithFields(logrus.Fields{
		"tool":         def.name,
		"execution_id": execID,
		"error_type":   rec.ErrorType,
	}).WithError(err).Warn("tool execution failed")

	resp := errorResponse(status, errorMessage(err), e.errorDetails(def, err), meta)
	if status == StatusPartial {
		return resp, nil
	}
	return resp, err
}

type outcome struct {
	data interface{}
	err  error
}

// run performs the guarded call. parent is the caller's context and execCtx
// carries the timeout. Panics in hooks, the rate limiter and the tool all
// come back as errors, and run releases the active count taken by execute.
func (e *Engine) run(parent, execCtx context.Context, def *Definition, params map[string]interface{}, ec ExecutionContext, timeout time.Duration) (interface{}, *RateLimitInfo, error) {
	defer e.active.Add(-1)

	err := recovered(def, ErrorTypeHook, "HOOK_PANIC", "pre-execution hook", func() error {
		for _, hook := range e.beforeExecute {
			if err := hook(execCtx, def, params, ec); err != nil {
				return NewToolError(ErrorTypeHook, "HOOK_REJECTED", "pre-execution hook rejected the call").
					WithToolName(def.name).
					WithCause(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var rateInfo *RateLimitInfo
	if e.rateLimiter != nil {
		var waitErr error
		err := recovered(def, ErrorTypeRateLimit, "RATE_LIMITER_PANIC", "rate limiter", func() error {
			if waitErr = e.rateLimiter.Wait(execCtx, def.name); waitErr != nil {
				return nil
			}
			if reporter, ok := e.rateLimiter.(rateLimitReporter); ok {
				rateInfo = reporter.Info(def.name)
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		if waitErr != nil {
			if ctxErr := e.contextFault(parent, execCtx, def, timeout); ctxErr != nil {
				return nil, nil, ctxErr
			}
			return nil, nil, NewToolError(ErrorTypeRateLimit, "RATE_LIMITED", "rate limit exceeded").
				WithToolName(def.name).
				WithCause(waitErr)
		}
	}

	if e.slots != nil {
		if err := e.slots.Acquire(execCtx, 1); err != nil {
			if ctxErr := e.contextFault(parent, execCtx, def, timeout); ctxErr != nil {
				return nil, rateInfo, ctxErr
			}
			return nil, rateInfo, err
		}
		defer e.slots.Release(1)
	}

	done := make(chan outcome, 1)
	go func() {
		data, err := callWithRecovery(execCtx, def, params, ec)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && execCtx.Err() != nil && errors.Is(out.err, execCtx.Err()) {
			// The tool gave up because of our deadline or cancellation.
			return nil, rateInfo, e.contextFault(parent, execCtx, def, timeout)
		}
		return out.data, rateInfo, out.err
	case <-execCtx.Done():
		return nil, rateInfo, e.contextFault(parent, execCtx, def, timeout)
	}
}

// contextFault classifies a finished execCtx as timeout or cancellation.
func (e *Engine) contextFault(parent, execCtx context.Context, def *Definition, timeout time.Duration) error {
	switch {
	case execCtx.Err() == nil:
		return nil
	case parent.Err() == nil && errors.Is(execCtx.Err(), context.DeadlineExceeded):
		return NewToolError(ErrorTypeTimeout, "TIMEOUT",
			fmt.Sprintf("Tool execution timed out after %dms", timeout.Milliseconds())).
			WithToolName(def.name).
			WithDetail("timeoutMs", timeout.Milliseconds())
	default:
		cause := parent.Err()
		if cause == nil {
			cause = execCtx.Err()
		}
		return NewToolError(ErrorTypeCancellation, "CANCELLED", "tool execution was cancelled").
			WithToolName(def.name).
			WithCause(cause)
	}
}

// panicError carries a recovered panic and the goroutine stack at that point.
type panicError struct {
	value interface{}
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// recovered runs fn and turns a panic into a ToolError of errType whose
// message names what panicked.
func recovered(def *Definition, errType ErrorType, code, what string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewToolError(errType, code, fmt.Sprintf("%s panicked: %v", what, r)).
				WithToolName(def.name).
				WithCause(&panicError{value: r, stack: debug.Stack()})
		}
	}()
	return fn()
}

func callWithRecovery(ctx context.Context, def *Definition, params map[string]interface{}, ec ExecutionContext) (data interface{}, err error) {
	err = recovered(def, ErrorTypeExecution, "PANIC", "tool execution", func() error {
		var callErr error
		data, callErr = def.call(ctx, params, ec)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

func (e *Engine) errorDetails(def *Definition, err error) map[string]interface{} {
	details := map[string]interface{}{
		"toolName":  def.name,
		"errorType": string(errorTypeOf(err)),
	}

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		for k, v := range toolErr.Details {
			details[k] = v
		}
	}

	if cause := rootCause(err); cause != nil {
		details["cause"] = cause.Error()
	}

	if !e.production {
		var perr *panicError
		var st stackTracer
		switch {
		case errors.As(err, &perr):
			details["stack"] = string(perr.stack)
		case errors.As(err, &st):
			details["stack"] = fmt.Sprintf("%+v", st.StackTrace())
		}
	}
	return details
}

// rootCause prefers the pkg/errors cause chain and falls back to one level of
// standard unwrapping.
func rootCause(err error) error {
	if cause := pkgerrors.Cause(err); cause != err {
		return cause
	}
	return errors.Unwrap(err)
}

// errorMessage is the human-readable envelope message for err.
func errorMessage(err error) string {
	if toolErr, ok := err.(*ToolError); ok && toolErr.Message != "" {
		return toolErr.Message
	}
	return err.Error()
}

func (e *Engine) track(id string, cancel context.CancelFunc) {
	e.mu.Lock()
	e.inflight[id] = cancel
	e.mu.Unlock()
}

func (e *Engine) untrack(id string) {
	e.mu.Lock()
	delete(e.inflight, id)
	e.mu.Unlock()
}

func (e *Engine) record(ctx context.Context, rec ExecutionRecord) {
	if e.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"tool":         rec.Tool,
				"execution_id": rec.ExecutionID,
				"panic":        r,
			}).Error("execution recorder panicked")
		}
	}()
	e.recorder.Record(ctx, rec)
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// DefaultEngine returns the engine over DefaultRegistry used by the
// package-level functions.
func DefaultEngine() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine(DefaultRegistry())
	})
	return defaultEngine
}

// ExecuteTool runs def on the default engine.
func ExecuteTool(ctx context.Context, def *Definition, params map[string]interface{}, opts ExecutionOptions) (*Response, error) {
	return DefaultEngine().ExecuteTool(ctx, def, params, opts)
}

// ExecuteToolByName runs a tool from the default registry on the default engine.
func ExecuteToolByName(ctx context.Context, name string, params map[string]interface{}, opts ExecutionOptions) (*Response, error) {
	return DefaultEngine().ExecuteToolByName(ctx, name, params, opts)
}
