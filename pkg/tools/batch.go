package tools

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchExecution is one call in a batch.
type BatchExecution struct {
	Tool    string                 `json:"tool"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Options ExecutionOptions       `json:"-"`
}

// BatchExecuteTools runs every execution concurrently and returns their
// envelopes in input order. Items are isolated: a failing item, including one
// with ThrowOnError set, is reported as its own error envelope and never
// affects its siblings.
func (e *Engine) BatchExecuteTools(ctx context.Context, executions []BatchExecution) []*Response {
	results := make([]*Response, len(executions))

	var g errgroup.Group
	if e.batchLimit > 0 {
		g.SetLimit(e.batchLimit)
	}
	for i, ex := range executions {
		g.Go(func() error {
			resp, _ := e.executeByName(ctx, ex.Tool, ex.Params, ex.Options)
			results[i] = resp
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// BatchExecuteTools runs a batch on the default engine.
func BatchExecuteTools(ctx context.Context, executions []BatchExecution) []*Response {
	return DefaultEngine().BatchExecuteTools(ctx, executions)
}
