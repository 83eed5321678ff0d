package tools

import (
	"context"
)

// StreamEvent is one item of a tool execution stream. Exactly one of
// Response and Err is set.
type StreamEvent struct {
	Response *Response
	Err      error
}

// StreamToolExecution runs name and delivers its outcome on the returned
// channel, which yields a single event and is then closed. Not-found and
// validation failures are delivered as error envelopes. With ThrowOnError a
// failing execution is delivered as an event carrying Err instead.
//
// The channel is buffered, so abandoning it does not leak the producer.
func (e *Engine) StreamToolExecution(ctx context.Context, name string, params map[string]interface{}, opts ExecutionOptions) <-chan StreamEvent {
	events := make(chan StreamEvent, 1)
	go func() {
		defer close(events)
		resp, err := e.ExecuteToolByName(ctx, name, params, opts)
		if err != nil {
			events <- StreamEvent{Err: err}
			return
		}
		events <- StreamEvent{Response: resp}
	}()
	return events
}

// CollectStream drains events. It stops at the first event carrying an error
// and returns the responses received before it.
func CollectStream(events <-chan StreamEvent) ([]*Response, error) {
	var out []*Response
	for ev := range events {
		if ev.Err != nil {
			return out, ev.Err
		}
		out = append(out, ev.Response)
	}
	return out, nil
}

// StreamToolExecution streams a tool from the default registry.
func StreamToolExecution(ctx context.Context, name string, params map[string]interface{}, opts ExecutionOptions) <-chan StreamEvent {
	return DefaultEngine().StreamToolExecution(ctx, name, params, opts)
}
