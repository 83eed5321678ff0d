package tools

import "encoding/json"

// Status is the outcome of a tool invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusPartial Status = "partial"
)

// RateLimitInfo reports the rate limiter state seen by an execution.
type RateLimitInfo struct {
	// Limit is the sustained rate in calls per second
	Limit float64 `json:"limit"`
	Burst int     `json:"burst"`
	// Remaining is the number of tokens left after this call
	Remaining float64 `json:"remaining"`
}

// Metadata accompanies every Response.
type Metadata struct {
	// ExecutionTime is wall-clock milliseconds from dispatch to completion
	ExecutionTime int64          `json:"executionTime"`
	Category      Category       `json:"category,omitempty"`
	RateLimit     *RateLimitInfo `json:"rateLimit,omitempty"`
	ExecutionID   string         `json:"executionId,omitempty"`
}

// Response is the uniform envelope for tool outcomes. Data is set only on
// success; Error is set only on error or partial.
type Response struct {
	Status       Status                 `json:"status"`
	Data         interface{}            `json:"data,omitempty"`
	Error        string                 `json:"error,omitempty"`
	ErrorDetails map[string]interface{} `json:"errorDetails,omitempty"`
	Metadata     Metadata               `json:"metadata"`
}

// MarshalJSON emits the data key exactly when the status is success, so a
// tool that succeeds with nil still produces "data": null.
func (r Response) MarshalJSON() ([]byte, error) {
	type Alias Response
	if r.Status != StatusSuccess {
		return json.Marshal(Alias(r))
	}
	return json.Marshal(struct {
		Alias
		Data interface{} `json:"data"`
	}{Alias: Alias(r), Data: r.Data})
}

// Succeeded reports whether the response has status success.
func (r *Response) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// DataAs returns the response data asserted to T. It reports false when the
// response failed or the data has another type.
func DataAs[T any](r *Response) (T, bool) {
	var zero T
	if !r.Succeeded() {
		return zero, false
	}
	v, ok := r.Data.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

func successResponse(data interface{}, meta Metadata) *Response {
	return &Response{
		Status:   StatusSuccess,
		Data:     data,
		Metadata: meta,
	}
}

func errorResponse(status Status, message string, details map[string]interface{}, meta Metadata) *Response {
	if message == "" {
		message = "tool execution failed"
	}
	return &Response{
		Status:       status,
		Error:        message,
		ErrorDetails: details,
		Metadata:     meta,
	}
}
