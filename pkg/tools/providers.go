package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// OpenAITool represents a tool in OpenAI's function calling format.
type OpenAITool struct {
	Type     string             `json:"type"`
	Function OpenAIToolFunction `json:"function"`
}

// OpenAIToolFunction represents the function definition in OpenAI format.
type OpenAIToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// OpenAIToolCall represents a tool call in OpenAI format.
type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function OpenAIFunctionCall `json:"function"`
}

// OpenAIFunctionCall carries the function name and JSON-encoded arguments.
type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIToolMessage represents a tool response message in OpenAI format.
type OpenAIToolMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id"`
}

// AnthropicTool represents a tool in Anthropic's format.
type AnthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// AnthropicToolUse represents a tool use request in Anthropic format.
type AnthropicToolUse struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// AnthropicToolResult represents a tool result in Anthropic format.
type AnthropicToolResult struct {
	ToolUseID string      `json:"tool_use_id"`
	Content   interface{} `json:"content"`
	IsError   bool        `json:"is_error,omitempty"`
}

// ConvertToOpenAITool converts an agent tool to OpenAI format.
func ConvertToOpenAITool(tool AgentTool) OpenAITool {
	return OpenAITool{
		Type: "function",
		Function: OpenAIToolFunction{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  objectParameters(tool.Parameters),
		},
	}
}

// ConvertToAnthropicTool converts an agent tool to Anthropic format.
func ConvertToAnthropicTool(tool AgentTool) AnthropicTool {
	return AnthropicTool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: objectParameters(tool.Parameters),
	}
}

// objectParameters returns a copy of params that always has an object type
// and a properties map, which both providers require at the top level.
func objectParameters(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if out["type"] == "object" {
		if _, ok := out["properties"]; !ok {
			out["properties"] = map[string]interface{}{}
		}
	}
	return out
}

// ParseOpenAIToolCall extracts the tool name and decoded arguments from call.
// Empty arguments decode to an empty map.
func ParseOpenAIToolCall(call OpenAIToolCall) (string, map[string]interface{}, error) {
	if call.Function.Name == "" {
		return "", nil, fmt.Errorf("tool call %q has no function name", call.ID)
	}
	args := map[string]interface{}{}
	if strings.TrimSpace(call.Function.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return "", nil, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
	}
	return call.Function.Name, args, nil
}

// ParseAnthropicToolUse extracts the tool name and input from use.
func ParseAnthropicToolUse(use AnthropicToolUse) (string, map[string]interface{}, error) {
	if use.Name == "" {
		return "", nil, fmt.Errorf("tool use %q has no name", use.ID)
	}
	input := use.Input
	if input == nil {
		input = map[string]interface{}{}
	}
	return use.Name, input, nil
}

// ResponseToOpenAIMessage converts an envelope into an OpenAI tool message.
// Successful data is JSON encoded; failures carry the error message.
func ResponseToOpenAIMessage(resp *Response, toolCallID string) (*OpenAIToolMessage, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	content := resp.Error
	if resp.Succeeded() {
		data, err := json.Marshal(resp.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result data: %w", err)
		}
		content = string(data)
	}

	return &OpenAIToolMessage{
		Role:       "tool",
		Content:    content,
		ToolCallID: toolCallID,
	}, nil
}

// ResponseToAnthropicResult converts an envelope into an Anthropic tool result.
func ResponseToAnthropicResult(resp *Response, toolUseID string) (*AnthropicToolResult, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if !resp.Succeeded() {
		return &AnthropicToolResult{
			ToolUseID: toolUseID,
			Content:   resp.Error,
			IsError:   true,
		}, nil
	}
	return &AnthropicToolResult{
		ToolUseID: toolUseID,
		Content:   resp.Data,
	}, nil
}

// OpenAITools returns every registered tool in OpenAI format.
func (r *Registry) OpenAITools() []OpenAITool {
	agentTools := r.ToAgentToolList()
	out := make([]OpenAITool, len(agentTools))
	for i, t := range agentTools {
		out[i] = ConvertToOpenAITool(t)
	}
	return out
}

// AnthropicTools returns every registered tool in Anthropic format.
func (r *Registry) AnthropicTools() []AnthropicTool {
	agentTools := r.ToAgentToolList()
	out := make([]AnthropicTool, len(agentTools))
	for i, t := range agentTools {
		out[i] = ConvertToAnthropicTool(t)
	}
	return out
}

// OpenAICallAccumulator assembles a tool call from OpenAI streaming deltas.
type OpenAICallAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// AddChunk folds one streaming delta into the accumulator. Chunks without a
// tool call are ignored.
func (a *OpenAICallAccumulator) AddChunk(chunk map[string]interface{}) {
	toolCalls, ok := chunk["tool_calls"].([]interface{})
	if !ok || len(toolCalls) == 0 {
		return
	}
	call, ok := toolCalls[0].(map[string]interface{})
	if !ok {
		return
	}
	if id, ok := call["id"].(string); ok && id != "" {
		a.id = id
	}
	if fn, ok := call["function"].(map[string]interface{}); ok {
		if name, ok := fn["name"].(string); ok && name != "" {
			a.name = name
		}
		if args, ok := fn["arguments"].(string); ok {
			a.args.WriteString(args)
		}
	}
}

// ToolCall returns the assembled call. It fails while the name is unknown or
// the arguments are not yet valid JSON.
func (a *OpenAICallAccumulator) ToolCall() (OpenAIToolCall, error) {
	call := OpenAIToolCall{
		ID:   a.id,
		Type: "function",
		Function: OpenAIFunctionCall{
			Name:      a.name,
			Arguments: a.args.String(),
		},
	}
	if a.name == "" {
		return call, fmt.Errorf("tool name not available")
	}
	if !json.Valid([]byte(call.Function.Arguments)) {
		return call, fmt.Errorf("incomplete or invalid arguments")
	}
	return call, nil
}

// ToStruct converts the agent tool into a protobuf Struct for runtimes that
// exchange tool lists over protobuf.
func (t AgentTool) ToStruct() (*structpb.Struct, error) {
	m, err := toJSONMap(t)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// ToolListStruct converts a tool list into a protobuf ListValue.
func ToolListStruct(tools []AgentTool) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(tools))
	for _, t := range tools {
		s, err := t.ToStruct()
		if err != nil {
			return nil, fmt.Errorf("failed to convert tool %q: %w", t.Name, err)
		}
		values = append(values, structpb.NewStructValue(s))
	}
	return &structpb.ListValue{Values: values}, nil
}

// toJSONMap normalizes v into plain JSON types, which is what structpb accepts.
func toJSONMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return m, nil
}
