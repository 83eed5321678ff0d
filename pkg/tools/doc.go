// Package tools provides a typed registry of agent-callable tools and an
// engine that validates, dispatches and times their execution.
//
// The package includes:
//
// - An immutable parameter schema with recursive validation and conversion
// to and from a JSON-Schema-like map
// - Tool definitions with an explicit plain, contextual or authenticated shape
// - An ordered, concurrency-safe registry with agent tool list export
// - An execution engine with timeouts, a uniform response envelope, streaming
// and batched invocation
// - Converters for OpenAI and Anthropic tool formats
// - Builtin tools for common operations
//
// # Tool Definition
//
// Tools are built with one of the Define* builders. The builder fixes the
// tool's shape and, unless WithoutAutoRegister is passed, registers it:
//
//	registry := tools.NewRegistry()
//	echo, err := tools.DefineTool(tools.ToolConfig{
//		Name:        "echo",
//		Description: "Return the given text",
//		Parameters: tools.Object("", map[string]*tools.ParameterSchema{
//			"text": tools.String("Text to echo"),
//		}),
//	}, func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
//		return params["text"], nil
//	}, tools.WithRegistry(registry))
//
// # Tool Execution
//
// The engine validates parameters before dispatch and races the call against
// its timeout. Outcomes are reported as a Response envelope:
//
//	engine := tools.NewEngine(registry)
//	resp, err := engine.ExecuteToolByName(ctx, "echo", map[string]interface{}{
//		"text": "hi",
//	}, tools.ExecutionOptions{Timeout: time.Second})
//
// err is only non-nil when ExecutionOptions.ThrowOnError is set and the tool
// itself failed. Unknown tools and invalid parameters are always envelopes.
//
// # AI Provider Integration
//
// The package provides converters for major AI provider tool formats:
//
//	openAITools := registry.OpenAITools()
//	anthropicTools := registry.AnthropicTools()
package tools
