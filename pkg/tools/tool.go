package tools

import (
	"context"
	"strings"
)

// Shape identifies how a tool is dispatched. It is fixed by the builder that
// created the definition.
type Shape int

const (
	// ShapePlain tools receive only their parameters.
	ShapePlain Shape = iota
	// ShapeContextual tools also receive the caller's ExecutionContext.
	ShapeContextual
	// ShapeAuthenticated tools are contextual tools with a declared auth requirement.
	ShapeAuthenticated
)

func (s Shape) String() string {
	switch s {
	case ShapePlain:
		return "plain"
	case ShapeContextual:
		return "contextual"
	case ShapeAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Category is a filtering tag for tools.
type Category string

const (
	CategoryCustom        Category = "custom"
	CategoryData          Category = "data"
	CategorySearch        Category = "search"
	CategoryCommunication Category = "communication"
	CategoryFile          Category = "file"
	CategoryUtility       Category = "utility"
	CategoryIntegration   Category = "integration"
	CategoryAI            Category = "ai"
)

// ExecuteFunc implements a plain tool. ctx is cancelled when the call times out.
type ExecuteFunc func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// ContextualExecuteFunc implements a contextual or authenticated tool.
type ContextualExecuteFunc func(ctx context.Context, params map[string]interface{}, ec ExecutionContext) (interface{}, error)

// AuthRequirement declares what an external auth layer must verify before the
// tool runs. The engine carries it but does not check credentials.
type AuthRequirement struct {
	Provider string   `json:"provider"`
	Scopes   []string `json:"scopes,omitempty"`
}

// User is the caller identity resolved by the host application.
type User struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// ExecutionContext is per-invocation caller metadata.
type ExecutionContext struct {
	User           *User                  `json:"user,omitempty"`
	ConversationID string                 `json:"conversationId,omitempty"`
	TraceID        string                 `json:"traceId,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Definition is a named, schema-described callable unit. Definitions are
// immutable once built.
type Definition struct {
	name        string
	description string
	parameters  *ParameterSchema
	category    Category
	version     string
	tags        []string
	shape       Shape
	auth        *AuthRequirement

	execute    ExecuteFunc
	contextual ContextualExecuteFunc
}

// Name returns the unique tool name.
func (d *Definition) Name() string { return d.name }

// Description returns the text shown to the model.
func (d *Definition) Description() string { return d.description }

// Parameters returns the parameter schema.
func (d *Definition) Parameters() *ParameterSchema { return d.parameters }

// Category returns the tool category.
func (d *Definition) Category() Category { return d.category }

// Version returns the optional version string.
func (d *Definition) Version() string { return d.version }

// Tags returns a copy of the tool tags.
func (d *Definition) Tags() []string { return append([]string(nil), d.tags...) }

// HasTag reports whether tag is one of the tool's tags.
func (d *Definition) HasTag(tag string) bool {
	for _, t := range d.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Shape returns the dispatch shape.
func (d *Definition) Shape() Shape { return d.shape }

// Auth returns a copy of the auth requirement, or nil for non-authenticated tools.
func (d *Definition) Auth() *AuthRequirement {
	if d.auth == nil {
		return nil
	}
	return &AuthRequirement{
		Provider: d.auth.Provider,
		Scopes:   append([]string(nil), d.auth.Scopes...),
	}
}

// call dispatches on the tagged shape.
func (d *Definition) call(ctx context.Context, params map[string]interface{}, ec ExecutionContext) (interface{}, error) {
	switch d.shape {
	case ShapeContextual, ShapeAuthenticated:
		return d.contextual(ctx, params, ec)
	default:
		return d.execute(ctx, params)
	}
}

// ToolConfig holds the descriptive fields shared by all builders.
type ToolConfig struct {
	Name        string
	Description string
	Parameters  *ParameterSchema
	// Category defaults to CategoryCustom.
	Category Category
	Version  string
	Tags     []string
}

type defineOptions struct {
	autoRegister bool
	registry     *Registry
}

// DefineOption configures a Define* builder.
type DefineOption func(*defineOptions)

// WithoutAutoRegister skips registering the definition.
func WithoutAutoRegister() DefineOption {
	return func(o *defineOptions) { o.autoRegister = false }
}

// WithRegistry registers the definition into r instead of the default registry.
func WithRegistry(r *Registry) DefineOption {
	return func(o *defineOptions) { o.registry = r }
}

// DefineTool builds a plain tool.
func DefineTool(cfg ToolConfig, execute ExecuteFunc, opts ...DefineOption) (*Definition, error) {
	if execute == nil {
		return nil, invalidDefinition(cfg.Name, "tool execute function is required")
	}
	def, err := newDefinition(cfg, ShapePlain)
	if err != nil {
		return nil, err
	}
	def.execute = execute
	return finishDefinition(def, opts)
}

// DefineContextualTool builds a tool that receives the caller's ExecutionContext.
func DefineContextualTool(cfg ToolConfig, execute ContextualExecuteFunc, opts ...DefineOption) (*Definition, error) {
	if execute == nil {
		return nil, invalidDefinition(cfg.Name, "tool execute function is required")
	}
	def, err := newDefinition(cfg, ShapeContextual)
	if err != nil {
		return nil, err
	}
	def.contextual = execute
	return finishDefinition(def, opts)
}

// DefineAuthenticatedTool builds a contextual tool with a declared auth requirement.
func DefineAuthenticatedTool(cfg ToolConfig, auth AuthRequirement, execute ContextualExecuteFunc, opts ...DefineOption) (*Definition, error) {
	if execute == nil {
		return nil, invalidDefinition(cfg.Name, "tool execute function is required")
	}
	if strings.TrimSpace(auth.Provider) == "" {
		return nil, invalidDefinition(cfg.Name, "auth provider is required for authenticated tools")
	}
	def, err := newDefinition(cfg, ShapeAuthenticated)
	if err != nil {
		return nil, err
	}
	def.contextual = execute
	def.auth = &AuthRequirement{
		Provider: auth.Provider,
		Scopes:   append([]string(nil), auth.Scopes...),
	}
	return finishDefinition(def, opts)
}

func newDefinition(cfg ToolConfig, shape Shape) (*Definition, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, invalidDefinition("", "tool name is required")
	}
	if strings.TrimSpace(cfg.Description) == "" {
		return nil, invalidDefinition(cfg.Name, "tool description is required")
	}
	if cfg.Parameters == nil {
		return nil, invalidDefinition(cfg.Name, "tool parameters are required")
	}
	if err := cfg.Parameters.Err(); err != nil {
		return nil, invalidDefinition(cfg.Name, "invalid parameter schema").WithCause(err)
	}

	def := &Definition{
		name:        cfg.Name,
		description: cfg.Description,
		parameters:  cfg.Parameters,
		category:    cfg.Category,
		version:     cfg.Version,
		shape:       shape,
	}
	if def.category == "" {
		def.category = CategoryCustom
	}
	if len(cfg.Tags) > 0 {
		seen := make(map[string]bool, len(cfg.Tags))
		for _, tag := range cfg.Tags {
			if !seen[tag] {
				seen[tag] = true
				def.tags = append(def.tags, tag)
			}
		}
	}
	return def, nil
}

func finishDefinition(def *Definition, opts []DefineOption) (*Definition, error) {
	o := defineOptions{autoRegister: true}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.autoRegister {
		return def, nil
	}

	registry := o.registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	if err := registry.Register(def); err != nil {
		return nil, err
	}
	return def, nil
}

// validateParams validates raw input against the tool's schema. A nil map is
// treated as an empty object.
func (d *Definition) validateParams(raw map[string]interface{}) (map[string]interface{}, error) {
	var input interface{} = raw
	if raw == nil {
		input = map[string]interface{}{}
	}
	out, err := d.parameters.Validate(input)
	if err != nil {
		return nil, err
	}
	params, ok := out.(map[string]interface{})
	if !ok {
		// Non-object schemas are passed through under a single "value" key.
		return map[string]interface{}{"value": out}, nil
	}
	return params, nil
}
