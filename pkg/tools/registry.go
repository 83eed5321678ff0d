package tools

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry is an in-process catalogue of tool definitions keyed by unique name.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Definition

	// order holds names in first-registration order
	order []string

	// tagIndex maps tags to tool names for fast lookup
	tagIndex map[string]map[string]bool

	validators []RegistryValidator
	logger     *logrus.Entry
}

// RegistryValidator is run against every definition before it is stored.
type RegistryValidator func(def *Definition) error

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for registry warnings.
func WithRegistryLogger(logger *logrus.Entry) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithValidator adds a registration-time validator.
func WithValidator(v RegistryValidator) RegistryOption {
	return func(r *Registry) {
		if v != nil {
			r.validators = append(r.validators, v)
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:    make(map[string]*Definition),
		tagIndex: make(map[string]map[string]bool),
		logger:   logrus.WithField("component", "tools.registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry used by the Define*
// builders when no registry is given.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register stores def under its name. Re-registering a name replaces the
// previous definition, keeps its listing position and logs a warning.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return invalidDefinition("", "tool definition cannot be nil")
	}
	if strings.TrimSpace(def.name) == "" {
		return NewToolError(ErrorTypeMissingName, "MISSING_NAME", "tool name is required")
	}

	for _, validator := range r.validators {
		if err := validator(def); err != nil {
			return invalidDefinition(def.name, "custom validation failed").WithCause(err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, exists := r.tools[def.name]; exists {
		r.logger.WithFields(logrus.Fields{
			"tool":       def.name,
			"error_type": ErrorTypeDuplicateName,
		}).Warnf("tool %q is already registered, overwriting", def.name)
		r.unindexTags(previous)
	} else {
		r.order = append(r.order, def.name)
	}

	r.tools[def.name] = def
	for _, tag := range def.tags {
		if r.tagIndex[tag] == nil {
			r.tagIndex[tag] = make(map[string]bool)
		}
		r.tagIndex[tag][def.name] = true
	}
	return nil
}

func (r *Registry) unindexTags(def *Definition) {
	for _, tag := range def.tags {
		if names := r.tagIndex[tag]; names != nil {
			delete(names, def.name)
			if len(names) == 0 {
				delete(r.tagIndex, tag)
			}
		}
	}
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// GetAll returns every definition in registration order.
func (r *Registry) GetAll() []*Definition {
	return r.collect(func(*Definition) bool { return true })
}

// GetByCategory returns definitions in the given category.
func (r *Registry) GetByCategory(category Category) []*Definition {
	return r.collect(func(def *Definition) bool { return def.category == category })
}

// GetByTag returns definitions carrying tag.
func (r *Registry) GetByTag(tag string) []*Definition {
	r.mu.RLock()
	names := r.tagIndex[tag]
	r.mu.RUnlock()
	if len(names) == 0 {
		return []*Definition{}
	}
	return r.collect(func(def *Definition) bool { return def.HasTag(tag) })
}

func (r *Registry) collect(keep func(*Definition) bool) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		if def := r.tools[name]; keep(def) {
			results = append(results, def)
		}
	}
	return results
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Clear removes every definition.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools = make(map[string]*Definition)
	r.tagIndex = make(map[string]map[string]bool)
	r.order = nil
}

// AgentTool is the projection of a definition exposed to an LLM's
// function-calling interface. It never carries the execute function or the
// auth requirement.
type AgentTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
	Category    Category               `json:"category,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
}

// AgentTool projects the definition into its agent-facing form.
func (d *Definition) AgentTool() AgentTool {
	return AgentTool{
		Name:        d.name,
		Description: d.description,
		Parameters:  ToGeneric(d.parameters),
		Category:    d.category,
		Tags:        d.Tags(),
	}
}

// ToAgentToolList projects every registered definition, in registration order.
func (r *Registry) ToAgentToolList() []AgentTool {
	defs := r.GetAll()
	out := make([]AgentTool, len(defs))
	for i, def := range defs {
		out[i] = def.AgentTool()
	}
	return out
}

// ToolFilter narrows Find results. Zero-valued fields are ignored.
type ToolFilter struct {
	// Name matches exactly, or as a substring when it contains '*'
	Name string

	Category Category

	// Tags must all be present on the tool
	Tags []string

	// Keywords must all appear in the name or description (case-insensitive)
	Keywords []string

	// Version is a constraint such as "1.2.3", ">=1.0.0", "^1.2.0" or "~1.2.0"
	Version string
}

// Find returns the definitions matching filter in registration order. An
// invalid version constraint is reported as an error.
func (r *Registry) Find(filter ToolFilter) ([]*Definition, error) {
	if filter.Version != "" {
		if _, err := matchVersion("0.0.0", filter.Version); err != nil {
			return nil, fmt.Errorf("invalid version filter: %w", err)
		}
	}
	return r.collect(func(def *Definition) bool { return filter.matches(def) }), nil
}

func (f ToolFilter) matches(def *Definition) bool {
	if f.Name != "" {
		if strings.Contains(f.Name, "*") {
			if !strings.Contains(def.name, strings.ReplaceAll(f.Name, "*", "")) {
				return false
			}
		} else if def.name != f.Name {
			return false
		}
	}

	if f.Category != "" && def.category != f.Category {
		return false
	}

	for _, tag := range f.Tags {
		if !def.HasTag(tag) {
			return false
		}
	}

	if len(f.Keywords) > 0 {
		text := strings.ToLower(def.name + " " + def.description)
		for _, keyword := range f.Keywords {
			if !strings.Contains(text, strings.ToLower(keyword)) {
				return false
			}
		}
	}

	if f.Version != "" {
		// Tools without a parseable version never satisfy a version filter.
		ok, err := matchVersion(def.version, f.Version)
		if err != nil || !ok {
			return false
		}
	}

	return true
}
