package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"unicode/utf8"
)

// Kind discriminates the shape a ParameterSchema describes.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindEnum    Kind = "enum"
	// KindAny accepts any value. FromGeneric produces it for unknown types.
	KindAny Kind = "any"
)

// ParameterSchema describes the input shape of a tool parameter.
// A schema is immutable: the With*/As* helpers and PatchSchema return new values.
type ParameterSchema struct {
	kind        Kind
	description string
	required    bool
	hasDefault  bool
	def         interface{}
	minLength   *int
	maxLength   *int
	min         *float64
	max         *float64
	pattern     *regexp.Regexp
	integer     bool
	enum        []string
	items       *ParameterSchema
	fields      map[string]*ParameterSchema

	// err records a construction problem (bad regex, empty enum, bad default).
	err error
}

type schemaOptions struct {
	required   bool
	hasDefault bool
	def        interface{}
	minLength  *int
	maxLength  *int
	min        *float64
	max        *float64
	pattern    string
	integer    bool
	enum       []string
	enumSet    bool
}

// SchemaOption configures a schema produced by one of the factories.
type SchemaOption func(*schemaOptions)

// Optional marks the value as not required.
func Optional() SchemaOption {
	return func(o *schemaOptions) { o.required = false }
}

// Required sets whether the value must be present. Schemas are required by default.
func Required(required bool) SchemaOption {
	return func(o *schemaOptions) { o.required = required }
}

// Default sets the value used when an optional field is absent.
func Default(value interface{}) SchemaOption {
	return func(o *schemaOptions) {
		o.hasDefault = true
		o.def = cloneValue(value)
	}
}

// MinLength sets the minimum string length (runes) or array length.
func MinLength(n int) SchemaOption {
	return func(o *schemaOptions) { o.minLength = &n }
}

// MaxLength sets the maximum string length (runes) or array length.
func MaxLength(n int) SchemaOption {
	return func(o *schemaOptions) { o.maxLength = &n }
}

// Min sets the inclusive numeric minimum.
func Min(v float64) SchemaOption {
	return func(o *schemaOptions) { o.min = &v }
}

// Max sets the inclusive numeric maximum.
func Max(v float64) SchemaOption {
	return func(o *schemaOptions) { o.max = &v }
}

// Pattern restricts strings to those matching the regular expression.
func Pattern(expr string) SchemaOption {
	return func(o *schemaOptions) { o.pattern = expr }
}

// Int restricts numbers to integral values.
func Int() SchemaOption {
	return func(o *schemaOptions) { o.integer = true }
}

// OneOf turns the schema into an enum of the given strings, whatever factory
// it is passed to.
func OneOf(values ...string) SchemaOption {
	return func(o *schemaOptions) {
		o.enum = append([]string(nil), values...)
		o.enumSet = true
	}
}

// String creates a string schema.
func String(description string, opts ...SchemaOption) *ParameterSchema {
	return newSchema(KindString, description, nil, nil, opts)
}

// Number creates a number schema. Use Int() to require integers.
func Number(description string, opts ...SchemaOption) *ParameterSchema {
	return newSchema(KindNumber, description, nil, nil, opts)
}

// Boolean creates a boolean schema.
func Boolean(description string, opts ...SchemaOption) *ParameterSchema {
	return newSchema(KindBoolean, description, nil, nil, opts)
}

// Array creates an array schema whose elements match items.
// A nil items schema accepts any element.
func Array(description string, items *ParameterSchema, opts ...SchemaOption) *ParameterSchema {
	if items == nil {
		items = Any("")
	}
	return newSchema(KindArray, description, items, nil, opts)
}

// Object creates an object schema with the given fields.
func Object(description string, fields map[string]*ParameterSchema, opts ...SchemaOption) *ParameterSchema {
	copied := make(map[string]*ParameterSchema, len(fields))
	for name, field := range fields {
		if field == nil {
			field = Any("", Optional())
		}
		copied[name] = field
	}
	return newSchema(KindObject, description, nil, copied, opts)
}

// Enum creates a restricted-string schema.
func Enum(description string, values []string, opts ...SchemaOption) *ParameterSchema {
	return newSchema(KindEnum, description, nil, nil, append([]SchemaOption{OneOf(values...)}, opts...))
}

// Any creates a schema that accepts any value.
func Any(description string, opts ...SchemaOption) *ParameterSchema {
	return newSchema(KindAny, description, nil, nil, opts)
}

func newSchema(kind Kind, description string, items *ParameterSchema, fields map[string]*ParameterSchema, opts []SchemaOption) *ParameterSchema {
	o := schemaOptions{required: true}
	for _, opt := range opts {
		opt(&o)
	}

	s := &ParameterSchema{
		kind:        kind,
		description: description,
		required:    o.required,
		hasDefault:  o.hasDefault,
		def:         o.def,
		minLength:   o.minLength,
		maxLength:   o.maxLength,
		min:         o.min,
		max:         o.max,
		integer:     o.integer,
		items:       items,
		fields:      fields,
	}

	if o.enumSet {
		s.kind = KindEnum
		s.enum = o.enum
		if len(o.enum) == 0 {
			s.err = errors.New("enum requires at least one value")
		}
	}

	if o.pattern != "" {
		re, err := regexp.Compile(o.pattern)
		if err != nil {
			s.err = fmt.Errorf("invalid pattern %q: %w", o.pattern, err)
		} else {
			s.pattern = re
		}
	}

	if s.err == nil {
		s.err = s.childErr()
	}
	if s.err == nil {
		s.err = s.checkDefault()
	}

	return s
}

// checkDefault validates the default against the schema and stores the
// normalized form.
func (s *ParameterSchema) checkDefault() error {
	if !s.hasDefault {
		return nil
	}
	normalized, verr := s.validate(s.def, "default")
	if verr != nil {
		return fmt.Errorf("default does not match schema: %w", verr)
	}
	s.def = normalized
	return nil
}

func (s *ParameterSchema) childErr() error {
	if s.items != nil && s.items.err != nil {
		return fmt.Errorf("items: %w", s.items.err)
	}
	for _, name := range s.FieldNames() {
		if err := s.fields[name].err; err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

// Kind returns the schema kind.
func (s *ParameterSchema) Kind() Kind { return s.kind }

// Description returns the human-readable description.
func (s *ParameterSchema) Description() string { return s.description }

// IsRequired reports whether the value must be present.
func (s *ParameterSchema) IsRequired() bool { return s.required }

// Default returns a copy of the default value, if one was set.
func (s *ParameterSchema) Default() (interface{}, bool) { return cloneValue(s.def), s.hasDefault }

// MinLength returns the minimum length constraint.
func (s *ParameterSchema) MinLength() (int, bool) { return derefInt(s.minLength) }

// MaxLength returns the maximum length constraint.
func (s *ParameterSchema) MaxLength() (int, bool) { return derefInt(s.maxLength) }

// Min returns the numeric minimum.
func (s *ParameterSchema) Min() (float64, bool) { return derefFloat(s.min) }

// Max returns the numeric maximum.
func (s *ParameterSchema) Max() (float64, bool) { return derefFloat(s.max) }

// Pattern returns the regular expression source, or "".
func (s *ParameterSchema) Pattern() string {
	if s.pattern == nil {
		return ""
	}
	return s.pattern.String()
}

// IsInt reports whether a number schema only accepts integers.
func (s *ParameterSchema) IsInt() bool { return s.integer }

// EnumValues returns a copy of the allowed enum values.
func (s *ParameterSchema) EnumValues() []string { return append([]string(nil), s.enum...) }

// Items returns the element schema of an array.
func (s *ParameterSchema) Items() *ParameterSchema { return s.items }

// Field returns the schema of a named object field.
func (s *ParameterSchema) Field(name string) (*ParameterSchema, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// FieldNames returns the object field names in sorted order.
func (s *ParameterSchema) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err returns the construction error, if the schema is unusable.
func (s *ParameterSchema) Err() error { return s.err }

// AsOptional returns a copy of the schema that is not required.
func (s *ParameterSchema) AsOptional() *ParameterSchema {
	c := s.clone()
	c.required = false
	return c
}

// AsRequired returns a copy of the schema that is required.
func (s *ParameterSchema) AsRequired() *ParameterSchema {
	c := s.clone()
	c.required = true
	return c
}

// WithDescription returns a copy with a new description.
func (s *ParameterSchema) WithDescription(description string) *ParameterSchema {
	c := s.clone()
	c.description = description
	return c
}

// Extend returns a copy of an object schema with additional or replaced fields.
func (s *ParameterSchema) Extend(fields map[string]*ParameterSchema) *ParameterSchema {
	c := s.clone()
	if c.kind != KindObject {
		c.err = fmt.Errorf("cannot extend %s schema", c.kind)
		return c
	}
	for name, field := range fields {
		if field == nil {
			field = Any("", Optional())
		}
		c.fields[name] = field
	}
	if c.err == nil {
		c.err = c.childErr()
	}
	if c.err == nil {
		c.err = c.checkDefault()
	}
	return c
}

// clone copies the top level. Children are immutable and shared.
func (s *ParameterSchema) clone() *ParameterSchema {
	c := *s
	if s.fields != nil {
		c.fields = make(map[string]*ParameterSchema, len(s.fields))
		for k, v := range s.fields {
			c.fields[k] = v
		}
	}
	c.enum = s.EnumValues()
	return &c
}

// Validate checks value against the schema and returns the normalized value:
// defaults applied to absent optional fields, unknown object keys dropped and
// numbers converted to float64.
func (s *ParameterSchema) Validate(value interface{}) (interface{}, error) {
	if s == nil {
		return value, nil
	}
	if s.err != nil {
		return nil, newValidationError("", "invalid schema: "+s.err.Error())
	}
	if value == nil {
		if s.required {
			return nil, newValidationError("", "required value is missing")
		}
		if s.hasDefault {
			return cloneValue(s.def), nil
		}
		return nil, nil
	}
	out, verr := s.validate(value, "")
	if verr != nil {
		return nil, verr
	}
	return out, nil
}

func (s *ParameterSchema) validate(value interface{}, path string) (interface{}, *ValidationError) {
	switch s.kind {
	case KindString:
		return s.validateString(value, path)
	case KindNumber:
		return s.validateNumber(value, path)
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return nil, newValidationError(path, fmt.Sprintf("expected boolean, got %T", value))
		}
		return value, nil
	case KindEnum:
		return s.validateEnum(value, path)
	case KindArray:
		return s.validateArray(value, path)
	case KindObject:
		return s.validateObject(value, path)
	case KindAny:
		return value, nil
	default:
		return nil, newValidationError(path, fmt.Sprintf("unknown schema kind %q", s.kind))
	}
}

func (s *ParameterSchema) validateString(value interface{}, path string) (interface{}, *ValidationError) {
	str, ok := value.(string)
	if !ok {
		return nil, newValidationError(path, fmt.Sprintf("expected string, got %T", value))
	}

	n := utf8.RuneCountInString(str)
	if s.minLength != nil && n < *s.minLength {
		return nil, newValidationError(path, fmt.Sprintf("string length %d is less than minimum %d", n, *s.minLength))
	}
	if s.maxLength != nil && n > *s.maxLength {
		return nil, newValidationError(path, fmt.Sprintf("string length %d is greater than maximum %d", n, *s.maxLength))
	}

	if s.pattern != nil && !s.pattern.MatchString(str) {
		return nil, newValidationError(path, fmt.Sprintf("string %q does not match pattern %q", str, s.pattern.String()))
	}

	return str, nil
}

func (s *ParameterSchema) validateNumber(value interface{}, path string) (interface{}, *ValidationError) {
	num, ok := toFloat64(value)
	if !ok {
		return nil, newValidationError(path, fmt.Sprintf("expected number, got %T", value))
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return nil, newValidationError(path, fmt.Sprintf("expected finite number, got %v", num))
	}

	if s.integer && math.Trunc(num) != num {
		return nil, newValidationError(path, fmt.Sprintf("expected integer, got %v", num))
	}

	if s.min != nil && num < *s.min {
		return nil, newValidationError(path, fmt.Sprintf("value %v is less than minimum %v", num, *s.min))
	}
	if s.max != nil && num > *s.max {
		return nil, newValidationError(path, fmt.Sprintf("value %v is greater than maximum %v", num, *s.max))
	}

	return num, nil
}

func (s *ParameterSchema) validateEnum(value interface{}, path string) (interface{}, *ValidationError) {
	str, ok := value.(string)
	if !ok {
		return nil, newValidationError(path, fmt.Sprintf("expected string, got %T", value))
	}
	for _, allowed := range s.enum {
		if allowed == str {
			return str, nil
		}
	}
	return nil, newValidationError(path, fmt.Sprintf("value %q is not in enum %v", str, s.enum))
}

func (s *ParameterSchema) validateArray(value interface{}, path string) (interface{}, *ValidationError) {
	var arr []interface{}
	switch v := value.(type) {
	case []interface{}:
		arr = v
	case []string:
		arr = make([]interface{}, len(v))
		for i, item := range v {
			arr[i] = item
		}
	default:
		return nil, newValidationError(path, fmt.Sprintf("expected array, got %T", value))
	}

	if s.minLength != nil && len(arr) < *s.minLength {
		return nil, newValidationError(path, fmt.Sprintf("array length %d is less than minimum %d", len(arr), *s.minLength))
	}
	if s.maxLength != nil && len(arr) > *s.maxLength {
		return nil, newValidationError(path, fmt.Sprintf("array length %d is greater than maximum %d", len(arr), *s.maxLength))
	}

	out := make([]interface{}, len(arr))
	for i, item := range arr {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if item == nil {
			return nil, newValidationError(itemPath, "value cannot be null")
		}
		v, verr := s.items.validate(item, itemPath)
		if verr != nil {
			return nil, verr
		}
		out[i] = v
	}
	return out, nil
}

func (s *ParameterSchema) validateObject(value interface{}, path string) (interface{}, *ValidationError) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, newValidationError(path, fmt.Sprintf("expected object, got %T", value))
	}

	out := make(map[string]interface{}, len(s.fields))
	for _, name := range s.FieldNames() {
		field := s.fields[name]
		fieldPath := joinPath(path, name)
		raw, present := obj[name]

		if !present || raw == nil {
			if field.required {
				return nil, newValidationError(fieldPath, "required property is missing")
			}
			if field.hasDefault {
				out[name] = cloneValue(field.def)
			}
			continue
		}

		v, verr := field.validate(raw, fieldPath)
		if verr != nil {
			return nil, verr
		}
		out[name] = v
	}
	return out, nil
}

// cloneValue deep-copies JSON containers so no caller shares a stored default.
func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// joinPath joins path segments for error reporting.
func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func derefInt(p *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func derefFloat(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
