package tools

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/sirupsen/logrus"
)

var conversionLog = logrus.WithField("component", "tools.schema")

// ToGeneric converts a schema into a JSON-Schema-like map suitable for LLM
// function-calling interfaces. A nil schema yields {"type": "object"}.
func ToGeneric(schema *ParameterSchema) map[string]interface{} {
	if schema == nil {
		conversionLog.Warn("converting nil schema, falling back to empty object")
		return map[string]interface{}{"type": "object"}
	}
	return toGeneric(schema)
}

func toGeneric(s *ParameterSchema) map[string]interface{} {
	out := make(map[string]interface{})
	if s.description != "" {
		out["description"] = s.description
	}
	if s.hasDefault {
		out["default"] = cloneValue(s.def)
	}

	switch s.kind {
	case KindString:
		out["type"] = "string"
		putInt(out, "minLength", s.minLength)
		putInt(out, "maxLength", s.maxLength)
		if s.pattern != nil {
			out["pattern"] = s.pattern.String()
		}

	case KindNumber:
		if s.integer {
			out["type"] = "integer"
		} else {
			out["type"] = "number"
		}
		if s.min != nil {
			out["minimum"] = *s.min
		}
		if s.max != nil {
			out["maximum"] = *s.max
		}

	case KindBoolean:
		out["type"] = "boolean"

	case KindEnum:
		out["type"] = "string"
		values := make([]interface{}, len(s.enum))
		for i, v := range s.enum {
			values[i] = v
		}
		out["enum"] = values

	case KindArray:
		out["type"] = "array"
		if s.items != nil && s.items.kind != KindAny {
			out["items"] = toGeneric(s.items)
		}
		putInt(out, "minItems", s.minLength)
		putInt(out, "maxItems", s.maxLength)

	case KindObject:
		out["type"] = "object"
		properties := make(map[string]interface{}, len(s.fields))
		var required []string
		for _, name := range s.FieldNames() {
			field := s.fields[name]
			properties[name] = toGeneric(field)
			if field.required {
				required = append(required, name)
			}
		}
		out["properties"] = properties
		if len(required) > 0 {
			out["required"] = required
		}

	case KindAny:
		// An empty JSON schema accepts anything.

	default:
		conversionLog.WithField("kind", s.kind).Warn("unknown schema kind, summarizing as object")
		out["type"] = "object"
	}

	return out
}

func putInt(out map[string]interface{}, key string, v *int) {
	if v != nil {
		out[key] = *v
	}
}

// FromGeneric converts a JSON-Schema-like map into a ParameterSchema.
// Unknown or malformed parts become KindAny; failures are logged, never returned.
func FromGeneric(m map[string]interface{}) *ParameterSchema {
	return fromGeneric(m, "")
}

// ParseGeneric decodes a JSON schema document and converts it with FromGeneric.
func ParseGeneric(data []byte) *ParameterSchema {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		conversionLog.WithError(err).Warn("failed to decode generic schema, falling back to any")
		return Any("")
	}
	return FromGeneric(m)
}

func fromGeneric(m map[string]interface{}, path string) *ParameterSchema {
	if m == nil {
		return Any("")
	}

	description, _ := m["description"].(string)
	var opts []SchemaOption
	if def, ok := m["default"]; ok {
		opts = append(opts, Default(def))
	}

	typ, nullable := genericType(m["type"])
	if nullable {
		opts = append(opts, Optional())
	}

	var s *ParameterSchema
	switch typ {
	case "string":
		if values, ok := stringList(m["enum"]); ok && len(values) > 0 {
			s = Enum(description, values, opts...)
			break
		}
		if n, ok := intFrom(m["minLength"]); ok {
			opts = append(opts, MinLength(n))
		}
		if n, ok := intFrom(m["maxLength"]); ok {
			opts = append(opts, MaxLength(n))
		}
		if p, ok := m["pattern"].(string); ok && p != "" {
			opts = append(opts, Pattern(p))
		}
		s = String(description, opts...)

	case "number", "integer":
		if typ == "integer" {
			opts = append(opts, Int())
		}
		if f, ok := toFloat64(m["minimum"]); ok {
			opts = append(opts, Min(f))
		}
		if f, ok := toFloat64(m["maximum"]); ok {
			opts = append(opts, Max(f))
		}
		s = Number(description, opts...)

	case "boolean":
		s = Boolean(description, opts...)

	case "array":
		var items *ParameterSchema
		switch raw := m["items"].(type) {
		case nil:
		case map[string]interface{}:
			items = fromGeneric(raw, path+"[]")
		default:
			conversionLog.WithField("path", path).Warnf("array items is %T, falling back to any", raw)
		}
		if n, ok := intFrom(m["minItems"]); ok {
			opts = append(opts, MinLength(n))
		}
		if n, ok := intFrom(m["maxItems"]); ok {
			opts = append(opts, MaxLength(n))
		}
		s = Array(description, items, opts...)

	case "object":
		s = Object(description, objectFields(m, path), opts...)

	default:
		if values, ok := stringList(m["enum"]); ok && len(values) > 0 {
			s = Enum(description, values, opts...)
			break
		}
		if typ != "" {
			conversionLog.WithFields(logrus.Fields{"path": path, "type": typ}).Warn("unknown schema type, falling back to any")
		}
		s = Any(description, opts...)
	}

	if err := s.Err(); err != nil {
		conversionLog.WithError(err).WithField("path", path).Warn("invalid generic schema, falling back to any")
		return Any(description, Required(s.required))
	}
	return s
}

func objectFields(m map[string]interface{}, path string) map[string]*ParameterSchema {
	required := make(map[string]bool)
	if names, ok := stringList(m["required"]); ok {
		for _, name := range names {
			required[name] = true
		}
	}

	props, ok := m["properties"].(map[string]interface{})
	if !ok {
		if m["properties"] != nil {
			conversionLog.WithField("path", path).Warnf("properties is %T, ignoring", m["properties"])
		}
		return nil
	}

	fields := make(map[string]*ParameterSchema, len(props))
	for name, raw := range props {
		fieldPath := joinPath(path, name)
		prop, ok := raw.(map[string]interface{})
		var field *ParameterSchema
		if ok {
			field = fromGeneric(prop, fieldPath)
		} else {
			conversionLog.WithField("path", fieldPath).Warnf("property is %T, falling back to any", raw)
			field = Any("")
		}
		if required[name] {
			field = field.AsRequired()
		} else {
			field = field.AsOptional()
		}
		fields[name] = field
	}
	return fields
}

// genericType extracts the primary type name. Type lists such as
// ["string", "null"] resolve to the first non-null entry and mark nullable.
func genericType(raw interface{}) (string, bool) {
	switch t := raw.(type) {
	case string:
		return t, false
	case []interface{}:
		typ, nullable := "", false
		for _, entry := range t {
			name, _ := entry.(string)
			if name == "null" {
				nullable = true
			} else if typ == "" {
				typ = name
			}
		}
		return typ, nullable
	case []string:
		list := make([]interface{}, len(t))
		for i, v := range t {
			list[i] = v
		}
		return genericType(list)
	default:
		return "", false
	}
}

func stringList(raw interface{}) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

func intFrom(raw interface{}) (int, bool) {
	f, ok := toFloat64(raw)
	if !ok || f < 0 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// PatchSchema applies an RFC 6902 JSON Patch to the generic form of schema and
// returns the resulting new schema. The input schema is left untouched.
func PatchSchema(schema *ParameterSchema, patch []byte) (*ParameterSchema, error) {
	doc, err := json.Marshal(ToGeneric(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	p, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to decode patch: %w", err)
	}

	patched, err := p.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to apply patch: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(patched, &m); err != nil {
		return nil, fmt.Errorf("failed to decode patched schema: %w", err)
	}

	out := FromGeneric(m)
	if schema != nil && !schema.required {
		out = out.AsOptional()
	}
	return out, nil
}
