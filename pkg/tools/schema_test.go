package tools_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

func TestSchemaFactories(t *testing.T) {
	t.Run("required by default", func(t *testing.T) {
		s := tools.String("name")
		assert.Equal(t, tools.KindString, s.Kind())
		assert.Equal(t, "name", s.Description())
		assert.True(t, s.IsRequired())
		assert.NoError(t, s.Err())
	})

	t.Run("optional", func(t *testing.T) {
		assert.False(t, tools.Number("n", tools.Optional()).IsRequired())
		assert.False(t, tools.Boolean("b", tools.Required(false)).IsRequired())
	})

	t.Run("enum option turns any kind into enum", func(t *testing.T) {
		s := tools.String("unit", tools.OneOf("celsius", "fahrenheit"), tools.MinLength(3))
		assert.Equal(t, tools.KindEnum, s.Kind())
		assert.Equal(t, []string{"celsius", "fahrenheit"}, s.EnumValues())
	})

	t.Run("empty enum is a construction error", func(t *testing.T) {
		assert.Error(t, tools.Enum("none", nil).Err())
	})

	t.Run("invalid pattern is kept as error", func(t *testing.T) {
		s := tools.String("code", tools.Pattern("([a-z"))
		require.Error(t, s.Err())
		assert.Contains(t, s.Err().Error(), "invalid pattern")
	})

	t.Run("child errors propagate", func(t *testing.T) {
		s := tools.Object("", map[string]*tools.ParameterSchema{
			"bad": tools.String("", tools.Pattern("(")),
		})
		assert.Error(t, s.Err())
	})

	t.Run("default must match the schema", func(t *testing.T) {
		assert.Error(t, tools.Number("n", tools.Default("ten")).Err())

		s := tools.Number("n", tools.Default(10))
		require.NoError(t, s.Err())
		def, ok := s.Default()
		assert.True(t, ok)
		assert.Equal(t, float64(10), def)
	})

	t.Run("constraints are readable", func(t *testing.T) {
		s := tools.String("s", tools.MinLength(2), tools.MaxLength(5), tools.Pattern("^[a-z]+$"))
		minLen, ok := s.MinLength()
		assert.True(t, ok)
		assert.Equal(t, 2, minLen)
		maxLen, ok := s.MaxLength()
		assert.True(t, ok)
		assert.Equal(t, 5, maxLen)
		assert.Equal(t, "^[a-z]+$", s.Pattern())

		n := tools.Number("n", tools.Int(), tools.Min(1))
		assert.True(t, n.IsInt())
		_, hasMax := n.Max()
		assert.False(t, hasMax)
	})
}

func TestSchemaCopyHelpers(t *testing.T) {
	base := tools.Object("base", map[string]*tools.ParameterSchema{
		"a": tools.String("a"),
	})

	optional := base.AsOptional()
	assert.True(t, base.IsRequired())
	assert.False(t, optional.IsRequired())
	assert.True(t, optional.AsRequired().IsRequired())

	described := base.WithDescription("other")
	assert.Equal(t, "base", base.Description())
	assert.Equal(t, "other", described.Description())

	extended := base.Extend(map[string]*tools.ParameterSchema{
		"b": tools.Number("b", tools.Optional()),
	})
	assert.Equal(t, []string{"a"}, base.FieldNames())
	assert.Equal(t, []string{"a", "b"}, extended.FieldNames())

	assert.Error(t, tools.String("s").Extend(nil).Err())
}

func TestSchemaExtendRechecksDefault(t *testing.T) {
	base := tools.Object("base", map[string]*tools.ParameterSchema{
		"a": tools.String("a", tools.Optional()),
	}, tools.Optional(), tools.Default(map[string]interface{}{"a": "x"}))
	require.NoError(t, base.Err())

	broken := base.Extend(map[string]*tools.ParameterSchema{
		"b": tools.Number("b"),
	})
	require.Error(t, broken.Err())
	assert.Contains(t, broken.Err().Error(), "default does not match schema")
	assert.NoError(t, base.Err())

	filled := base.Extend(map[string]*tools.ParameterSchema{
		"b": tools.Number("b", tools.Optional(), tools.Default(1)),
	})
	require.NoError(t, filled.Err())
	def, ok := filled.Default()
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"a": "x", "b": float64(1)}, def)
}

func TestSchemaDefaultsAreCopied(t *testing.T) {
	source := map[string]interface{}{"tags": []interface{}{"a"}}
	s := tools.Any("settings", tools.Optional(), tools.Default(source))
	source["tags"] = "changed"

	first, err := s.Validate(nil)
	require.NoError(t, err)
	first.(map[string]interface{})["tags"].([]interface{})[0] = "mutated"

	second, err := s.Validate(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"tags": []interface{}{"a"}}, second)

	def, _ := s.Default()
	def.(map[string]interface{})["extra"] = true
	generic := tools.ToGeneric(s)
	generic["default"].(map[string]interface{})["extra"] = true

	again, _ := s.Default()
	assert.Equal(t, map[string]interface{}{"tags": []interface{}{"a"}}, again)
}

func TestSchemaValidate(t *testing.T) {
	user := tools.Object("user", map[string]*tools.ParameterSchema{
		"name":  tools.String("name", tools.MinLength(1)),
		"age":   tools.Number("age", tools.Int(), tools.Min(0), tools.Optional()),
		"role":  tools.Enum("role", []string{"admin", "member"}, tools.Optional(), tools.Default("member")),
		"tags":  tools.Array("tags", tools.String("tag"), tools.Optional(), tools.MaxLength(2)),
		"extra": tools.Any("anything", tools.Optional()),
	})

	tests := []struct {
		name    string
		input   interface{}
		want    interface{}
		wantErr string
	}{
		{
			name:  "defaults applied and unknown keys dropped",
			input: map[string]interface{}{"name": "ada", "unknown": true},
			want:  map[string]interface{}{"name": "ada", "role": "member"},
		},
		{
			name:  "numbers normalized to float64",
			input: map[string]interface{}{"name": "ada", "age": 36, "role": "admin"},
			want:  map[string]interface{}{"name": "ada", "age": float64(36), "role": "admin"},
		},
		{
			name:  "json numbers accepted",
			input: map[string]interface{}{"name": "ada", "age": json.Number("7")},
			want:  map[string]interface{}{"name": "ada", "age": float64(7), "role": "member"},
		},
		{
			name:  "string slices accepted as arrays",
			input: map[string]interface{}{"name": "ada", "tags": []string{"x"}},
			want:  map[string]interface{}{"name": "ada", "role": "member", "tags": []interface{}{"x"}},
		},
		{
			name:    "missing required property",
			input:   map[string]interface{}{},
			wantErr: "name: required property is missing",
		},
		{
			name:    "nil counts as absent",
			input:   map[string]interface{}{"name": nil},
			wantErr: "name: required property is missing",
		},
		{
			name:    "wrong type",
			input:   map[string]interface{}{"name": 5},
			wantErr: "name: expected string, got int",
		},
		{
			name:    "integer constraint",
			input:   map[string]interface{}{"name": "ada", "age": 1.5},
			wantErr: "age: expected integer",
		},
		{
			name:    "minimum",
			input:   map[string]interface{}{"name": "ada", "age": -1},
			wantErr: "age: value -1 is less than minimum 0",
		},
		{
			name:    "enum membership",
			input:   map[string]interface{}{"name": "ada", "role": "owner"},
			wantErr: "role: value \"owner\" is not in enum",
		},
		{
			name:    "array length",
			input:   map[string]interface{}{"name": "ada", "tags": []interface{}{"a", "b", "c"}},
			wantErr: "tags: array length 3 is greater than maximum 2",
		},
		{
			name:    "indexed array path",
			input:   map[string]interface{}{"name": "ada", "tags": []interface{}{"a", 2}},
			wantErr: "tags[1]: expected string, got int",
		},
		{
			name:    "not an object",
			input:   "ada",
			wantErr: "expected object, got string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := user.Validate(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, errors.Is(err, tools.ErrValidationFailed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaValidateNestedPath(t *testing.T) {
	s := tools.Object("", map[string]*tools.ParameterSchema{
		"items": tools.Array("", tools.Object("", map[string]*tools.ParameterSchema{
			"name": tools.String("name"),
		})),
	})

	_, err := s.Validate(map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"name": "a"},
			map[string]interface{}{"name": "b"},
			map[string]interface{}{},
		},
	})

	var verr *tools.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "items[2].name", verr.Path)
	assert.Equal(t, "required property is missing", verr.Message)
}

func TestSchemaValidateTopLevel(t *testing.T) {
	t.Run("missing required value", func(t *testing.T) {
		_, err := tools.String("s").Validate(nil)
		assert.Error(t, err)
	})

	t.Run("missing optional value uses default", func(t *testing.T) {
		v, err := tools.String("s", tools.Optional(), tools.Default("x")).Validate(nil)
		require.NoError(t, err)
		assert.Equal(t, "x", v)
	})

	t.Run("required field with default is still required", func(t *testing.T) {
		s := tools.Object("", map[string]*tools.ParameterSchema{
			"mode": tools.String("mode", tools.Default("fast")),
		})
		_, err := s.Validate(map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("invalid schema never validates", func(t *testing.T) {
		_, err := tools.String("s", tools.Pattern("[")).Validate("x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid schema")
	})

	t.Run("pattern and rune length", func(t *testing.T) {
		s := tools.String("s", tools.Pattern("^[a-z]+$"), tools.MaxLength(3))
		_, err := s.Validate("abc")
		assert.NoError(t, err)
		_, err = s.Validate("ab1")
		assert.Error(t, err)

		v, err := tools.String("s", tools.MaxLength(2)).Validate("日本")
		assert.NoError(t, err)
		assert.Equal(t, "日本", v)
	})
}
