package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// builtinVersion is attached to every builtin tool.
const builtinVersion = "1.0.0"

// RegisterBuiltinTools defines the builtin tools into registry.
func RegisterBuiltinTools(registry *Registry) error {
	builders := []func(*Registry) (*Definition, error){
		newEchoTool,
		newJSONParseTool,
		newJSONFormatTool,
		newBase64EncodeTool,
		newBase64DecodeTool,
		newCurrentTimeTool,
	}
	for _, build := range builders {
		if _, err := build(registry); err != nil {
			return pkgerrors.Wrap(err, "failed to register builtin tool")
		}
	}
	return nil
}

func newEchoTool(r *Registry) (*Definition, error) {
	return DefineTool(ToolConfig{
		Name:        "echo",
		Description: "Return the given text unchanged",
		Parameters: Object("", map[string]*ParameterSchema{
			"text": String("The text to echo back"),
		}),
		Category: CategoryUtility,
		Version:  builtinVersion,
		Tags:     []string{"builtin", "text"},
	}, func(_ context.Context, params map[string]interface{}) (interface{}, error) {
		return params["text"], nil
	}, WithRegistry(r))
}

func newJSONParseTool(r *Registry) (*Definition, error) {
	return DefineTool(ToolConfig{
		Name:        "json_parse",
		Description: "Parse JSON string into structured data",
		Parameters: Object("", map[string]*ParameterSchema{
			"json": String("The JSON string to parse", MinLength(1)),
		}),
		Category: CategoryData,
		Version:  builtinVersion,
		Tags:     []string{"builtin", "json"},
	}, func(_ context.Context, params map[string]interface{}) (interface{}, error) {
		var data interface{}
		if err := json.Unmarshal([]byte(params["json"].(string)), &data); err != nil {
			return nil, pkgerrors.Wrap(err, "invalid JSON")
		}
		return data, nil
	}, WithRegistry(r))
}

func newJSONFormatTool(r *Registry) (*Definition, error) {
	return DefineTool(ToolConfig{
		Name:        "json_format",
		Description: "Format data as pretty-printed JSON",
		Parameters: Object("", map[string]*ParameterSchema{
			"data":   Any("The data to format as JSON"),
			"indent": Number("Number of spaces for indentation", Int(), Min(0), Max(8), Optional(), Default(2)),
		}),
		Category: CategoryData,
		Version:  builtinVersion,
		Tags:     []string{"builtin", "json"},
	}, func(_ context.Context, params map[string]interface{}) (interface{}, error) {
		indent := 2
		if f, ok := params["indent"].(float64); ok {
			indent = int(f)
		}
		formatted, err := json.MarshalIndent(params["data"], "", strings.Repeat(" ", indent))
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to format JSON")
		}
		return string(formatted), nil
	}, WithRegistry(r))
}

func newBase64EncodeTool(r *Registry) (*Definition, error) {
	return DefineTool(ToolConfig{
		Name:        "base64_encode",
		Description: "Encode data to base64",
		Parameters: Object("", map[string]*ParameterSchema{
			"data": String("The data to encode"),
		}),
		Category: CategoryUtility,
		Version:  builtinVersion,
		Tags:     []string{"builtin", "encoding"},
	}, func(_ context.Context, params map[string]interface{}) (interface{}, error) {
		return base64.StdEncoding.EncodeToString([]byte(params["data"].(string))), nil
	}, WithRegistry(r))
}

func newBase64DecodeTool(r *Registry) (*Definition, error) {
	return DefineTool(ToolConfig{
		Name:        "base64_decode",
		Description: "Decode base64 data",
		Parameters: Object("", map[string]*ParameterSchema{
			"data": String("The base64 data to decode"),
		}),
		Category: CategoryUtility,
		Version:  builtinVersion,
		Tags:     []string{"builtin", "encoding"},
	}, func(_ context.Context, params map[string]interface{}) (interface{}, error) {
		decoded, err := base64.StdEncoding.DecodeString(params["data"].(string))
		if err != nil {
			return nil, pkgerrors.Wrap(err, "invalid base64")
		}
		return string(decoded), nil
	}, WithRegistry(r))
}

func newCurrentTimeTool(r *Registry) (*Definition, error) {
	return DefineContextualTool(ToolConfig{
		Name:        "current_time",
		Description: "Report the current time along with the calling user and trace",
		Parameters: Object("", map[string]*ParameterSchema{
			"timezone": String("IANA time zone name", Optional(), Default("UTC")),
		}),
		Category: CategoryUtility,
		Version:  builtinVersion,
		Tags:     []string{"builtin", "time"},
	}, func(_ context.Context, params map[string]interface{}, ec ExecutionContext) (interface{}, error) {
		zone, _ := params["timezone"].(string)
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "unknown time zone %q", zone)
		}

		out := map[string]interface{}{
			"time":     time.Now().In(loc).Format(time.RFC3339),
			"timezone": loc.String(),
		}
		if ec.User != nil {
			out["user"] = ec.User.ID
		}
		if ec.TraceID != "" {
			out["traceId"] = ec.TraceID
		}
		if ec.ConversationID != "" {
			out["conversationId"] = ec.ConversationID
		}
		return out, nil
	}, WithRegistry(r))
}
