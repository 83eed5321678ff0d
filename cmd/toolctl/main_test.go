package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin io.Reader, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestListCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "all", args: nil, want: []string{"echo", "json_parse", "json_format", "base64_encode", "base64_decode", "current_time"}},
		{name: "tag", args: []string{"--tag", "json"}, want: []string{"json_parse", "json_format"}},
		{name: "category", args: []string{"--category", "data"}, want: []string{"json_parse", "json_format"}},
		{name: "name pattern", args: []string{"--name", "base64_*"}, want: []string{"base64_encode", "base64_decode"}},
		{name: "keyword", args: []string{"--keyword", "time"}, want: []string{"current_time"}},
		{name: "version", args: []string{"--version", "^2.0.0"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, nil, append([]string{"list"}, tt.args...)...)
			require.NoError(t, res.err)

			listed := decode[[]tools.AgentTool](t, res.stdout)
			names := make([]string, len(listed))
			for i, tool := range listed {
				names[i] = tool.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestListFormats(t *testing.T) {
	res := execute(t, nil, "list", "--name", "echo", "--format", "openai")
	require.NoError(t, res.err)
	openAI := decode[[]tools.OpenAITool](t, res.stdout)
	require.Len(t, openAI, 1)
	assert.Equal(t, "function", openAI[0].Type)
	assert.Equal(t, "echo", openAI[0].Function.Name)

	res = execute(t, nil, "list", "--name", "echo", "--format", "anthropic")
	require.NoError(t, res.err)
	anthropic := decode[[]tools.AnthropicTool](t, res.stdout)
	require.Len(t, anthropic, 1)
	assert.Equal(t, "object", anthropic[0].InputSchema["type"])

	res = execute(t, nil, "list", "--format", "xml")
	assert.ErrorContains(t, res.err, "unknown format")

	res = execute(t, nil, "list", "--version", "banana")
	assert.ErrorContains(t, res.err, "invalid version filter")
}

func TestRunCommand(t *testing.T) {
	res := execute(t, nil, "run", "echo", "--params", `{"text":"hi"}`)
	require.NoError(t, res.err)
	resp := decode[tools.Response](t, res.stdout)
	assert.Equal(t, tools.StatusSuccess, resp.Status)
	assert.Equal(t, "hi", resp.Data)
	assert.NotEmpty(t, resp.Metadata.ExecutionID)

	res = execute(t, nil, "run", "current_time", "--user", "u-1", "--trace", "t-1", "--conversation", "c-1")
	require.NoError(t, res.err)
	resp = decode[tools.Response](t, res.stdout)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u-1", data["user"])
	assert.Equal(t, "t-1", data["traceId"])
	assert.Equal(t, "c-1", data["conversationId"])

	res = execute(t, nil, "run", "nope")
	require.NoError(t, res.err)
	resp = decode[tools.Response](t, res.stdout)
	assert.Equal(t, `Tool "nope" not found`, resp.Error)
}

func TestRunCommandFailures(t *testing.T) {
	res := execute(t, nil, "run", "base64_decode", "--params", `{"data":"%%%"}`)
	require.NoError(t, res.err)
	resp := decode[tools.Response](t, res.stdout)
	assert.Equal(t, tools.StatusError, resp.Status)
	assert.Contains(t, resp.ErrorDetails, "stack")

	res = execute(t, nil, "--env", "production", "run", "base64_decode", "--params", `{"data":"%%%"}`)
	require.NoError(t, res.err)
	resp = decode[tools.Response](t, res.stdout)
	assert.NotContains(t, resp.ErrorDetails, "stack")

	res = execute(t, nil, "run", "base64_decode", "--params", `{"data":"%%%"}`, "--throw")
	assert.ErrorContains(t, res.err, "invalid base64")
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "invalid base64")

	res = execute(t, nil, "run", "echo", "--params", `[1]`)
	assert.ErrorContains(t, res.err, "--params must be a JSON object")

	res = execute(t, nil, "run")
	assert.Error(t, res.err)

	res = execute(t, nil, "--log-level", "loud", "run", "echo")
	assert.ErrorContains(t, res.err, "invalid configuration")
}

func TestStreamCommand(t *testing.T) {
	res := execute(t, nil, "stream", "base64_encode", "--params", `{"data":"hi"}`)
	require.NoError(t, res.err)
	resp := decode[tools.Response](t, res.stdout)
	assert.Equal(t, "aGk=", resp.Data)

	res = execute(t, nil, "stream", "json_parse", "--params", `{"json":"{"}`, "--throw")
	assert.ErrorContains(t, res.err, "invalid JSON")
}

func TestBatchCommand(t *testing.T) {
	input := `[
		{"tool": "echo", "params": {"text": "a"}},
		{"tool": "missing"},
		{"tool": "base64_encode", "params": {"data": "hi"}, "timeout": "1s"},
		{"tool": "current_time", "context": {"traceId": "t-9"}}
	]`

	res := execute(t, strings.NewReader(input), "batch", "--batch-concurrency", "2")
	require.NoError(t, res.err)
	responses := decode[[]tools.Response](t, res.stdout)
	require.Len(t, responses, 4)
	assert.Equal(t, "a", responses[0].Data)
	assert.Equal(t, `Tool "missing" not found`, responses[1].Error)
	assert.Equal(t, "aGk=", responses[2].Data)
	assert.Equal(t, "t-9", responses[3].Data.(map[string]interface{})["traceId"])

	path := filepath.Join(t.TempDir(), "calls.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"tool":"echo","params":{"text":"f"}}]`), 0o644))
	res = execute(t, nil, "batch", "--file", path)
	require.NoError(t, res.err)
	responses = decode[[]tools.Response](t, res.stdout)
	require.Len(t, responses, 1)
	assert.Equal(t, "f", responses[0].Data)

	res = execute(t, strings.NewReader(`[{"tool":"echo","timeout":"soon"}]`), "batch")
	assert.ErrorContains(t, res.err, "invalid timeout")

	res = execute(t, strings.NewReader(`{`), "batch")
	assert.ErrorContains(t, res.err, "decode batch")
}

func TestStatsFlag(t *testing.T) {
	res := execute(t, nil, "--stats", "run", "echo", "--params", `{"text":"x"}`)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "tool stats")
	assert.Contains(t, res.stderr, "tool=echo")
}
