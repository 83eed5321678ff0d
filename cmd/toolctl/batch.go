package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

// batchItem is one entry of a batch file.
type batchItem struct {
	Tool    string                 `json:"tool"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Timeout string                 `json:"timeout,omitempty"`
	Context tools.ExecutionContext `json:"context,omitempty"`
}

func (b batchItem) execution() (tools.BatchExecution, error) {
	ex := tools.BatchExecution{
		Tool:   b.Tool,
		Params: b.Params,
		Options: tools.ExecutionOptions{
			Context: b.Context,
		},
	}
	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return ex, fmt.Errorf("tool %q: invalid timeout %q: %w", b.Tool, b.Timeout, err)
		}
		ex.Options.Timeout = d
	}
	return ex, nil
}

func newBatchCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Execute a JSON array of tool calls concurrently",
		Long: `Execute a JSON array of tool calls concurrently and print the response
envelopes in input order. Each entry has the form
  {"tool": "echo", "params": {"text": "hi"}, "timeout": "2s", "context": {"traceId": "t1"}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := readBatch(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			executions := make([]tools.BatchExecution, len(items))
			for i, item := range items {
				if executions[i], err = item.execution(); err != nil {
					return err
				}
			}
			return a.writeJSON(a.engine.BatchExecuteTools(cmd.Context(), executions))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "batch file, - reads stdin")
	return cmd
}

func readBatch(path string, stdin io.Reader) ([]batchItem, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open batch file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var items []batchItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return items, nil
}
