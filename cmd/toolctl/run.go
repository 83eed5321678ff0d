package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

// callFlags are the per-call settings shared by run and stream.
type callFlags struct {
	params       string
	timeout      time.Duration
	throw        bool
	user         string
	trace        string
	conversation string
}

func (f *callFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.params, "params", "p", "", "tool parameters as a JSON object")
	cmd.Flags().DurationVar(&f.timeout, "call-timeout", 0, "timeout for this call (default: the configured timeout)")
	cmd.Flags().BoolVar(&f.throw, "throw", false, "fail the command when the tool fails instead of printing the error envelope")
	cmd.Flags().StringVar(&f.user, "user", "", "user ID passed to contextual tools")
	cmd.Flags().StringVar(&f.trace, "trace", "", "trace ID passed to contextual tools")
	cmd.Flags().StringVar(&f.conversation, "conversation", "", "conversation ID passed to contextual tools")
}

func (f *callFlags) decodeParams() (map[string]interface{}, error) {
	if f.params == "" {
		return nil, nil
	}
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(f.params), &params); err != nil {
		return nil, fmt.Errorf("--params must be a JSON object: %w", err)
	}
	return params, nil
}

func (f *callFlags) options() tools.ExecutionOptions {
	opts := tools.ExecutionOptions{
		Timeout:      f.timeout,
		ThrowOnError: f.throw,
		Context: tools.ExecutionContext{
			TraceID:        f.trace,
			ConversationID: f.conversation,
		},
	}
	if f.user != "" {
		opts.Context.User = &tools.User{ID: f.user}
	}
	return opts
}

func newRunCmd(a *app) *cobra.Command {
	var flags callFlags
	cmd := &cobra.Command{
		Use:   "run <tool>",
		Short: "Execute a tool and print its response envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.decodeParams()
			if err != nil {
				return err
			}
			resp, err := a.engine.ExecuteToolByName(cmd.Context(), args[0], params, flags.options())
			if err != nil {
				return err
			}
			return a.writeJSON(resp)
		},
	}
	flags.register(cmd)
	return cmd
}

func newStreamCmd(a *app) *cobra.Command {
	var flags callFlags
	cmd := &cobra.Command{
		Use:   "stream <tool>",
		Short: "Execute a tool through the streaming interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.decodeParams()
			if err != nil {
				return err
			}
			for ev := range a.engine.StreamToolExecution(cmd.Context(), args[0], params, flags.options()) {
				if ev.Err != nil {
					return ev.Err
				}
				if err := a.writeJSON(ev.Response); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
