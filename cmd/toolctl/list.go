package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ag-ui/agent-tools/pkg/tools"
)

func newListCmd(a *app) *cobra.Command {
	var (
		filter tools.ToolFilter
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := a.registry.Find(filter)
			if err != nil {
				return err
			}
			agentTools := make([]tools.AgentTool, len(defs))
			for i, def := range defs {
				agentTools[i] = def.AgentTool()
			}

			switch format {
			case "agent":
				return a.writeJSON(agentTools)
			case "openai":
				out := make([]tools.OpenAITool, len(agentTools))
				for i, t := range agentTools {
					out[i] = tools.ConvertToOpenAITool(t)
				}
				return a.writeJSON(out)
			case "anthropic":
				out := make([]tools.AnthropicTool, len(agentTools))
				for i, t := range agentTools {
					out[i] = tools.ConvertToAnthropicTool(t)
				}
				return a.writeJSON(out)
			default:
				return fmt.Errorf("unknown format %q (want agent, openai or anthropic)", format)
			}
		},
	}

	cmd.Flags().StringVar(&filter.Name, "name", "", "exact tool name, or a pattern containing *")
	cmd.Flags().StringVar((*string)(&filter.Category), "category", "", "only tools in this category")
	cmd.Flags().StringSliceVar(&filter.Tags, "tag", nil, "only tools carrying every given tag")
	cmd.Flags().StringSliceVar(&filter.Keywords, "keyword", nil, "only tools whose name or description contains every keyword")
	cmd.Flags().StringVar(&filter.Version, "version", "", "version constraint such as ^1.0.0")
	cmd.Flags().StringVar(&format, "format", "agent", "output format: agent, openai or anthropic")
	return cmd
}
