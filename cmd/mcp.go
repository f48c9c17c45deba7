package cmd

import (
	"github.com/agentic-research/seedgraph/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve commit_order and simulate as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.ServeStdio(mcpserver.New(version, newLogger(cmd)))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
