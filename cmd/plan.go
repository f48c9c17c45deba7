package cmd

import (
	"fmt"

	"github.com/agentic-research/seedgraph/internal/config"
	"github.com/spf13/cobra"
)

var planReverse bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the commit order of the schema's entity types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := loadSchema()
		if err != nil {
			return err
		}
		g := config.NewSession(schema).Graph()
		order, err := g.TopologicalOrder()
		if planReverse {
			order, err = g.DependentsFirst()
		}
		if err != nil {
			return err
		}
		for i, t := range order {
			deps := g.Dependencies(t)
			if len(deps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, t)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (after %v)\n", i+1, t, deps)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVar(&planReverse, "reverse", false, "List dependents first")
	rootCmd.AddCommand(planCmd)
}
