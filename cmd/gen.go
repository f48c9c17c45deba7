package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/seedgraph/internal/codegen"
	"github.com/spf13/cobra"
)

var (
	genPackage string
	genOut     string
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate Go constants for the schema's entity types and fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := loadSchema()
		if err != nil {
			return err
		}
		src, err := codegen.Generate(schema, genPackage)
		if err != nil {
			return err
		}
		if genOut == "" {
			_, err = cmd.OutOrStdout().Write(src)
			return err
		}
		if err := os.WriteFile(genOut, src, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", genOut, err)
		}
		return nil
	},
}

func init() {
	genCmd.Flags().StringVar(&genPackage, "package", "seeds", "Package name of the generated file")
	genCmd.Flags().StringVarP(&genOut, "out", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(genCmd)
}
