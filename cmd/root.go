package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agentic-research/seedgraph/api"
	"github.com/agentic-research/seedgraph/internal/config"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

var (
	schemaPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", config.DefaultPath, "Path to the seedgraph schema (HCL or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

var rootCmd = &cobra.Command{
	Use:           "seedgraph",
	Short:         "Build graphs of related records and commit them in dependency order",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openDir returns an OS filesystem rooted at path's directory and the base
// name to read from it.
func openDir(path string) (billy.Filesystem, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return osfs.New(filepath.Dir(abs)), filepath.Base(abs), nil
}

func loadSchema() (*api.Schema, error) {
	fs, name, err := openDir(schemaPath)
	if err != nil {
		return nil, err
	}
	return config.Load(fs, name)
}
