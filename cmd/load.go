package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentic-research/seedgraph/internal/batch"
	"github.com/agentic-research/seedgraph/internal/config"
	"github.com/agentic-research/seedgraph/internal/fixture"
	"github.com/agentic-research/seedgraph/internal/metrics"
	"github.com/agentic-research/seedgraph/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	loadMock            bool
	loadDriver          string
	loadDSN             string
	loadAllowPrivileged bool
	loadMetricsOut      string
)

var loadCmd = &cobra.Command{
	Use:   "load [data]",
	Short: "Load a JSON or YAML data file through the schema and commit it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger(cmd)

		schema, err := loadSchema()
		if err != nil {
			return err
		}

		var engine store.Engine
		switch loadDriver {
		case "memory":
			engine = store.NewMemory()
		default:
			dialect, ok := store.DialectByName(loadDriver)
			if !ok {
				return fmt.Errorf("unknown driver %q", loadDriver)
			}
			if loadDSN == "" {
				return fmt.Errorf("--dsn is required for driver %s", loadDriver)
			}
			db, err := store.OpenSQL(ctx, dialect, loadDSN)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			engine = db
		}

		reg := prometheus.NewRegistry()
		rec, err := metrics.New(reg)
		if err != nil {
			return err
		}

		sess := config.NewSession(schema,
			batch.WithEngine(engine),
			batch.WithPrivilegeGate(store.AllowPrivileged(loadAllowPrivileged)),
			batch.WithRecorder(rec),
			batch.WithLogger(logger),
		)

		fs, name, err := openDir(args[0])
		if err != nil {
			return err
		}
		start := time.Now()
		loaded, err := fixture.NewLoader(schema, sess).LoadFile(fs, name)
		if err != nil {
			return err
		}
		logger.Debug("data loaded", "builders", loaded.Count)

		if loadMock {
			res, err := sess.MockAll(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			res, err := sess.PersistAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %d records in order %v (%d privileged skipped) in %v.\n",
				len(res.Committed), res.Order, len(res.Skipped), time.Since(start).Round(time.Millisecond))
		}

		if loadMetricsOut != "" {
			if err := metrics.WriteFile(loadMetricsOut, reg); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
		return nil
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadMock, "mock", false, "Simulate the commit and print the linked records as JSON")
	loadCmd.Flags().StringVar(&loadDriver, "driver", "memory", "Persistence engine: memory, sqlite or pgx")
	loadCmd.Flags().StringVar(&loadDSN, "dsn", "", "Data source name for sqlite or pgx")
	loadCmd.Flags().BoolVar(&loadAllowPrivileged, "allow-privileged", false, "Commit privileged records")
	loadCmd.Flags().StringVar(&loadMetricsOut, "metrics-out", "", "Write Prometheus textfile metrics to this path")
	rootCmd.AddCommand(loadCmd)
}
