// Command clusterctl is a thin entry point that drives the clustering
// orchestrator as a maintenance job. It is not part of the core
// component set; it exists only to give the ambient configuration,
// logging, and metrics stack somewhere to run.
package main

import (
	"clustercore/pkg/clustering/boundary"
	"clustercore/pkg/clustering/orchestrator"
	"clustercore/pkg/clustering/partitioner"
	"clustercore/pkg/config"
	"clustercore/pkg/csvexport"
	"clustercore/pkg/engine"
	"clustercore/pkg/logging"
	"clustercore/pkg/mvcc"
	"clustercore/pkg/storage"
	"clustercore/pkg/types"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "clusterctl",
		Short: "Drive the disjoint-clusters maintenance pipeline",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to a clusterctl config file (optional)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfigAndLogger() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := logging.Init(logging.Config{
		Level:  logging.LogLevel(strings.ToUpper(cfg.LogLevel)),
		Format: cfg.LogFormat,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// demoTable builds a small in-memory table with synthetic integer data,
// standing in for the externally-referenced storage manager this repo
// does not implement.
func demoTable(rows int) *storage.Table {
	table := storage.NewTable("events", []storage.ColumnDefinition{
		{Name: "id", Type: types.Int64Type},
		{Name: "bucket", Type: types.Int64Type},
	}, 256)

	chunk := storage.NewChunk(2)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < rows; i++ {
		id := int64(i)
		bucket := int64(r.Intn(1000))
		_, _ = chunk.Append([]types.Field{types.NewInt64Value(id), types.NewInt64Value(bucket)})
		if chunk.Size() >= 64 {
			chunk.Finalize()
			unlock := table.AcquireAppendMutex()
			table.AppendChunk(chunk)
			unlock()
			chunk = storage.NewChunk(2)
		}
	}
	if chunk.Size() > 0 {
		chunk.Finalize()
		unlock := table.AcquireAppendMutex()
		table.AppendChunk(chunk)
		unlock()
	}
	return table
}

func newRunCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the orchestrator once over an in-memory demo table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			logger := logging.GetLogger()

			table := demoTable(rows)
			eng := engine.New(engine.NewColumnScanBuilder(16))
			eng.RegisterTable("events", table)

			orchCfg := orchestrator.Config{
				MergeSmallChunks:      cfg.MergeSmallChunks,
				SmallChunkThreshold:   cfg.SmallChunkThreshold,
				MaxParallelPartitions: cfg.MaxParallelPartitions,
				MaxPartitionRetries:   cfg.MaxPartitionRetries,
			}
			for _, c := range cfg.Columns {
				orchCfg.Columns = append(orchCfg.Columns, orchestrator.ColumnConfig{Column: c.Column, NumClusters: c.NumClusters})
			}
			if len(orchCfg.Columns) == 0 {
				orchCfg.Columns = []orchestrator.ColumnConfig{
					{Column: "bucket", NumClusters: 4},
					{Column: "id", NumClusters: 1},
				}
			}

			part := partitioner.NewInMemoryPartitioner()
			reg := mvcc.NewRegistry()

			result, err := orchestrator.Run(context.Background(), table, "events", eng, part, reg, orchCfg, logger)
			if err != nil {
				return err
			}

			writer := csvexport.NewRunWriter(os.Stdout, os.Stderr)
			return writer.WriteResult(result)
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 1000, "Number of synthetic rows to seed the demo table with")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var rows, numClusters int
	var column string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print computed cluster boundaries without mutating storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfigAndLogger(); err != nil {
				return err
			}

			table := demoTable(rows)
			eng := engine.New(engine.NewColumnScanBuilder(numClusters))
			eng.RegisterTable("events", table)

			h, err := eng.Histogram(context.Background(), "events", column)
			if err != nil {
				return err
			}
			b, err := boundary.Plan(h, uint64(table.RowCount()), numClusters, true)
			if err != nil {
				return err
			}

			for i, r := range b.Ranges {
				if r.IsNullBucket {
					fmt.Printf("cluster %d: NULL bucket\n", i)
					continue
				}
				hi := "+inf"
				if !r.Unbounded {
					hi = r.Hi.String()
				}
				fmt.Printf("cluster %d: [%s, %s)\n", i, r.Lo.String(), hi)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "bucket", "Column to plan cluster boundaries for")
	cmd.Flags().IntVar(&numClusters, "clusters", 4, "Number of clusters to plan")
	cmd.Flags().IntVar(&rows, "rows", 1000, "Number of synthetic rows to seed the demo table with")
	return cmd
}
