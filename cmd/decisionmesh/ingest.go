package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"decisionmesh/internal/config"
	"decisionmesh/internal/ingest"
)

var ingestFull bool

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Synchronise the database with markdown rule documents",
		RunE:  runIngest,
	}
	cmd.Flags().BoolVar(&ingestFull, "full", false, "Force full re-ingestion (ignore incremental hashes)")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := ingest.Run(ctx, cfg, db, ingest.Options{Full: ingestFull})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Ingestion complete.")
	fmt.Fprintf(out, "  Entities upserted:    %d\n", result.EntitiesUpserted)
	fmt.Fprintf(out, "  Connections upserted: %d\n", result.ConnectionsUpserted)
	fmt.Fprintf(out, "  Entities removed:     %d\n", result.EntitiesRemoved)
	fmt.Fprintf(out, "  Files skipped:        %d\n", result.FilesSkipped)

	if len(result.DanglingConnections) > 0 {
		fmt.Fprintf(out, "\nDangling connections (%d):\n", len(result.DanglingConnections))
		for _, conn := range result.DanglingConnections {
			fmt.Fprintf(out, "  - %s -> %s\n", conn.FromID, conn.ToID)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(out, "  - %v\n", item)
		}
		return fmt.Errorf("ingestion completed with errors")
	}

	return nil
}
