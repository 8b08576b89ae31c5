package main

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"decisionmesh/internal/graph"
)

func queryNeighborsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "neighbors <id>",
		Short: "List the proximity neighbors and declared connections of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryNeighbors(cmd, args[0])
		},
	}
	return cmd
}

func runQueryNeighbors(cmd *cobra.Command, id string) error {
	ctx := context.Background()

	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.logger.Sync()

	db, closeDB, err := p.openSource(ctx, fromDBFlag(cmd))
	if err != nil {
		return err
	}
	defer closeDB()

	ds, err := p.loadDataset(ctx, db)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	entity, ok := ds.Lookup(id)
	if !ok {
		fmt.Fprintf(out, "No entity found for %q.\n", id)
		return nil
	}

	edges := graph.BuildDatasetEdges(ds, p.cfg.Mesh.MaxDistance, p.cfg.Mesh.MaxNeighbors)
	neighbors := graph.Outgoing(edges, entity.ID)
	if len(neighbors) == 0 {
		fmt.Fprintln(out, "Proximity: none")
	} else {
		fmt.Fprintln(out, "Proximity:")
		for _, edge := range neighbors {
			target, _ := ds.Lookup(edge.TargetID)
			dist := math.Sqrt(entity.Position.DistSq(target.Position))
			fmt.Fprintf(out, "  - %s (%s) %.2f\n", target.ID, target.Category, dist)
		}
	}

	declared := graph.Outgoing(graph.ConnectionEdges(ds), entity.ID)
	if len(declared) == 0 {
		fmt.Fprintln(out, "Connections: none")
		return nil
	}
	fmt.Fprintln(out, "Connections:")
	for _, edge := range declared {
		target, _ := ds.Lookup(edge.TargetID)
		fmt.Fprintf(out, "  - %s (%s)\n", target.ID, target.Category)
	}
	return nil
}
