package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func queryEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity <id>",
		Short: "Display an entity and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryEntity(cmd, args[0])
		},
	}
	return cmd
}

func runQueryEntity(cmd *cobra.Command, id string) error {
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

	fmt.Fprintf(out, "ID: %s\n", entity.ID)
	fmt.Fprintf(out, "Label: %s\n", entity.Label)
	fmt.Fprintf(out, "Category: %s\n", entity.Category)
	fmt.Fprintf(out, "Importance: %s\n", entity.Tier)
	fmt.Fprintf(out, "Position: (%.2f, %.2f, %.2f)\n", entity.Position.X, entity.Position.Y, entity.Position.Z)
	if len(entity.Connections) > 0 {
		fmt.Fprintf(out, "Connections: %s\n", joinValues(entity.Connections))
	}
	if len(entity.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", joinValues(entity.Tags))
	}
	if entity.SourceFile != "" {
		fmt.Fprintf(out, "Source: %s\n", entity.SourceFile)
	}
	if entity.Description != "" {
		fmt.Fprintf(out, "\n%s\n", entity.Description)
	}
	return nil
}
