package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func queryPickCmd() *cobra.Command {
	var width, height int
	cmd := &cobra.Command{
		Use:   "pick <x> <y>",
		Short: "Report the entity under a screen position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid x %q: %w", args[0], err)
			}
			y, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid y %q: %w", args[1], err)
			}
			return runQueryPick(cmd, x, y, width, height)
		},
	}
	cmd.Flags().IntVar(&width, "width", 1280, "Viewport width in pixels")
	cmd.Flags().IntVar(&height, "height", 720, "Viewport height in pixels")
	return cmd
}

func runQueryPick(cmd *cobra.Command, x, y float64, width, height int) error {
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
	v, _, err := p.headlessView(ds, width, height)
	if err != nil {
		return err
	}
	defer v.Close()

	out := cmd.OutOrStdout()
	hit, ok := v.Pick(x, y)
	if !ok {
		fmt.Fprintln(out, "No entity under that position.")
		return nil
	}
	entity, _ := ds.Lookup(hit.ID)
	fmt.Fprintf(out, "%s  %s (%s) distance %.2f\n", entity.ID, entity.Label, entity.Category, hit.Distance)
	return nil
}
