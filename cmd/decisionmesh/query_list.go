package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"decisionmesh/internal/mesh"
)

func queryListCmd() *cobra.Command {
	var category string
	var tag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities in the mesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryList(cmd, category, tag)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Category to filter")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag to filter")
	return cmd
}

func runQueryList(cmd *cobra.Command, category, tag string) error {
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
	filter := mesh.NormalizeCategory(category)
	found := 0
	for _, entity := range ds.Entities() {
		if !filter.IsAll() && entity.Category != filter {
			continue
		}
		if tag != "" && !hasTag(entity.Tags, tag) {
			continue
		}
		fmt.Fprintf(out, "%s  %s (%s) [%s]\n", entity.ID, entity.Label, entity.Category, entity.Tier)
		found++
	}
	if found == 0 {
		fmt.Fprintln(out, "No entities found.")
	}
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
