package main

import (
	"context"

	"github.com/spf13/cobra"

	"decisionmesh/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func mcpCmd() *cobra.Command {
	var fromDB bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(fromDB)
		},
	}
	cmd.Flags().BoolVar(&fromDB, "db", false, "Load the mesh from the database")
	return cmd
}

func runMCP(fromDB bool) error {
	ctx := context.Background()

	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.logger.Sync()

	db, closeDB, err := p.openSource(ctx, fromDB)
	if err != nil {
		return err
	}
	defer closeDB()

	ds, err := p.loadDataset(ctx, db)
	if err != nil {
		return err
	}
	v, _, err := p.headlessView(ds, 1280, 720)
	if err != nil {
		return err
	}
	defer v.Close()

	server := mcp.NewServer(p.palette, v, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
