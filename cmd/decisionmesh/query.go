package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the mesh from the CLI",
	}
	cmd.PersistentFlags().Bool("db", false, "Query the ingested database instead of the source files")
	cmd.AddCommand(queryListCmd())
	cmd.AddCommand(queryEntityCmd())
	cmd.AddCommand(queryNeighborsCmd())
	cmd.AddCommand(queryPickCmd())
	return cmd
}

func fromDBFlag(cmd *cobra.Command) bool {
	fromDB, _ := cmd.Flags().GetBool("db")
	return fromDB
}

func joinValues(values []string) string {
	return strings.Join(values, ", ")
}
