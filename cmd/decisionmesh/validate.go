package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"decisionmesh/internal/ingest"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/validate"
)

func validateCmd() *cobra.Command {
	var fromDB bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run consistency checks against the rule documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, fromDB)
		},
	}
	cmd.Flags().BoolVar(&fromDB, "db", false, "Validate the ingested database instead of the source files")
	return cmd
}

func runValidate(cmd *cobra.Command, fromDB bool) error {
	ctx := context.Background()

	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.logger.Sync()

	var records []mesh.Record
	var parseErrors []error
	if fromDB {
		db, err := openDB(ctx, p.cfg)
		if err != nil {
			return err
		}
		defer db.Close(ctx)
		records, err = ingest.LoadStore(ctx, db)
		if err != nil {
			return err
		}
	} else {
		records, parseErrors = ingest.LoadDocuments(p.cfg)
	}

	report, err := validate.Run(records, p.palette, p.cfg.Mesh)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errorIssues := report.Errors()
	warnIssues := report.Warnings()

	if len(parseErrors) == 0 && len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return nil
	}

	if len(parseErrors) > 0 {
		fmt.Fprintf(out, "Parse errors (%d):\n", len(parseErrors))
		for _, item := range parseErrors {
			fmt.Fprintf(out, "  - %v\n", item)
		}
		fmt.Fprintln(out, "")
	}
	if len(errorIssues) > 0 {
		fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out, "")
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}

	if len(errorIssues) > 0 || len(parseErrors) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := issue.Entity
		if issue.FilePath != "" {
			location = fmt.Sprintf("%s (%s)", location, issue.FilePath)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
