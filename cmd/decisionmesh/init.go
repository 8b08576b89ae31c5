package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"decisionmesh/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new decisionmesh project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			if err := runInit(projectName, dsn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s, %s and rules/core/plain-names.md\n", configPath, palettePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://./decisionmesh.db", "Database DSN (sqlite:// or postgres://)")
	return cmd
}

const sampleRule = `---
title: Plain names
category: core
importance: high
position: [0, 0, 0]
tags: [style]
---

Name things after what they do.
`

func runInit(projectName, dsn string) error {
	for _, path := range []string{configPath, palettePath} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	configContents := fmt.Sprintf("project: %s\nversion: 1\n\ndatabase:\n  dsn: %s\n\nsources:\n  - name: rules\n    paths:\n      - ./rules/\n\nexclude:\n  - ./rules/drafts/\n\nserver:\n  addr: \":8088\"\n\nlogging:\n  level: info\n  format: console\n", projectName, dsn)
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}

	palette, err := yaml.Marshal(config.DefaultPalette())
	if err != nil {
		return fmt.Errorf("encoding palette: %w", err)
	}
	if err := os.WriteFile(palettePath, palette, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", palettePath, err)
	}

	rulePath := filepath.Join("rules", "core", "plain-names.md")
	if err := os.MkdirAll(filepath.Dir(rulePath), 0o755); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}
	if _, err := os.Stat(rulePath); err == nil {
		return nil
	}
	if err := os.WriteFile(rulePath, []byte(sampleRule), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rulePath, err)
	}
	return nil
}
