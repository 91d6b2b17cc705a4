package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strands-sre/strands/pkg/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate the configuration directory without starting anything",
	RunE:  runValidateConfig,
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Initialize(context.Background(), configDir)
	if err != nil {
		return wrapConfigError(fmt.Errorf("configuration invalid: %w", err))
	}
	stats := cfg.Stats()
	fmt.Printf("configuration OK: %s (%d providers, %d specialists)\n", cfg.ConfigDir(), stats.Providers, stats.Specialists)
	return nil
}
