package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strands-sre/strands/pkg/config"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/replay"
)

var (
	replayMode string
	replaySeed uint64
)

var replayCmd = &cobra.Command{
	Use:   "replay <events-file>",
	Short: "Deterministically re-run recorded alerts against the current configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayMode, "mode", string(models.ReplayValidation), "replay mode: VALIDATION, TRAINING, SIMULATION, or AUDIT")
	replayCmd.Flags().Uint64Var(&replaySeed, "seed", 42, "seed pinning every pseudo-random draw reachable from the replay")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	events, err := loadReplayEvents(args[0])
	if err != nil {
		return wrapConfigError(fmt.Errorf("load events file: %w", err))
	}

	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return wrapConfigError(fmt.Errorf("initialize configuration: %w", err))
	}
	application, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer application.Close()

	deps := application.replayDeps
	engine := replay.NewEngine(deps.normalizer, deps.clusterer, deps.investigator, deps.decisionOpts, replaySeed)

	aggregate, err := engine.Replay(ctx, events, models.ReplayMode(replayMode))
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	if err := printJSON(aggregate); err != nil {
		return err
	}

	if !aggregate.Passed {
		fmt.Fprintln(os.Stderr, "replay FAILED: unsafe bypass detected")
		os.Exit(exitRuntimeError)
	}
	return nil
}

func loadReplayEvents(path string) ([]models.ReplayEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []models.ReplayEvent
	if err := json.NewDecoder(f).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return events, nil
}
