package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strands-sre/strands/pkg/config"
)

var playbookApprover string

var playbookCmd = &cobra.Command{
	Use:   "playbook",
	Short: "Inspect and manage playbooks",
}

var playbookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every playbook",
	RunE:  runPlaybookList,
}

var playbookShowCmd = &cobra.Command{
	Use:   "show <playbook-id>",
	Short: "Show one playbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaybookShow,
}

var playbookApproveCmd = &cobra.Command{
	Use:   "approve <playbook-id>",
	Short: "Approve a playbook, promoting it to ACTIVE",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaybookApprove,
}

var playbookRejectCmd = &cobra.Command{
	Use:   "reject <playbook-id>",
	Short: "Reject a playbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaybookReject,
}

func init() {
	playbookApproveCmd.Flags().StringVar(&playbookApprover, "approver", getEnv("USER", "cli-operator"), "identity recorded as the approver")

	playbookCmd.AddCommand(playbookListCmd)
	playbookCmd.AddCommand(playbookShowCmd)
	playbookCmd.AddCommand(playbookApproveCmd)
	playbookCmd.AddCommand(playbookRejectCmd)
}

// withPlaybookService loads configuration, builds just the store pool and
// playbook service, and runs fn, always releasing the pool afterwards.
func withPlaybookService(fn func(ctx context.Context, app *playbookApp) error) error {
	ctx := context.Background()
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return wrapConfigError(fmt.Errorf("initialize configuration: %w", err))
	}
	application, err := buildPlaybookApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build playbook service: %w", err)
	}
	defer application.Close()
	return fn(ctx, application)
}

func runPlaybookList(cmd *cobra.Command, args []string) error {
	return withPlaybookService(func(ctx context.Context, app *playbookApp) error {
		playbooks, err := app.playbooks.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(playbooks)
	})
}

func runPlaybookShow(cmd *cobra.Command, args []string) error {
	return withPlaybookService(func(ctx context.Context, app *playbookApp) error {
		p, err := app.playbooks.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(p)
	})
}

func runPlaybookApprove(cmd *cobra.Command, args []string) error {
	return withPlaybookService(func(ctx context.Context, app *playbookApp) error {
		p, err := app.playbooks.Approve(ctx, args[0], playbookApprover)
		if err != nil {
			return err
		}
		return printJSON(p)
	})
}

func runPlaybookReject(cmd *cobra.Command, args []string) error {
	return withPlaybookService(func(ctx context.Context, app *playbookApp) error {
		p, err := app.playbooks.Reject(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(p)
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
