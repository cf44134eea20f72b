package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"consilium/internal/blind"
	"consilium/internal/output"
	"consilium/internal/reviewer"
)

var reviewersCmd = &cobra.Command{
	Use:   "reviewers",
	Short: "Show the configured reviewer panel and its availability",
	Long: `Show every configured reviewer capability with its kind, invocation
target, and whether it can currently be invoked. A session refuses to start
while any panel member is unavailable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewersRun()
	},
}

func init() {
	rootCmd.AddCommand(reviewersCmd)
}

func reviewersRun() error {
	cfgs, err := reviewerConfigs()
	if err != nil {
		return err
	}
	panel, err := reviewer.Build(cfgs, reviewerOptions())
	if err != nil {
		return &configError{err: err}
	}

	available := 0
	table := ui.Table([]string{"Name", "Kind", "Target", "Status"})
	for i, c := range panel {
		ok := c.Available() == nil
		if ok {
			available++
		}
		table.Append([]string{
			c.Name(),
			kindOf(cfgs[i]),
			targetOf(cfgs[i]),
			output.AvailabilityColor(ok),
		})
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	fmt.Fprintln(ui.Out)
	ui.Info("%d of %d reviewers available", available, len(panel))
	if len(panel) > blind.MaxReviewers {
		ui.Warning("%d reviewers configured, the label pool holds %d", len(panel), blind.MaxReviewers)
	}
	return nil
}

func kindOf(cfg reviewer.Config) string {
	if cfg.Kind == "" {
		return reviewer.KindCLI
	}
	return cfg.Kind
}

// targetOf renders what an invocation actually runs: the command for CLI
// capabilities, the model for API ones.
func targetOf(cfg reviewer.Config) string {
	if cfg.Kind == reviewer.KindAPI {
		if cfg.Model != "" {
			return cfg.Model
		}
		return viper.GetString("anthropic.model")
	}
	if cfg.Command != "" {
		return cfg.Command
	}
	return cfg.Name
}
