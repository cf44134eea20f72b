package cmd

import (
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"consilium/internal/mcp"
	"consilium/internal/models"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent IDE integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets agent IDEs convene blinded review panels natively. Configure
with:

  {
    "mcpServers": {
      "consilium": { "command": "consilium", "args": ["mcp"] }
    }
  }

Available tools: consilium_review, consilium_reviewers, consilium_checklist`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(cmd *cobra.Command) error {
	cfgs, err := reviewerConfigs()
	if err != nil {
		return err
	}

	policy, err := models.ParseFailurePolicy(viper.GetString("review.failure_policy"))
	if err != nil {
		return &configError{err: err}
	}

	srv := mcp.NewServer(mcp.Settings{
		Reviewers: cfgs,
		Options:   reviewerOptions(),
		MaxRounds: viper.GetInt("review.max_rounds"),
		Timeout:   time.Duration(viper.GetInt("review.timeout_seconds")) * time.Second,
		MaxBytes:  viper.GetInt("review.max_content_bytes"),
		Policy:    policy,
		Search:    viper.GetBool("review.search"),
		Version:   buildVersion,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
	defer stop()

	return srv.ServeStdio(ctx)
}
