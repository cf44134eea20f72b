package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"consilium/internal/consensus"
	"consilium/internal/content"
	"consilium/internal/engine"
	"consilium/internal/models"
	"consilium/internal/output"
	"consilium/internal/report"
	"consilium/internal/reviewer"
)

var (
	reviewText    string
	reviewRounds  int
	reviewTimeout int
	reviewSearch  bool
	reviewRetain  bool
	reviewPolicy  string
	reviewOutput  string
	reviewWorkdir string
)

var reviewCmd = &cobra.Command{
	Use:   "review <plan|code|analysis|report> [path]",
	Short: "Run a blinded panel review of an artifact",
	Long: `Run one blinded review session: every configured reviewer evaluates the
artifact independently, then the panel discusses its anonymized positions
across bounded rounds until it reaches consensus or the round budget runs out.

The artifact comes from a file path or from --text. The mode selects the
review checklist the panel works through (see 'consilium checklist').

Examples:
  consilium review plan docs/migration-plan.md
  consilium review code --text "$(git diff main)"
  consilium review analysis results/ab-test.md -o review.md --retain`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd, args)
	},
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewText, "text", "t", "", "Review this text instead of a file")
	reviewCmd.Flags().IntVar(&reviewRounds, "rounds", 0, "Maximum rounds including the independent first round")
	reviewCmd.Flags().IntVar(&reviewTimeout, "timeout", 0, "Per-invocation timeout in seconds")
	reviewCmd.Flags().BoolVar(&reviewSearch, "search", false, "Let reviewers use their web search tooling")
	reviewCmd.Flags().BoolVar(&reviewRetain, "retain", false, "Keep the session workspace for inspection")
	reviewCmd.Flags().StringVar(&reviewPolicy, "policy", "", "Failure policy: strict or degraded")
	reviewCmd.Flags().StringVarP(&reviewOutput, "output", "o", "", "Write the report to a file instead of stdout")
	reviewCmd.Flags().StringVar(&reviewWorkdir, "workdir", "", "Working directory for reviewer subprocesses (default: cwd)")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(cmd *cobra.Command, args []string) error {
	mode, err := models.ParseMode(args[0])
	if err != nil {
		return &configError{err: err}
	}

	artifact, err := loadArtifact(args, viper.GetInt("review.max_content_bytes"))
	if err != nil {
		return err
	}

	// Flag values override config only when the flag was actually given;
	// otherwise binding an unchanged flag would shadow the config default.
	rounds := viper.GetInt("review.max_rounds")
	if cmd.Flags().Changed("rounds") {
		rounds = reviewRounds
	}
	if rounds <= 0 {
		return configErrorf("max rounds must be positive, got %d", rounds)
	}

	timeoutSecs := viper.GetInt("review.timeout_seconds")
	if cmd.Flags().Changed("timeout") {
		timeoutSecs = reviewTimeout
	}
	if timeoutSecs <= 0 {
		return configErrorf("timeout must be positive, got %ds", timeoutSecs)
	}

	policy := models.FailurePolicy(viper.GetString("review.failure_policy"))
	if cmd.Flags().Changed("policy") {
		policy, err = models.ParseFailurePolicy(reviewPolicy)
		if err != nil {
			return &configError{err: err}
		}
	}
	if !policy.Valid() {
		return configErrorf("unknown failure policy %q (want strict or degraded)", policy)
	}

	search := viper.GetBool("review.search")
	if cmd.Flags().Changed("search") {
		search = reviewSearch
	}

	retain := viper.GetBool("workspace.retain")
	if cmd.Flags().Changed("retain") {
		retain = reviewRetain
	}

	workdir := reviewWorkdir
	if workdir == "" {
		workdir, _ = os.Getwd()
	}

	if err := report.CheckDestination(reviewOutput); err != nil {
		return &configError{err: err}
	}

	panel, err := buildPanel()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would run a %s review of %s (%d bytes)", mode, artifact.Source, artifact.OriginalSize)
		ui.DryRunMsg("Panel: %s", strings.Join(reviewer.Names(panel), ", "))
		ui.DryRunMsg("Up to %d rounds, %ds per invocation, %s failure policy", rounds, timeoutSecs, policy)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
	defer stop()

	ui.Info("Convening a blinded panel of %d reviewers for a %s review", len(panel), mode)
	if artifact.Truncated {
		ui.Warning("Artifact truncated to %d bytes (original %d)", artifact.Limit, artifact.OriginalSize)
	}

	res, err := engine.RunSession(ctx, engine.Params{
		Mode:          mode,
		Artifact:      artifact,
		Panel:         panel,
		MaxRounds:     rounds,
		Timeout:       time.Duration(timeoutSecs) * time.Second,
		Policy:        policy,
		SearchEnabled: search,
		WorkingDir:    workdir,
		Retain:        retain,
		Version:       buildVersion,
		UI:            ui,
	})
	if err != nil {
		return err
	}

	summarize(res)

	if reviewOutput != "" {
		if err := os.WriteFile(reviewOutput, []byte(res.Report), 0644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		ui.Success("Report written to %s", reviewOutput)
		return nil
	}

	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, res.Report)
	return nil
}

// loadArtifact resolves the artifact from the positional path or --text.
func loadArtifact(args []string, maxBytes int) (*content.Artifact, error) {
	switch {
	case reviewText != "" && len(args) > 1:
		return nil, configErrorf("give either a path or --text, not both")
	case reviewText != "":
		return content.FromText(reviewText, maxBytes), nil
	case len(args) > 1:
		artifact, err := content.Load(args[1], maxBytes)
		if err != nil {
			return nil, &configError{err: err}
		}
		return artifact, nil
	default:
		return nil, configErrorf("nothing to review: give a path or --text")
	}
}

// summarize prints the per-round table and the outcome lines.
func summarize(res *engine.Result) {
	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"Round", "Status", "Approve", "Reject"})
	for _, rt := range res.Outcome.Rounds {
		_, tally := consensus.Classify(rt.Texts())
		table.Append([]string{
			strconv.Itoa(rt.Round),
			output.ConsensusColor(rt.Status),
			strconv.Itoa(tally.Approve),
			strconv.Itoa(tally.Reject),
		})
	}
	if err := table.Render(); err != nil {
		ui.Warning("render summary: %v", err)
	}
	fmt.Fprintln(ui.Out)

	ui.Info("Outcome: %s (%s)", output.ConsensusColor(res.Outcome.Final), res.Outcome.Reason)
	if len(res.Outcome.Incomplete) > 0 {
		ui.Warning("Incomplete: no response from %s", strings.Join(res.Outcome.Incomplete, ", "))
	}
}
