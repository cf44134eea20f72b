package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"consilium/internal/blind"
	"consilium/internal/engine"
	"consilium/internal/models"
	"consilium/internal/output"
	"consilium/internal/reviewer"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "consilium",
	Short: "Blinded multi-round consensus reviews by an anonymous AI panel",
	Long: `consilium convenes a blinded panel of AI reviewer capabilities over one
artifact: a plan, a code change, an analysis, or a report draft. Every
reviewer first evaluates the artifact independently, then the panel discusses
its anonymized positions across bounded rounds until it reaches consensus or
the round budget runs out.

Reviewers never learn who else is on the panel. Each session draws fresh
anonymous labels, scrubs self-identifying phrases from every response, and
compiles an auditable Markdown report of the rounds and the outcome.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Exit codes. Scripted callers branch on these.
const (
	exitUnexpected    = 1
	exitConfiguration = 2
	exitPrecondition  = 3
	exitInvocation    = 4
)

// configError marks operator-fixable configuration mistakes so Execute can
// map them to their own exit code.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func configErrorf(format string, args ...any) error {
	return &configError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error to the documented exit taxonomy: 2 configuration,
// 3 failed preflight, 4 reviewer invocation under the strict policy, 1
// anything else.
func exitCode(err error) int {
	var (
		cfgErr *configError
		pfErr  *reviewer.PreflightError
		invErr *engine.InvocationError
	)
	switch {
	case errors.As(err, &cfgErr):
		return exitConfiguration
	case errors.As(err, &pfErr):
		return exitPrecondition
	case errors.As(err, &invErr):
		return exitInvocation
	default:
		return exitUnexpected
	}
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without invoking reviewers")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/consilium/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(exitConfiguration)
		}

		configDir := filepath.Join(home, ".config", "consilium")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CONSILIUM")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	viper.SetDefault("review.max_rounds", 3)
	viper.SetDefault("review.timeout_seconds", 240)
	viper.SetDefault("review.grace_seconds", 10)
	viper.SetDefault("review.max_content_bytes", 262144)
	viper.SetDefault("review.failure_policy", string(models.PolicyDegraded))
	viper.SetDefault("review.search", false)
	viper.SetDefault("workspace.retain", false)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("reviewers", defaultReviewers())

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
}

// defaultReviewers is the stock panel: the three coding-agent CLIs, each in
// non-interactive mode.
func defaultReviewers() []map[string]any {
	return []map[string]any{
		{
			"name":        "claude",
			"kind":        "cli",
			"command":     "claude",
			"args":        []string{"-p"},
			"search_args": []string{"--allowedTools", "WebSearch"},
		},
		{
			"name":    "codex",
			"kind":    "cli",
			"command": "codex",
			"args":    []string{"exec"},
		},
		{
			"name":    "gemini",
			"kind":    "cli",
			"command": "gemini",
			"args":    []string{"-p"},
		},
	}
}

// reviewerConfigs reads the configured panel, falling back to the defaults.
func reviewerConfigs() ([]reviewer.Config, error) {
	var cfgs []reviewer.Config
	if err := viper.UnmarshalKey("reviewers", &cfgs); err != nil {
		return nil, configErrorf("parse reviewers config: %w", err)
	}
	return cfgs, nil
}

// reviewerOptions collects the shared capability settings from config.
func reviewerOptions() reviewer.Options {
	return reviewer.Options{
		Grace:        time.Duration(viper.GetInt("review.grace_seconds")) * time.Second,
		APIKey:       viper.GetString("anthropic.api_key"),
		DefaultModel: viper.GetString("anthropic.model"),
	}
}

// buildPanel constructs the configured reviewer capabilities.
func buildPanel() ([]reviewer.Capability, error) {
	cfgs, err := reviewerConfigs()
	if err != nil {
		return nil, err
	}

	caps, err := reviewer.Build(cfgs, reviewerOptions())
	if err != nil {
		return nil, &configError{err: err}
	}
	if len(caps) > blind.MaxReviewers {
		return nil, configErrorf("%d reviewers configured, the label pool holds %d", len(caps), blind.MaxReviewers)
	}
	return caps, nil
}
