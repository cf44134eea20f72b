package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"consilium/internal/reviewer"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "consilium"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage consilium configuration.

Running bare 'consilium config' is the same as 'consilium config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# consilium configuration
# See: consilium config show (for effective values and sources)
# Environment variables (CONSILIUM_*) override values in this file.

review:
  # Maximum panel rounds before the session is declared exhausted
  max_rounds: {{ .MaxRounds }}

  # Per-reviewer invocation timeout in seconds
  timeout_seconds: {{ .TimeoutSeconds }}

  # Seconds between interrupt and kill when a CLI reviewer times out
  grace_seconds: {{ .GraceSeconds }}

  # Artifacts larger than this are truncated before review
  max_content_bytes: {{ .MaxContentBytes }}

  # strict: abort on any reviewer failure; degraded: continue with placeholders
  failure_policy: {{ .FailurePolicy }}

  # Allow reviewers that support it to search the web
  search: {{ .Search }}

workspace:
  # Keep session workspaces (ledger, prompts, responses) after completion
  retain: {{ .Retain }}

anthropic:
  # API key for API-backed reviewers (empty: CLI reviewers only)
  api_key: "{{ .APIKey }}"

  # Default model for API-backed reviewers
  model: "{{ .Model }}"

# Review panel. Each entry needs a unique name; kind is "cli" or "api".
reviewers:
{{- range .Reviewers }}
  - name: {{ .Name }}
    kind: {{ .Kind }}
{{- if .Command }}
    command: {{ .Command }}
{{- end }}
{{- if .Args }}
    args: [{{ .Args }}]
{{- end }}
{{- if .SearchArgs }}
    search_args: [{{ .SearchArgs }}]
{{- end }}
{{- if .Model }}
    model: "{{ .Model }}"
{{- end }}
{{- end }}
`

type configTemplateData struct {
	MaxRounds       int
	TimeoutSeconds  int
	GraceSeconds    int
	MaxContentBytes int
	FailurePolicy   string
	Search          bool
	Retain          bool
	APIKey          string
	Model           string
	Reviewers       []reviewerTemplateEntry
}

// reviewerTemplateEntry holds one panel entry with arg lists pre-rendered
// as comma-joined quoted strings so the template stays flat.
type reviewerTemplateEntry struct {
	Name       string
	Kind       string
	Command    string
	Args       string
	SearchArgs string
	Model      string
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("%q", it)
	}
	return strings.Join(quoted, ", ")
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return configErrorf("resolving config path: %w", err)
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return configErrorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	cfgs, err := reviewerConfigs()
	if err != nil {
		return err
	}
	entries := make([]reviewerTemplateEntry, 0, len(cfgs))
	for _, c := range cfgs {
		kind := c.Kind
		if kind == "" {
			kind = reviewer.KindCLI
		}
		entries = append(entries, reviewerTemplateEntry{
			Name:       c.Name,
			Kind:       kind,
			Command:    c.Command,
			Args:       quoteJoin(c.Args),
			SearchArgs: quoteJoin(c.SearchArgs),
			Model:      c.Model,
		})
	}

	// Build template data from current viper values
	data := configTemplateData{
		MaxRounds:       viper.GetInt("review.max_rounds"),
		TimeoutSeconds:  viper.GetInt("review.timeout_seconds"),
		GraceSeconds:    viper.GetInt("review.grace_seconds"),
		MaxContentBytes: viper.GetInt("review.max_content_bytes"),
		FailurePolicy:   viper.GetString("review.failure_policy"),
		Search:          viper.GetBool("review.search"),
		Retain:          viper.GetBool("workspace.retain"),
		APIKey:          viper.GetString("anthropic.api_key"),
		Model:           viper.GetString("anthropic.model"),
		Reviewers:       entries,
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return configErrorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return configErrorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "review.max_rounds", EnvVar: "CONSILIUM_REVIEW_MAX_ROUNDS"},
	{Key: "review.timeout_seconds", EnvVar: "CONSILIUM_REVIEW_TIMEOUT_SECONDS"},
	{Key: "review.grace_seconds", EnvVar: "CONSILIUM_REVIEW_GRACE_SECONDS"},
	{Key: "review.max_content_bytes", EnvVar: "CONSILIUM_REVIEW_MAX_CONTENT_BYTES"},
	{Key: "review.failure_policy", EnvVar: "CONSILIUM_REVIEW_FAILURE_POLICY"},
	{Key: "review.search", EnvVar: "CONSILIUM_REVIEW_SEARCH"},
	{Key: "workspace.retain", EnvVar: "CONSILIUM_WORKSPACE_RETAIN"},
	{Key: "anthropic.api_key", EnvVar: "CONSILIUM_ANTHROPIC_API_KEY"},
	{Key: "anthropic.model", EnvVar: "CONSILIUM_ANTHROPIC_MODEL"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return configErrorf("resolving config path: %w", err)
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Key == "anthropic.api_key" {
			if s, ok := val.(string); ok && s != "" {
				val = "(set)"
			}
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-28s %v  %s\n", k.Key, val, source)
	}

	// The reviewers list is structured, so render just the names.
	cfgs, err := reviewerConfigs()
	if err != nil {
		return err
	}
	names := make([]string, len(cfgs))
	for i, c := range cfgs {
		names[i] = c.Name
	}
	source := "(default)"
	if fileValues["reviewers"] {
		source = "(file)"
	}
	fmt.Fprintf(ui.Out, "  %-28s %v  %s\n", "reviewers", strings.Join(names, ", "), source)

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return configErrorf("$EDITOR is not set — set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return configErrorf("resolving config path: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return configErrorf("config file not found: %s (run 'consilium config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
