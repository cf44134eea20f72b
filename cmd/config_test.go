package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"consilium/internal/output"
)

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	// Reset viper
	viper.Reset()
	viper.SetDefault("review.max_rounds", 3)
	viper.SetDefault("review.timeout_seconds", 240)
	viper.SetDefault("review.grace_seconds", 10)
	viper.SetDefault("review.max_content_bytes", 262144)
	viper.SetDefault("review.failure_policy", "degraded")
	viper.SetDefault("review.search", false)
	viper.SetDefault("workspace.retain", false)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("reviewers", defaultReviewers())

	// Initialize output
	ui = output.New()

	return dir
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "config file should exist")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "consilium configuration")
	assert.Contains(t, string(data), "failure_policy: degraded")
	assert.Contains(t, string(data), "reviewers:")
	assert.Contains(t, string(data), "name: claude")
}

func TestConfigInit_TemplateRoundTrips(t *testing.T) {
	dir := testEnv(t)

	require.NoError(t, configInitRun())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	// The generated file must parse back as YAML with the panel intact.
	var parsed struct {
		Review struct {
			MaxRounds     int    `yaml:"max_rounds"`
			FailurePolicy string `yaml:"failure_policy"`
		} `yaml:"review"`
		Reviewers []struct {
			Name       string   `yaml:"name"`
			Kind       string   `yaml:"kind"`
			Command    string   `yaml:"command"`
			Args       []string `yaml:"args"`
			SearchArgs []string `yaml:"search_args"`
		} `yaml:"reviewers"`
	}
	require.NoError(t, yaml.Unmarshal(data, &parsed))

	assert.Equal(t, 3, parsed.Review.MaxRounds)
	assert.Equal(t, "degraded", parsed.Review.FailurePolicy)

	require.Len(t, parsed.Reviewers, 3)
	assert.Equal(t, "claude", parsed.Reviewers[0].Name)
	assert.Equal(t, "cli", parsed.Reviewers[0].Kind)
	assert.Equal(t, []string{"-p"}, parsed.Reviewers[0].Args)
	assert.Equal(t, []string{"--allowedTools", "WebSearch"}, parsed.Reviewers[0].SearchArgs)
	assert.Equal(t, "codex", parsed.Reviewers[1].Name)
	assert.Equal(t, []string{"exec"}, parsed.Reviewers[1].Args)
	assert.Equal(t, "gemini", parsed.Reviewers[2].Name)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	defer func() { configForce = false }()
	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "consilium configuration")
}

func TestConfigShow_NoFile(t *testing.T) {
	testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigShow_WithFile(t *testing.T) {
	testEnv(t)

	// Create config first
	require.NoError(t, configInitRun())

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigEdit_NoEditor(t *testing.T) {
	testEnv(t)

	// Unset EDITOR and VISUAL
	origEditor := os.Getenv("EDITOR")
	origVisual := os.Getenv("VISUAL")
	_ = os.Unsetenv("EDITOR")
	_ = os.Unsetenv("VISUAL")
	t.Cleanup(func() {
		if origEditor != "" {
			_ = os.Setenv("EDITOR", origEditor)
		}
		if origVisual != "" {
			_ = os.Setenv("VISUAL", origVisual)
		}
	})

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$EDITOR is not set")
}

func TestConfigEdit_NoConfigFile(t *testing.T) {
	testEnv(t)

	_ = os.Setenv("EDITOR", "echo") // harmless command
	t.Cleanup(func() { _ = os.Unsetenv("EDITOR") })

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"key_a": true}

	// From env
	os.Setenv("CONSILIUM_TEST_KEY", "val")
	defer os.Unsetenv("CONSILIUM_TEST_KEY")
	assert.Contains(t, detectSource("test_key", "CONSILIUM_TEST_KEY", fileValues), "env")

	// From file
	assert.Contains(t, detectSource("key_a", "CONSILIUM_KEY_A_NONEXISTENT", fileValues), "file")

	// Default
	assert.Contains(t, detectSource("key_b", "CONSILIUM_KEY_B_NONEXISTENT", fileValues), "default")
}

func TestFlattenKeys(t *testing.T) {
	input := map[string]any{
		"top": "val",
		"nested": map[string]any{
			"a": "1",
			"b": "2",
		},
	}

	result := make(map[string]bool)
	flattenKeys("", input, result)

	assert.True(t, result["top"])
	assert.True(t, result["nested.a"])
	assert.True(t, result["nested.b"])
	assert.False(t, result["nested"])
}

func TestConfigInit_DryRun(t *testing.T) {
	dir := testEnv(t)
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	err := configInitRun()
	require.NoError(t, err)

	// File should NOT have been created
	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.True(t, os.IsNotExist(err), "config file should not exist in dry-run mode")
}
