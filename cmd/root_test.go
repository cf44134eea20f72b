package cmd

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/internal/blind"
	"consilium/internal/engine"
	"consilium/internal/reviewer"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "configuration error",
			err:  configErrorf("bad flag value"),
			want: exitConfiguration,
		},
		{
			name: "wrapped configuration error",
			err:  fmt.Errorf("while starting: %w", configErrorf("bad flag value")),
			want: exitConfiguration,
		},
		{
			name: "preflight error",
			err:  &reviewer.PreflightError{Missing: []string{"codex"}},
			want: exitPrecondition,
		},
		{
			name: "invocation error",
			err:  &engine.InvocationError{Round: 2, Label: "Reviewer-Bravo", Err: errors.New("boom")},
			want: exitInvocation,
		},
		{
			name: "anything else",
			err:  errors.New("disk on fire"),
			want: exitUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestReviewerConfigs_Defaults(t *testing.T) {
	viper.Reset()
	viper.SetDefault("reviewers", defaultReviewers())

	cfgs, err := reviewerConfigs()
	require.NoError(t, err)
	require.Len(t, cfgs, 3)

	assert.Equal(t, "claude", cfgs[0].Name)
	assert.Equal(t, "cli", cfgs[0].Kind)
	assert.Equal(t, "claude", cfgs[0].Command)
	assert.Equal(t, []string{"-p"}, cfgs[0].Args)
	assert.Equal(t, []string{"--allowedTools", "WebSearch"}, cfgs[0].SearchArgs)

	assert.Equal(t, "codex", cfgs[1].Name)
	assert.Equal(t, []string{"exec"}, cfgs[1].Args)

	assert.Equal(t, "gemini", cfgs[2].Name)
	assert.Equal(t, []string{"-p"}, cfgs[2].Args)
}

func TestReviewerOptions_FromConfig(t *testing.T) {
	viper.Reset()
	viper.SetDefault("review.grace_seconds", 10)
	viper.SetDefault("anthropic.api_key", "sk-test")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	opts := reviewerOptions()
	assert.Equal(t, 10*time.Second, opts.Grace)
	assert.Equal(t, "sk-test", opts.APIKey)
	assert.Equal(t, "claude-haiku-4-5-20251001", opts.DefaultModel)
}

func TestBuildPanel_InvalidKindIsConfigError(t *testing.T) {
	viper.Reset()
	viper.SetDefault("reviewers", []map[string]any{
		{"name": "pigeon", "kind": "carrier"},
	})

	_, err := buildPanel()
	require.Error(t, err)
	assert.Equal(t, exitConfiguration, exitCode(err))
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestBuildPanel_TooManyReviewersIsConfigError(t *testing.T) {
	viper.Reset()
	var cfgs []map[string]any
	for i := 0; i < blind.MaxReviewers+1; i++ {
		cfgs = append(cfgs, map[string]any{
			"name":    fmt.Sprintf("reviewer-%d", i),
			"kind":    "cli",
			"command": "true",
		})
	}
	viper.SetDefault("reviewers", cfgs)

	_, err := buildPanel()
	require.Error(t, err)
	assert.Equal(t, exitConfiguration, exitCode(err))
	assert.Contains(t, err.Error(), "label pool")
}
