// Package reviewer provides the capability transports the engine invokes:
// external agent CLIs run as subprocesses, and the Anthropic Messages API.
package reviewer

import (
	"context"
	"fmt"
	"strings"
)

// Capability kinds accepted in configuration.
const (
	KindCLI = "cli"
	KindAPI = "api"
)

// Request is one anonymous review invocation. The engine addresses the
// capability only by the session label; nothing in the request identifies
// the capability to itself or to others.
type Request struct {
	Label         string
	Prompt        string
	WorkingDir    string
	SearchEnabled bool
}

// Capability is one member of the review panel.
type Capability interface {
	Name() string
	// Available reports whether the capability can be invoked at all.
	// Probed before the session takes any side effect.
	Available() error
	// Review runs one invocation. ctx carries the wall-clock budget; on
	// expiry the capability must stop its work and return ctx's error.
	Review(ctx context.Context, req Request) (string, error)
}

// Config describes one capability in the configuration file.
type Config struct {
	Name       string   `mapstructure:"name"`
	Kind       string   `mapstructure:"kind"`
	Command    string   `mapstructure:"command"`
	Args       []string `mapstructure:"args"`
	SearchArgs []string `mapstructure:"search_args"`
	Model      string   `mapstructure:"model"`
}

// PreflightError reports every configured capability that cannot currently
// be invoked.
type PreflightError struct {
	Missing []string
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("reviewer capabilities unavailable: %s", strings.Join(e.Missing, ", "))
}
