package reviewer

import (
	"fmt"
	"strings"
	"time"
)

// Options carries the shared settings capabilities are built with.
type Options struct {
	Grace        time.Duration
	APIKey       string
	DefaultModel string
}

// Build constructs the panel's capabilities from configuration. Invalid
// entries are configuration errors, reported before anything runs.
func Build(cfgs []Config, opts Options) ([]Capability, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no reviewers configured")
	}

	caps := make([]Capability, 0, len(cfgs))
	seen := make(map[string]bool, len(cfgs))
	for _, cfg := range cfgs {
		name := strings.TrimSpace(cfg.Name)
		if name == "" {
			return nil, fmt.Errorf("reviewer entry without a name")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate reviewer %q", name)
		}
		seen[name] = true

		switch cfg.Kind {
		case KindCLI, "":
			caps = append(caps, NewCLI(name, cfg.Command, cfg.Args, cfg.SearchArgs, opts.Grace))
		case KindAPI:
			model := cfg.Model
			if model == "" {
				model = opts.DefaultModel
			}
			caps = append(caps, NewAPI(name, model, opts.APIKey))
		default:
			return nil, fmt.Errorf("reviewer %s: unknown kind %q (want cli or api)", name, cfg.Kind)
		}
	}
	return caps, nil
}

// Preflight probes every capability and reports ALL unavailable ones at
// once, so the operator fixes the panel in one pass.
func Preflight(caps []Capability) error {
	var missing []string
	for _, c := range caps {
		if err := c.Available(); err != nil {
			missing = append(missing, c.Name())
		}
	}
	if len(missing) > 0 {
		return &PreflightError{Missing: missing}
	}
	return nil
}

// Names returns the capability names in panel order.
func Names(caps []Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = c.Name()
	}
	return out
}
