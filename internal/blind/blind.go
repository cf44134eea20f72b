// Package blind assigns anonymous labels to reviewer capabilities.
//
// The capability-to-label mapping is drawn fresh for every session and is
// treated as a secret: it is persisted only to the session workspace and must
// never reach a reviewer-facing prompt, a log line, or the compiled report.
package blind

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand"
	"slices"
	"time"
)

// labelSet is the fixed pool of anonymous reviewer labels. Panels larger than
// the pool are rejected at configuration time.
var labelSet = [...]string{
	"Reviewer-Alpha",
	"Reviewer-Bravo",
	"Reviewer-Charlie",
	"Reviewer-Delta",
	"Reviewer-Echo",
	"Reviewer-Foxtrot",
	"Reviewer-Golf",
	"Reviewer-Hotel",
}

// MaxReviewers is the largest panel the label pool supports.
const MaxReviewers = len(labelSet)

// Assignment is a bijection between capability names and anonymous labels.
type Assignment struct {
	byCapability map[string]string
	byLabel      map[string]string
}

// New draws a fresh assignment for the given capabilities using a
// Fisher-Yates shuffle of the label pool prefix. A nil src is seeded from
// crypto/rand, falling back to the clock; tests inject a seeded source.
func New(capabilities []string, src rand.Source) (*Assignment, error) {
	n := len(capabilities)
	if n == 0 {
		return nil, fmt.Errorf("no reviewer capabilities configured")
	}
	if n > MaxReviewers {
		return nil, fmt.Errorf("%d reviewer capabilities configured, label pool holds %d", n, MaxReviewers)
	}

	seen := make(map[string]bool, n)
	for _, name := range capabilities {
		if seen[name] {
			return nil, fmt.Errorf("duplicate reviewer capability %q", name)
		}
		seen[name] = true
	}

	if src == nil {
		src = rand.NewSource(seed())
	}
	rng := rand.New(src)

	labels := slices.Clone(labelSet[:n])
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		labels[i], labels[j] = labels[j], labels[i]
	}

	a := &Assignment{
		byCapability: make(map[string]string, n),
		byLabel:      make(map[string]string, n),
	}
	for i, name := range capabilities {
		a.byCapability[name] = labels[i]
		a.byLabel[labels[i]] = name
	}
	return a, nil
}

// seed prefers crypto randomness with a clock fallback.
func seed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Size returns the panel size.
func (a *Assignment) Size() int {
	return len(a.byLabel)
}

// Labels returns the assigned labels in sorted order. Sorted order doubles as
// the stable transcript order for rounds and reports.
func (a *Assignment) Labels() []string {
	out := make([]string, 0, len(a.byLabel))
	for label := range a.byLabel {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

// Capabilities returns the capability names in sorted order.
func (a *Assignment) Capabilities() []string {
	out := make([]string, 0, len(a.byCapability))
	for name := range a.byCapability {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// LabelFor returns the label assigned to a capability.
func (a *Assignment) LabelFor(capability string) string {
	return a.byCapability[capability]
}

// CapabilityFor returns the capability behind a label.
func (a *Assignment) CapabilityFor(label string) string {
	return a.byLabel[label]
}

// MarshalSecret serializes the label-to-capability mapping for the workspace
// assignment file. This is the only sanctioned way the mapping leaves memory.
func (a *Assignment) MarshalSecret() ([]byte, error) {
	return json.MarshalIndent(a.byLabel, "", "  ")
}

// String deliberately reveals only the panel size.
func (a *Assignment) String() string {
	return fmt.Sprintf("blind assignment of %d reviewers", len(a.byLabel))
}
