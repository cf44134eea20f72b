// Package sanitize scrubs self-identifying phrases from reviewer responses
// before they are persisted or echoed into discussion prompts.
//
// Scrubbing is a best-effort heuristic rewrite, not a security boundary: the
// goal is that no literal capability identity string survives into a
// transcript another reviewer sees.
package sanitize

import (
	"regexp"
	"strings"
)

// builtinIdentities are vendor and model names scrubbed regardless of the
// session's configured capabilities.
var builtinIdentities = []string{
	"claude",
	"chatgpt",
	"gpt",
	"gemini",
	"codex",
	"bard",
	"copilot",
	"anthropic",
	"openai",
	"deepmind",
	"grok",
	"llama",
	"mistral",
}

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Sanitizer applies an ordered set of rewrite rules.
type Sanitizer struct {
	rules []rule
}

// New builds a sanitizer covering the built-in identity lexicon plus the
// session's capability names.
func New(capabilities ...string) *Sanitizer {
	seen := make(map[string]bool)
	var quoted []string
	for _, name := range append(append([]string{}, builtinIdentities...), capabilities...) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		quoted = append(quoted, regexp.QuoteMeta(name))
	}
	alt := strings.Join(quoted, "|")

	return &Sanitizer{rules: []rule{
		// "I am Claude", "I'm ChatGPT", "this is Gemini", "my name is Codex"
		{regexp.MustCompile(`(?i)\b(?:i\s+am|i['’]m|this\s+is|my\s+name\s+is)\s+(?:the\s+|an?\s+)?(?:` + alt + `)\b`), "I am a reviewer"},
		// "as Claude", "as GPT"
		{regexp.MustCompile(`(?i)\bas\s+(?:` + alt + `)\b`), "as a reviewer"},
		// "a large language model", "an AI assistant", "an LLM"
		{regexp.MustCompile(`(?i)\ban?\s+(?:large\s+)?language\s+model\b|\ban\s+ai\s+(?:model|assistant)\b|\ban\s+llm\b`), "a reviewer"},
		// versioned model identifiers: claude-3-opus, gpt-4o, gemini-2.0-flash
		{regexp.MustCompile(`(?i)\b(?:claude|gpt|gemini|llama|grok)[-_ ]?[0-9][\w.\-]*\b`), "[reviewer]"},
		// any bare identity word that survived the phrase rules
		{regexp.MustCompile(`(?i)\b(?:` + alt + `)\b`), "[reviewer]"},
	}}
}

// Clean rewrites self-identifying phrases to neutral equivalents.
func (s *Sanitizer) Clean(text string) string {
	for _, r := range s.rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}
