package engine

import (
	"fmt"
	"strings"

	"consilium/internal/models"
)

// checklists holds the mode-specific review criteria embedded in every
// round-1 prompt. `consilium checklist <mode>` prints the same text, so
// operators can see exactly what the panel is asked to check.
var checklists = map[models.Mode]string{
	models.ModePlan: `## Review Checklist (plan)

- **Feasibility** - can the plan actually be executed with the stated resources, dependencies, and timeline?
- **Sequencing** - are the steps ordered correctly, with no step depending on an output that does not exist yet?
- **Scope** - is anything over-engineered, prematurely abstracted, or deferrable without harming the goal?
- **Risk** - what unstated assumptions, single points of failure, or irreversible steps does the plan carry?
- **Acceptance** - does each step have a verifiable completion criterion, or is "done" left to interpretation?
- **Gaps** - what work is missing that the stated goal clearly requires?`,

	models.ModeCode: `## Review Checklist (code)

- **Correctness** - logic errors, off-by-one mistakes, wrong return values, missing nil/zero-value checks.
- **Error handling** - errors silently discarded, not propagated, or wrapped in a way that loses context; missing cleanup on error paths.
- **Edge cases** - empty inputs, boundary conditions, concurrent access to shared state without synchronization.
- **Security** - injection vectors, path traversal, unsanitized input reaching exec or SQL, secrets in logs.
- **Tests** - are the changed paths covered, and do the tests assert behavior rather than implementation detail?
- **Maintainability** - does the change follow the surrounding code's patterns, or leave the next reader worse off?`,

	models.ModeAnalysis: `## Review Checklist (analysis)

- **Methodology** - is the chosen method appropriate for the question, and applied correctly?
- **Data** - are sources, sample sizes, inclusion criteria, and preprocessing steps stated and defensible?
- **Validity** - do the statistics support the claims; are uncertainty, confounders, and multiple comparisons handled?
- **Reproducibility** - could another analyst reach the same result from what is written?
- **Conclusions** - does every conclusion follow from the evidence presented, with no overreach?
- **Limitations** - are the important caveats acknowledged rather than buried or omitted?`,

	models.ModeReport: `## Review Checklist (report)

- **Structure** - does the document lead with findings and flow so each section builds on the last?
- **Support** - is every claim backed by evidence in the document, with numbers that agree between text, tables, and figures?
- **Completeness** - are methods, results, and caveats all present, with nothing essential missing?
- **Clarity** - is the writing unambiguous, with terms defined at first use and jargon kept in check?
- **Audience** - does the level of detail fit the stated readership?
- **Actionability** - can the reader act on the recommendations, or are they too vague to execute?`,
}

// Checklist returns the review criteria for a mode. Unknown modes return an
// empty string; callers validate the mode first.
func Checklist(mode models.Mode) string {
	return checklists[mode]
}

// preamble opens every prompt: it addresses the reviewer by its anonymous
// label and states the blinding rules.
func preamble(label string, mode models.Mode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, one member of an anonymous peer review panel convened to evaluate a %s artifact.\n\n", label, mode)
	b.WriteString("The panel is blinded. You must never state, hint at, or speculate about which model, vendor, or person any panel member is - including yourself. ")
	fmt.Fprintf(&b, "If you need to refer to yourself, use only the name %s.\n", label)
	return b.String()
}

// artifactBlock wraps the artifact text in unambiguous delimiters so reviewer
// output cannot be confused with the material under review.
func artifactBlock(mode models.Mode, text string) string {
	var b strings.Builder
	b.WriteString("## Artifact Under Review\n\n")
	fmt.Fprintf(&b, "<artifact mode=%q>\n", mode)
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("</artifact>\n")
	return b.String()
}

// verdictContract is the structured-response requirement. The classifier
// prefers this line over free-text keyword scanning, so the prompts insist
// on it.
const verdictContract = `Your response MUST end with exactly one final line in this form:

VERDICT: APPROVE
or
VERDICT: REJECT

Do not put anything after the verdict line.`

// round1Prompt builds the independent first-round prompt: preamble,
// checklist, artifact, verdict contract. No other reviewer's output appears
// here - round 1 opinions are formed in isolation.
func round1Prompt(label string, mode models.Mode, artifactText string) string {
	var b strings.Builder
	b.WriteString(preamble(label, mode))
	b.WriteString("\n")
	b.WriteString(checklists[mode])
	b.WriteString("\n\n")
	b.WriteString(artifactBlock(mode, artifactText))
	b.WriteString("\n## Response Requirements\n\n")
	b.WriteString("Review the artifact against every checklist area. Be specific: cite the exact line, step, or claim behind each finding. If the artifact was truncated, review what is present and note the truncation.\n\n")
	b.WriteString(verdictContract)
	b.WriteString("\n")
	return b.String()
}

// discussionPrompt builds the round-k prompt (k >= 2): the full anonymized
// transcript of the previous round, the original artifact, and the
// discussion instructions. Every reviewer receives the same transcript;
// only the addressed label differs.
func discussionPrompt(label string, round int, prev models.RoundTranscript, mode models.Mode, artifactText string) string {
	var b strings.Builder
	b.WriteString(preamble(label, mode))
	fmt.Fprintf(&b, "\nThis is discussion round %d. In round %d every panel member reviewed the artifact independently; their anonymized positions are reproduced in full below.\n\n", round, prev.Round)

	b.WriteString(transcriptBlock(prev))
	b.WriteString("\n")
	b.WriteString(artifactBlock(mode, artifactText))

	fmt.Fprintf(&b, "\n## Discussion Instructions\n\n")
	fmt.Fprintf(&b, "Read the other reviewers' positions alongside the original artifact, then respond as %s with:\n\n", label)
	b.WriteString("1. Points where you agree with other reviewers.\n")
	b.WriteString("2. Points where you disagree, each with your reasoning.\n")
	b.WriteString("3. Any position you have changed since the previous round, with the justification for the change.\n")
	b.WriteString("4. A consensus self-assessment on its own line: CONSENSUS: YES if you believe the panel now agrees, CONSENSUS: NO otherwise.\n")
	b.WriteString("5. Your updated verdict.\n\n")
	b.WriteString(verdictContract)
	b.WriteString("\n")
	return b.String()
}

// transcriptBlock renders one round's sanitized records under their
// anonymous labels, in stable label order.
func transcriptBlock(rt models.RoundTranscript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Round %d Panel Positions (anonymized)\n", rt.Round)
	for _, rec := range rt.Records {
		fmt.Fprintf(&b, "\n### %s\n\n", rec.Label)
		b.WriteString(strings.TrimSpace(rec.SanitizedText))
		b.WriteString("\n")
	}
	return b.String()
}
