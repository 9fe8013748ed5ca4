// Package transpiler rewrites legacy-dialect (Groovy-like) script fragments
// into the JavaScript dialect the executor runs, per §4.7 of the mapper
// spec. It is explicitly pattern-based, not a parser: every stage is a pure
// string-to-string pass that also appends to a shared warning list, mirrored
// on the teacher's matcher.RegexMatcher shape (a compiled pattern wrapped in
// a small struct) but driven as an ordered pipeline instead of a single
// find pass.
package transpiler

import (
	"fmt"
	"strings"
)

// Warning is one diagnostic raised while rewriting a fragment.
type Warning struct {
	Line     int    `json:"line"`
	Original string `json:"original"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "info" | "warning" | "error"
}

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Result is the transpiler's output: rewritten code, the warnings collected
// along the way, and a confidence score in [0,1].
type Result struct {
	Code       string    `json:"code"`
	Warnings   []Warning `json:"warnings"`
	Confidence float64   `json:"confidence"`
}

// stage is one pipeline step: a pure string transform that may append
// warnings to acc.
type stage func(src string, acc *[]Warning) string

// Transpile runs the full preprocess -> tier1 -> tier2 -> tier3 ->
// postprocess pipeline. It never returns a non-nil error; the signature
// matches the rest of the package's idiomatic (T, error) convention and the
// "transpile never throws" contract of §7.
func Transpile(fragment string) (*Result, error) {
	var warnings []Warning

	src := fragment
	pipeline := []stage{preprocess, tier1Mechanical, tier2Structural, tier3Platform, postprocess}
	for _, st := range pipeline {
		src = st(src, &warnings)
	}

	confidence := scoreConfidence(warnings, src)
	return &Result{Code: src, Warnings: warnings, Confidence: confidence}, nil
}

func addWarning(acc *[]Warning, severity, original, message string) {
	*acc = append(*acc, Warning{
		Line:     strings.Count(original, "\n") + 1,
		Original: strings.TrimSpace(firstLine(original)),
		Message:  message,
		Severity: severity,
	})
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// scoreConfidence implements §4.7's scoring rule: start at 1, -0.15 per
// error-severity warning, -0.05 per warning-severity warning, -0.05 per
// residual source-dialect pattern still present in the final code, clamped
// to [0,1].
func scoreConfidence(warnings []Warning, finalCode string) float64 {
	score := 1.0
	for _, w := range warnings {
		switch w.Severity {
		case SeverityError:
			score -= 0.15
		case SeverityWarning:
			score -= 0.05
		}
	}
	score -= float64(countResidualPatterns(finalCode)) * 0.05

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// residualPatterns are legacy-dialect tell-tales that should never survive a
// complete rewrite; each one present in the final code costs confidence.
var residualPatterns = []string{
	"def ", "println", "?:", ".size()", "JTUtil.", "JTLookupUtil.", "JTV3Utils.",
	"JTJSONObject", ".toInteger()", ".toLong()", ".toDouble()", ".toBigDecimal()",
	".containsKey(", "<=>", "=~", "BigDecimal", "JsonSlurper",
}

func countResidualPatterns(code string) int {
	count := 0
	for _, p := range residualPatterns {
		count += strings.Count(code, p)
	}
	return count
}

// preprocess normalizes line endings and trims trailing whitespace on each
// line before any rewrite rule runs.
func preprocess(src string, _ *[]Warning) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// postprocess collapses runs of blank lines introduced by rewrites and
// trims outer whitespace.
func postprocess(src string, _ *[]Warning) string {
	for strings.Contains(src, "\n\n\n") {
		src = strings.ReplaceAll(src, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(src) + "\n"
}

func warnf(acc *[]Warning, severity, original, format string, args ...any) {
	addWarning(acc, severity, original, fmt.Sprintf(format, args...))
}
