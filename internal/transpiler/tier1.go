package transpiler

import "regexp"

// rule is a single mechanical token rewrite: a compiled pattern plus either
// a literal replacement template (regexp.ReplaceAllString syntax) or, for
// rewrites that need to inspect the match, a warning to raise whenever it
// fires.
type rule struct {
	re          *regexp.Regexp
	replacement string
	severity    string // "" when the rule is silent
	message     string
}

// tier1Rules is the mechanical rewrite catalogue of §4.7 tier 1.
var tier1Rules = []rule{
	// def (a, b) = ... destructuring binding.
	{regexp.MustCompile(`\bdef\s+\(([^)]+)\)\s*=`), `let [$1] =`, "", ""},
	// def x = ... mutable binding.
	{regexp.MustCompile(`\bdef\s+`), `let `, "", ""},

	// Elvis operator.
	{regexp.MustCompile(`\?\:`), `||`, "", ""},

	// Empty map literal.
	{regexp.MustCompile(`\[\s*:\s*\]`), `{}`, "", ""},

	// println(...) / println x
	{regexp.MustCompile(`\bprintln\s*\(([^)]*)\)`), `console.log($1)`, "", ""},
	{regexp.MustCompile(`\bprintln\s+([^\n;]+)`), `console.log($1)`, "", ""},

	// obj.put(k, v) -> obj[k] = v
	{regexp.MustCompile(`(\w+)\.put\(\s*([^,]+?)\s*,\s*(.+?)\s*\)`), `$1[$2] = $3`, "", ""},
	// obj.add(x) -> obj.push(x)
	{regexp.MustCompile(`(\w+)\.add\(`), `$1.push(`, "", ""},
	// obj.size() -> obj.length
	{regexp.MustCompile(`(\w+)\.size\(\)`), `$1.length`, "", ""},

	// Numeric coercions.
	{regexp.MustCompile(`(\w+)\.toInteger\(\)`), `parseInt($1, 10)`, "", ""},
	{regexp.MustCompile(`(\w+)\.toLong\(\)`), `parseInt($1, 10)`, "", ""},
	{regexp.MustCompile(`(\w+)\.toDouble\(\)`), `parseFloat($1)`, "", ""},
	{regexp.MustCompile(`(\w+)\.toBigDecimal\(\)`), `parseFloat($1)`, "", ""},
	{regexp.MustCompile(`(\w+)\.toList\(\)`), `Array.from($1)`, "", ""},
	{regexp.MustCompile(`(\w+)\.toString\(\)`), `String($1)`, "", ""},

	// obj.containsKey(k) -> (k in obj)
	{regexp.MustCompile(`(\w+)\.containsKey\(\s*([^)]+?)\s*\)`), `($2 in $1)`, "", ""},

	// Numeric literal suffixes (BigDecimal/Long/Float/Double): 10g, 5L, 3.2f.
	{regexp.MustCompile(`\b(\d+(?:\.\d+)?)[gGlLfFdD]\b`), `$1`, "", ""},

	// Typed catch -> untyped catch.
	{regexp.MustCompile(`catch\s*\(\s*[\w.]+\s+(\w+)\s*\)`), `catch ($1)`, "", ""},

	// Standard-library collection constructors.
	{regexp.MustCompile(`\bnew\s+ArrayList\s*\(\s*\)`), `[]`, "", ""},
	{regexp.MustCompile(`\bnew\s+LinkedList\s*\(\s*\)`), `[]`, "", ""},
	{regexp.MustCompile(`\bnew\s+HashMap\s*\(\s*\)`), `{}`, "", ""},
	{regexp.MustCompile(`\bnew\s+LinkedHashMap\s*\(\s*\)`), `{}`, "", ""},
	{regexp.MustCompile(`\bnew\s+HashSet\s*\(\s*\)`), `new Set()`, "", ""},
}

// simpleMapLiteralRE matches a single-entry `[key: value]` map literal; the
// bracket pair is swapped for braces since the `key: value` interior is
// already valid object-literal syntax.
var simpleMapLiteralRE = regexp.MustCompile(`\[\s*([\w'"]+)\s*:\s*([^\[\]]+?)\s*\]`)

// gStringRE matches a Groovy GString: a double-quoted string containing at
// least one ${...} interpolation.
var gStringRE = regexp.MustCompile(`"([^"\\]|\\.)*\$\{[^}]*\}([^"\\]|\\.)*"`)

func tier1Mechanical(src string, acc *[]Warning) string {
	for _, r := range tier1Rules {
		if r.re.MatchString(src) && r.message != "" {
			for _, m := range r.re.FindAllString(src, -1) {
				addWarning(acc, r.severity, m, r.message)
			}
		}
		src = r.re.ReplaceAllString(src, r.replacement)
	}

	src = gStringRE.ReplaceAllStringFunc(src, func(m string) string {
		inner := m[1 : len(m)-1]
		return "`" + inner + "`"
	})

	src = simpleMapLiteralRE.ReplaceAllString(src, `{ $1: $2 }`)

	return src
}
