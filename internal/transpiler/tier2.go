package transpiler

import (
	"regexp"
	"strings"
)

// closureMethods maps each Groovy closure-taking collection method to the
// JS higher-order method it becomes; collectEntries and findResult need a
// shaped wrapper rather than a 1:1 rename, handled specially below.
var closureMethods = map[string]string{
	"each":           "forEach",
	"eachWithIndex":  "forEach",
	"find":           "find",
	"findAll":        "filter",
	"collect":        "map",
	"collectEntries": "collectEntries",
	"findResult":     "findResult",
}

var closureMethodNames = []string{"each", "eachWithIndex", "find", "findAll", "collect", "collectEntries", "findResult"}

// rewriteClosures drives scanClosures and replaces every
// `recv.method{ params -> body }` occurrence with its JS equivalent,
// innermost first so nested closures are rewritten before their enclosing
// call is re-scanned.
func rewriteClosures(src string, acc *[]Warning) string {
	for {
		calls := scanClosures(src, closureMethodNames)
		if len(calls) == 0 {
			return src
		}
		// Rewrite the rightmost (and therefore innermost, for left-to-right
		// nesting) call found first, so earlier spans stay valid for the
		// next rescan.
		c := calls[0]
		for _, cand := range calls[1:] {
			if cand.Start > c.Start {
				c = cand
			}
		}
		params, body := splitClosureParams(c.Body)
		replacement := renderClosure(c.Receiver, c.Method, params, body)
		src = src[:c.Start] + replacement + src[c.End:]
	}
}

func renderClosure(recv, method string, params []string, body string) string {
	arrow := strings.Join(params, ", ")
	if len(params) != 1 {
		arrow = "(" + arrow + ")"
	}

	switch method {
	case "eachWithIndex":
		// Groovy passes (item, index); JS forEach passes (item, index) too.
		return recv + ".forEach(" + arrow + " => { " + body + " })"
	case "each":
		return recv + ".forEach(" + arrow + " => { " + body + " })"
	case "find":
		return recv + ".find(" + arrow + " => (" + body + "))"
	case "findAll":
		return recv + ".filter(" + arrow + " => (" + body + "))"
	case "collect":
		return recv + ".map(" + arrow + " => (" + body + "))"
	case "collectEntries":
		return "Object.fromEntries(" + recv + ".map(" + arrow + " => (" + body + ")))"
	case "findResult":
		return recv + ".map(" + arrow + " => (" + body + ")).find(_r => _r !== undefined && _r !== null)"
	default:
		return recv + "." + method + "(" + arrow + " => { " + body + " })"
	}
}

// Aggregate method rewrites: .sum()/.max()/.min() over an array. These
// operate on whatever chain precedes them, so the rewrite only needs to
// replace the trailing call, not capture the (possibly chained) receiver.
var sumRE = regexp.MustCompile(`\.sum\(\)`)
var maxRE = regexp.MustCompile(`\.max\(\)`)
var minRE = regexp.MustCompile(`\.min\(\)`)

// .round(n) -> roundTo(recv, n), via the executor shim.
var roundRE = regexp.MustCompile(`(\w+)\.round\(([^)]*)\)`)

// `as Type` casts are dropped; JS has no static type system to cast into.
var asCastRE = regexp.MustCompile(`\s+as\s+[A-Z]\w*`)

// Range slicing: [a..b] (inclusive end) and [a..-1] (open end).
var rangeOpenEndRE = regexp.MustCompile(`\[\s*([^\].]+?)\s*\.\.\s*-1\s*\]`)
var rangeClosedRE = regexp.MustCompile(`\[\s*([^\].]+?)\s*\.\.\s*([^\].]+?)\s*\]`)

// =~ regex match operator.
var matchOperatorRE = regexp.MustCompile(`(\w+)\s*=~\s*(/(?:[^/\\]|\\.)*/|"(?:[^"\\]|\\.)*")`)

// str.matches(pattern)
var matchesRE = regexp.MustCompile(`(\w+)\.matches\(\s*(.+?)\s*\)`)

// str.replaceFirst(a, b) -> str.replace(a, b) (single substitution).
var replaceFirstRE = regexp.MustCompile(`(\w+)\.replaceFirst\(`)

// str.tokenize(sep) -> str.split(sep)
var tokenizeRE = regexp.MustCompile(`(\w+)\.tokenize\(([^)]*)\)`)

// list.collate(n) -> chunked slices, inlined (no dedicated shim for this).
var collateRE = regexp.MustCompile(`(\w+)\.collate\(([^)]*)\)`)

// XML path helpers.
var xmlTextRE = regexp.MustCompile(`(\w+)\.text\(\)`)
var xmlNamespacedTagRE = regexp.MustCompile(`(\w+)\.'([^']+)'`)
var xmlAttrRE = regexp.MustCompile(`(\w+)\.@(\w+)`)
var xmlDeepFindAllRE = regexp.MustCompile(`(\w+)\.'\*\*'\.findAll\{([^}]*)\}`)

// Spaceship operator.
var spaceshipRE = regexp.MustCompile(`\(?\s*([\w.]+)\s*<=>\s*([\w.]+)\s*\)?`)

// Spread-dot: list*.field -> list.map(x => x.field)
var spreadDotRE = regexp.MustCompile(`(\w+)\*\.(\w+)`)

// .contains -> .includes
var containsRE = regexp.MustCompile(`(\w+)\.contains\(`)

func tier2Structural(src string, acc *[]Warning) string {
	// The deep find-all form must be rewritten before the generic closure
	// pass, which would otherwise consume its `.findAll{...}` as a filter.
	src = xmlDeepFindAllRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := xmlDeepFindAllRE.FindStringSubmatch(m)
		params, body := splitClosureParams(sub[2])
		arrow := strings.Join(params, ", ")
		return "deepFindAll(" + sub[1] + ", " + arrow + " => (" + body + "))"
	})

	src = rewriteClosures(src, acc)

	src = sumRE.ReplaceAllString(src, `.reduce((_a, _b) => _a + _b, 0)`)
	src = maxRE.ReplaceAllString(src, `.reduce((_a, _b) => (_a > _b ? _a : _b))`)
	src = minRE.ReplaceAllString(src, `.reduce((_a, _b) => (_a < _b ? _a : _b))`)

	src = roundRE.ReplaceAllString(src, `roundTo($1, $2)`)

	src = asCastRE.ReplaceAllString(src, "")

	src = rangeOpenEndRE.ReplaceAllString(src, `.slice($1)`)
	src = rangeClosedRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := rangeClosedRE.FindStringSubmatch(m)
		return ".slice(" + sub[1] + ", (" + sub[2] + ") + 1)"
	})

	src = matchOperatorRE.ReplaceAllString(src, `$2.test($1)`)
	src = matchesRE.ReplaceAllString(src, `new RegExp($2).test($1)`)
	src = replaceFirstRE.ReplaceAllString(src, `$1.replace(`)
	src = tokenizeRE.ReplaceAllString(src, `$1.split($2)`)

	src = collateRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := collateRE.FindStringSubmatch(m)
		recv, n := sub[1], sub[2]
		return "Array.from({ length: Math.ceil(" + recv + ".length / (" + n + ")) }, (_, _i) => " +
			recv + ".slice(_i * (" + n + "), _i * (" + n + ") + (" + n + ")))"
	})

	src = xmlTextRE.ReplaceAllString(src, `xmlText($1)`)
	src = xmlNamespacedTagRE.ReplaceAllString(src, `$1['$2']`)
	src = xmlAttrRE.ReplaceAllString(src, `$1['@$2']`)

	src = spaceshipRE.ReplaceAllString(src, `($1 < $2 ? -1 : $1 > $2 ? 1 : 0)`)
	src = spreadDotRE.ReplaceAllString(src, `$1.map(_x => _x.$2)`)
	src = containsRE.ReplaceAllString(src, `$1.includes(`)

	return src
}
