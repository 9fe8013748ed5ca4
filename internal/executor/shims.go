package executor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/oxhq/mapperengine/internal/core"
)

// isoCountryNames is a small seed table; it covers the codes exercised by
// the legacy transpiler's test fixtures rather than the full ISO 3166 list.
var isoCountryNames = map[string]string{
	"US": "United States",
	"CA": "Canada",
	"MX": "Mexico",
	"GB": "United Kingdom",
	"DE": "Germany",
	"FR": "France",
	"JP": "Japan",
}

// registerShims installs the helper functions transpiled legacy code calls
// by name (§4.6.1). They are only present when Options.InjectShimLibrary is
// set; ordinary generated scripts never reference them.
func registerShims(vm *goja.Runtime, logs *[]core.Diagnostic) {
	vm.Set("createDateFormatter", func(call goja.FunctionCall) goja.Value {
		pattern := call.Argument(0).String()
		goFormat := legacyPatternToGoLayout(pattern)
		return vm.ToValue(func(inner goja.FunctionCall) goja.Value {
			ms := inner.Argument(0).ToInteger()
			t := time.UnixMilli(ms).UTC()
			return vm.ToValue(t.Format(goFormat))
		})
	})

	vm.Set("roundTo", func(call goja.FunctionCall) goja.Value {
		n := call.Argument(0).ToFloat()
		digits := call.Argument(1).ToInteger()
		factor := math.Pow(10, float64(digits))
		return vm.ToValue(math.Round(n*factor) / factor)
	})

	vm.Set("isoCountryName", func(call goja.FunctionCall) goja.Value {
		code := strings.ToUpper(call.Argument(0).String())
		if name, ok := isoCountryNames[code]; ok {
			return vm.ToValue(name)
		}
		return vm.ToValue(code)
	})

	vm.Set("xmlText", func(call goja.FunctionCall) goja.Value {
		v := call.Argument(0).Export()
		m, ok := v.(map[string]any)
		if !ok {
			return vm.ToValue("")
		}
		text, _ := m["#text"].(string)
		return vm.ToValue(text)
	})

	// deepFindAll backs the legacy `node.'**'.findAll{...}` XML path
	// construct (tier2.go's xmlDeepFindAllRE): recurse into every nested
	// object value of the parseXML tree shape, collecting those for which
	// predicate returns true. Attribute ("@...") and text ("#text") keys
	// are leaves, never recursed into.
	vm.Set("deepFindAll", func(call goja.FunctionCall) goja.Value {
		predicate, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			return vm.ToValue([]any{})
		}
		var results []any
		var walk func(node any)
		walk = func(node any) {
			m, ok := node.(map[string]any)
			if !ok {
				return
			}
			if res, err := predicate(goja.Undefined(), vm.ToValue(m)); err == nil && res.ToBoolean() {
				results = append(results, m)
			}
			for k, v := range m {
				if strings.HasPrefix(k, "@") || k == "#text" {
					continue
				}
				walk(v)
			}
		}
		walk(call.Argument(0).Export())
		return vm.ToValue(results)
	})

	vm.Set("platformStub", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		*logs = append(*logs, core.Diagnostic{
			Severity: core.SeverityError,
			Message:  fmt.Sprintf("platform API %q has no equivalent and was stubbed out", name),
		})
		return vm.ToValue("")
	})
}

// legacyPatternToGoLayout converts a small subset of legacy date-pattern
// tokens (yyyy, MM, dd, HH, mm, ss) into a Go reference-time layout.
func legacyPatternToGoLayout(pattern string) string {
	replacer := strings.NewReplacer(
		"yyyy", "2006",
		"MM", "01",
		"dd", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	)
	return replacer.Replace(pattern)
}
