// Package executor runs a generated mapper script against an input document,
// per §4.6 of the mapper spec. Scripts are evaluated with goja, an embedded
// ECMAScript VM: every call gets a fresh *goja.Runtime, never reused or
// leaked across invocations.
package executor

import (
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/oxhq/mapperengine/internal/core"
)

// Options toggles executor behaviour.
type Options struct {
	// InjectShimLibrary registers the helper functions of shims.go (legacy
	// transpiled code calls these by name).
	InjectShimLibrary bool
}

// Result is the executor's never-throws contract made explicit: Error is
// populated on failure instead of the call returning a Go error.
type Result struct {
	Output     string            `json:"output"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"durationMs"`
	Logs       []core.Diagnostic `json:"logs"`
}

// Execute compiles script as the body of a function taking input and
// invokes it with the given input document. It never panics and never
// returns a non-nil error; the error return exists only to match the
// idiomatic Go (T, error) calling convention described in §6.
func Execute(script string, input string, opts Options) (res *Result, err error) {
	start := time.Now()
	res = &Result{}

	defer func() {
		res.DurationMs = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	vm := goja.New()
	logs := &res.Logs

	registerConsole(vm, logs)
	registerXML(vm)
	if opts.InjectShimLibrary {
		registerShims(vm, logs)
	}

	wrapped := "(function(input) {\n" + script + "\n})"
	fnVal, err := vm.RunString(wrapped)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}

	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		res.Error = "generated script did not produce a callable function"
		return res, nil
	}

	out, err := fn(goja.Undefined(), vm.ToValue(input))
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}

	res.Output = coerceOutput(out)
	return res, nil
}

// coerceOutput implements the null/undefined -> "" coercion rule of §4.6.
func coerceOutput(v goja.Value) string {
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}

func registerConsole(vm *goja.Runtime, logs *[]core.Diagnostic) {
	console := vm.NewObject()
	logFn := func(sev string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			*logs = append(*logs, core.Diagnostic{Severity: sev, Message: formatArgs(call.Arguments)})
			return goja.Undefined()
		}
	}
	console.Set("log", logFn(core.SeverityInfo))
	console.Set("warn", logFn(core.SeverityWarning))
	console.Set("error", logFn(core.SeverityError))
	vm.Set("console", console)
}

func formatArgs(args []goja.Value) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += a.String()
	}
	return s
}
