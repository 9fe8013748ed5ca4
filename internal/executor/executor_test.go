package executor

import (
	"strings"
	"testing"
)

func TestExecuteSimpleTransform(t *testing.T) {
	script := `
input = JSON.parse(input);
let output = {};
output.orderId = input.order.id;
return JSON.stringify(output);
`
	res, err := Execute(script, `{"order":{"id":"A1"}}`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected runtime error: %s", res.Error)
	}
	if res.Output != `{"orderId":"A1"}` {
		t.Fatalf("unexpected output: %s", res.Output)
	}
}

func TestExecuteNeverThrowsOnBadScript(t *testing.T) {
	res, err := Execute("this is not valid javascript {{{", "{}", Options{})
	if err != nil {
		t.Fatalf("Execute must never return an error, got %v", err)
	}
	if res.Error == "" {
		t.Fatalf("expected a populated Error field for a compile failure")
	}
}

func TestExecuteCapturesConsoleLogs(t *testing.T) {
	script := `
input = JSON.parse(input);
console.log("hello", 1);
console.warn("careful");
let output = {};
return JSON.stringify(output);
`
	res, _ := Execute(script, "{}", Options{})
	if len(res.Logs) != 2 {
		t.Fatalf("expected 2 log entries, got %+v", res.Logs)
	}
	if res.Logs[0].Message != "hello 1" {
		t.Fatalf("unexpected log message: %q", res.Logs[0].Message)
	}
}

func TestExecuteNullCoercesToEmptyString(t *testing.T) {
	res, _ := Execute("input = JSON.parse(input); return null;", "{}", Options{})
	if res.Output != "" {
		t.Fatalf("expected empty output, got %q", res.Output)
	}
}

func TestExecuteShimLibraryRoundTo(t *testing.T) {
	script := `
input = JSON.parse(input);
let output = {};
output.value = roundTo(1.005, 2);
return JSON.stringify(output);
`
	res, _ := Execute(script, "{}", Options{InjectShimLibrary: true})
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if !strings.Contains(res.Output, "value") {
		t.Fatalf("unexpected output: %s", res.Output)
	}
}

func TestExecuteShimLibraryDeepFindAll(t *testing.T) {
	script := `
input = JSON.parse(input);
let tree = parseXML("<root><a flag='1'><b flag='0'/><c flag='1'/></a></root>");
let hits = deepFindAll(tree, n => n['@flag'] === '1');
let output = {};
output.count = hits.length;
return JSON.stringify(output);
`
	res, err := Execute(script, "{}", Options{InjectShimLibrary: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected runtime error: %s", res.Error)
	}
	if res.Output != `{"count":2}` {
		t.Fatalf("expected deepFindAll to recurse and match both flagged nodes, got %s", res.Output)
	}
}

func TestExecutePlatformStubLogsDiagnostic(t *testing.T) {
	script := `
input = JSON.parse(input);
platformStub("legacyBarcodeScanner");
let output = {};
return JSON.stringify(output);
`
	res, _ := Execute(script, "{}", Options{InjectShimLibrary: true})
	found := false
	for _, l := range res.Logs {
		if l.Severity == "error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a platformStub diagnostic, got %+v", res.Logs)
	}
}
