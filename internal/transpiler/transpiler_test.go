package transpiler

import (
	"strings"
	"testing"
)

func TestTranspileArithmeticClosure(t *testing.T) {
	fragment := `def total = list.findAll{ it.active }.collect{ it.price }.sum()`
	result, err := Transpile(fragment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Code, ".filter(") {
		t.Fatalf("missing filter rewrite: %s", result.Code)
	}
	if !strings.Contains(result.Code, ".map(") {
		t.Fatalf("missing map rewrite: %s", result.Code)
	}
	if !strings.Contains(result.Code, ".reduce(") {
		t.Fatalf("missing reduce rewrite: %s", result.Code)
	}
	if result.Confidence < 0.9 {
		t.Fatalf("expected confidence >= 0.9, got %v", result.Confidence)
	}
	for _, w := range result.Warnings {
		if w.Severity == SeverityError {
			t.Fatalf("expected zero platform (error-severity) warnings, got %+v", w)
		}
	}
}

func TestTranspilePlatformAPI(t *testing.T) {
	fragment := `JTUtil.getGlobalData("k")`
	result, err := Transpile(fragment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Code, `platformStub("JTUtil.getGlobalData")`) {
		t.Fatalf("expected shim proxy call, got: %s", result.Code)
	}
	errCount := 0
	for _, w := range result.Warnings {
		if w.Severity == SeverityError {
			errCount++
		}
	}
	if errCount != 1 {
		t.Fatalf("expected exactly one error-severity warning, got %d (%+v)", errCount, result.Warnings)
	}
	if result.Confidence >= 1 {
		t.Fatalf("expected confidence strictly < 1, got %v", result.Confidence)
	}
}

func TestTranspileIdempotentOnAlreadyTargetDialect(t *testing.T) {
	fragment := "let total = list.filter(x => x.active).map(x => x.price).reduce((a, b) => a + b, 0);\n"
	first, _ := Transpile(fragment)
	second, _ := Transpile(first.Code)
	if first.Code != second.Code {
		t.Fatalf("transpile is not idempotent on target-dialect input:\nfirst:  %q\nsecond: %q", first.Code, second.Code)
	}
}

func TestRangeSlicingInclusiveEnd(t *testing.T) {
	fragment := "let sub = items[2..5];"
	result, _ := Transpile(fragment)
	if !strings.Contains(result.Code, "items.slice(2, (5) + 1)") {
		t.Fatalf("unexpected range rewrite: %s", result.Code)
	}
}

func TestRangeSlicingOpenEnd(t *testing.T) {
	fragment := "let sub = items[2..-1];"
	result, _ := Transpile(fragment)
	if !strings.Contains(result.Code, "items.slice(2)") {
		t.Fatalf("unexpected open-end range rewrite: %s", result.Code)
	}
}

func TestFindMatchingBraceHonorsQuotingStyles(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"double-quoted", `{ a = "}"; b = 1; }`},
		{"single-quoted", `{ a = '}'; b = 1; }`},
		{"backtick", "{ a = `}`; b = 1; }"},
		{"escaped-quote-inside-string", `{ a = "he said \"}\""; b = 1; }`},
		{"nested-braces", `{ a = { c: 1 }; b = 2; }`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			close := FindMatchingBrace(c.src, 0)
			if close != len(c.src)-1 {
				t.Fatalf("expected close at %d, got %d for %q", len(c.src)-1, close, c.src)
			}
		})
	}
}

func TestScanClosuresHandlesNestedClosures(t *testing.T) {
	fragment := `def total = list.findAll{ it.tags.find{ t -> t == "x" } != null }.collect{ it.price }.sum()`
	result, err := Transpile(fragment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Code, ".find(t =>") {
		t.Fatalf("expected nested find() rewrite, got: %s", result.Code)
	}
	if !strings.Contains(result.Code, ".filter(it =>") {
		t.Fatalf("expected outer filter() rewrite, got: %s", result.Code)
	}
}

func TestEachWithIndexAndPutAndContainsKey(t *testing.T) {
	fragment := `
def result = [:]
items.eachWithIndex{ item, idx ->
  result.put(idx, item)
}
if (result.containsKey(0)) {
  println "has zero"
}
`
	result, _ := Transpile(fragment)
	if !strings.Contains(result.Code, "let result = {}") {
		t.Fatalf("missing empty-map rewrite: %s", result.Code)
	}
	if !strings.Contains(result.Code, ".forEach((item, idx)") {
		t.Fatalf("missing eachWithIndex rewrite: %s", result.Code)
	}
	if !strings.Contains(result.Code, "result[idx] = item") {
		t.Fatalf("missing put rewrite: %s", result.Code)
	}
	if !strings.Contains(result.Code, "(0 in result)") {
		t.Fatalf("missing containsKey rewrite: %s", result.Code)
	}
	if !strings.Contains(result.Code, `console.log("has zero")`) {
		t.Fatalf("missing println rewrite: %s", result.Code)
	}
}

func TestTranspileDeepFindAllRewritesToShimCall(t *testing.T) {
	fragment := `def matches = root.'**'.findAll{ it.@flag == '1' }`
	result, err := Transpile(fragment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Code, "deepFindAll(root, it => (") {
		t.Fatalf("expected a deepFindAll shim call, got: %s", result.Code)
	}
	if !strings.Contains(result.Code, "it['@flag'] == '1'") {
		t.Fatalf("expected the attribute access to be bracket-rewritten inside the predicate, got: %s", result.Code)
	}
}

func TestConfidenceClampedToZero(t *testing.T) {
	fragment := strings.Repeat(`JTUtil.getGlobalData("k")` + "\n", 10)
	result, _ := Transpile(fragment)
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", result.Confidence)
	}
}
