package store

import (
	"path/filepath"
	"testing"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/executor"
)

func TestConnectAndRecordRun(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")
	db, err := Connect(dsn, false)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	rec := NewRecorder(db)

	res := &executor.Result{
		Output:     `{"ok":true}`,
		DurationMs: 3,
		Logs:       []core.Diagnostic{{Severity: core.SeverityInfo, Message: "hello"}},
	}
	if err := rec.RecordRun("mapper-1", "return JSON.stringify(input);", `{"ok":true}`, res, nil); err != nil {
		t.Fatalf("record run: %v", err)
	}

	runs, err := rec.RunsForMapper("mapper-1", 10)
	if err != nil {
		t.Fatalf("runs for mapper: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Output != `{"ok":true}` {
		t.Fatalf("unexpected output: %s", runs[0].Output)
	}
	if len(runs[0].Diagnostics) != 1 || runs[0].Diagnostics[0].Message != "hello" {
		t.Fatalf("expected 1 preloaded diagnostic, got %+v", runs[0].Diagnostics)
	}
}

func TestRecorderNilIsNoOp(t *testing.T) {
	var rec *Recorder
	if err := rec.RecordRun("m", "s", "i", &executor.Result{}, nil); err != nil {
		t.Fatalf("expected nil recorder RecordRun to be a no-op, got %v", err)
	}
	runs, err := rec.RunsForMapper("m", 10)
	if err != nil || runs != nil {
		t.Fatalf("expected nil recorder RunsForMapper to be a no-op, got %v, %v", runs, err)
	}
}
