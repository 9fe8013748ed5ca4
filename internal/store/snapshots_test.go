package store

import "testing"

func TestSnapshotStackUndoRedo(t *testing.T) {
	s := NewSnapshotStack()
	s.Push("v1")
	s.Push("v2")
	s.Push("v3")

	got, ok := s.Undo()
	if !ok || got != "v2" {
		t.Fatalf("expected undo to v2, got %q ok=%v", got, ok)
	}
	got, ok = s.Undo()
	if !ok || got != "v1" {
		t.Fatalf("expected undo to v1, got %q ok=%v", got, ok)
	}
	if _, ok := s.Undo(); ok {
		t.Fatalf("expected no further undo available")
	}

	got, ok = s.Redo()
	if !ok || got != "v2" {
		t.Fatalf("expected redo to v2, got %q ok=%v", got, ok)
	}
}

func TestSnapshotStackPushClearsRedo(t *testing.T) {
	s := NewSnapshotStack()
	s.Push("v1")
	s.Push("v2")
	s.Undo()
	if !s.CanRedo() {
		t.Fatalf("expected redo available after undo")
	}
	s.Push("v3")
	if s.CanRedo() {
		t.Fatalf("expected redo cleared after a new push")
	}
}

func TestSnapshotStackBoundedAtMax(t *testing.T) {
	s := NewSnapshotStack()
	for i := 0; i < MaxSnapshots+5; i++ {
		s.Push(string(rune('a' + i)))
	}
	if len(s.undo) != MaxSnapshots {
		t.Fatalf("expected undo stack capped at %d, got %d", MaxSnapshots, len(s.undo))
	}
}
