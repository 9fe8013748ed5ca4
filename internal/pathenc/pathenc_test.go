package pathenc

import (
	"testing"

	"github.com/oxhq/mapperengine/internal/core"
)

func TestEncodeDropsRootAndArrayPlaceholders(t *testing.T) {
	path := []string{"root", "orders", "[]", "id"}
	got := Encode(path, "input")
	want := "input.orders.id"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEncodeBracketsAttributesAndNonIdentifiers(t *testing.T) {
	path := []string{"root", "@id"}
	if got := Encode(path, "input"); got != "input['@id']" {
		t.Fatalf("got %q", got)
	}
	path2 := []string{"root", "weird-name"}
	if got := Encode(path2, "input"); got != "input['weird-name']" {
		t.Fatalf("got %q", got)
	}
}

func buildSourceTree() *core.MapperTreeNode {
	id := &core.MapperTreeNode{ID: "id", Name: "id", Type: core.NodeElement}
	status := &core.MapperTreeNode{ID: "status", Name: "status", Type: core.NodeElement}
	child := &core.MapperTreeNode{ID: "child", Name: "[]", Type: core.NodeArrayChild, Children: []*core.MapperTreeNode{id, status}}
	orders := &core.MapperTreeNode{ID: "orders", Name: "orders", Type: core.NodeArray, Children: []*core.MapperTreeNode{child}}
	root := &core.MapperTreeNode{ID: "root", Name: "root", Type: core.NodeElement, Children: []*core.MapperTreeNode{orders}}
	return root
}

func TestBuildSourceAccessPathRootFrame(t *testing.T) {
	tree := buildSourceTree()
	ref := &core.SourceReference{SourceNodeID: "id"}
	got := BuildSourceAccessPath(ref, tree, nil, "", "input")
	if got != "input.orders.id" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildSourceAccessPathLoopFrame(t *testing.T) {
	tree := buildSourceTree()
	// The loop reference's own id ("loopref-1") is deliberately distinct
	// from the source-tree node id it resolves to ("orders") — in any
	// real (e.g. migrated) document these are two independently-minted
	// ids, and BuildSourceAccessPath must tell them apart.
	active := &ActiveLoop{ID: "loopref-1", SourceNodeID: "orders"}
	ref := &core.SourceReference{SourceNodeID: "id", LoopOverID: "loopref-1"}
	got := BuildSourceAccessPath(ref, tree, active, "_o", "input")
	if got != "_o.id" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildSourceAccessPathLoopFrameIsIteratorWhenNothingRemains(t *testing.T) {
	tree := buildSourceTree()
	active := &ActiveLoop{ID: "loopref-1", SourceNodeID: "orders"}
	ref := &core.SourceReference{SourceNodeID: "orders", LoopOverID: "loopref-1"}
	got := BuildSourceAccessPath(ref, tree, active, "_o", "input")
	if got != "_o" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildSourceAccessPathCustomPathWins(t *testing.T) {
	tree := buildSourceTree()
	ref := &core.SourceReference{SourceNodeID: "id", CustomPath: "input.custom.accessor"}
	got := BuildSourceAccessPath(ref, tree, nil, "", "input")
	if got != "input.custom.accessor" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildLoopSourcePath(t *testing.T) {
	tree := buildSourceTree()
	loopRef := core.NewLoopReference(core.SourceReference{SourceNodeID: "orders"})
	got := BuildLoopSourcePath(loopRef, tree, "input")
	if got != "input.orders" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildLoopSourcePathArrayChildResolvesToParent(t *testing.T) {
	tree := buildSourceTree()
	loopRef := core.NewLoopReference(core.SourceReference{SourceNodeID: "child"})
	got := BuildLoopSourcePath(loopRef, tree, "input")
	if got != "input.orders" {
		t.Fatalf("got %q", got)
	}
}
