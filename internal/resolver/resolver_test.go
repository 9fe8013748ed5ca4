package resolver

import (
	"testing"

	"github.com/oxhq/mapperengine/internal/core"
)

func TestBuildValueExpressionLiteral(t *testing.T) {
	node := &core.MapperTreeNode{Value: "hello", PlainTextValue: true}
	ve := BuildValueExpression(node)
	if ve.Skip || ve.Expr != `"hello"` {
		t.Fatalf("unexpected: %+v", ve)
	}
}

func TestBuildValueExpressionRawExpression(t *testing.T) {
	node := &core.MapperTreeNode{Value: "a + b", PlainTextValue: false}
	ve := BuildValueExpression(node)
	if ve.Skip || ve.Expr != "a + b" {
		t.Fatalf("unexpected: %+v", ve)
	}
}

func TestBuildValueExpressionSingleReference(t *testing.T) {
	node := &core.MapperTreeNode{SourceReferences: []core.SourceReference{{VariableName: "_id"}}}
	ve := BuildValueExpression(node)
	if ve.Skip || ve.Expr != "_id" {
		t.Fatalf("unexpected: %+v", ve)
	}
}

func TestBuildValueExpressionMultipleReferencesTemplate(t *testing.T) {
	node := &core.MapperTreeNode{SourceReferences: []core.SourceReference{
		{VariableName: "_first"}, {VariableName: "_last"},
	}}
	ve := BuildValueExpression(node)
	if ve.Skip || ve.Expr != "`${_first}${_last}`" {
		t.Fatalf("unexpected: %+v", ve)
	}
}

func TestBuildValueExpressionSkipsWhenNothingToEmit(t *testing.T) {
	node := &core.MapperTreeNode{}
	if ve := BuildValueExpression(node); !ve.Skip {
		t.Fatalf("expected skip, got %+v", ve)
	}
}

func TestOutputAccessorSimple(t *testing.T) {
	leaf := &core.MapperTreeNode{ID: "orderId", Name: "orderId", Type: core.NodeElement}
	root := &core.MapperTreeNode{ID: "root", Name: "root", Type: core.NodeElement, Children: []*core.MapperTreeNode{leaf}}
	got := OutputAccessor(leaf, root, "output", nil)
	if got != "output.orderId" {
		t.Fatalf("got %q", got)
	}
}

func TestOutputAccessorArrayChildUsesTempVar(t *testing.T) {
	leaf := &core.MapperTreeNode{ID: "orderId", Name: "orderId", Type: core.NodeElement}
	arrayChild := &core.MapperTreeNode{ID: "ac", Name: "[]", Type: core.NodeArrayChild, Children: []*core.MapperTreeNode{leaf}}
	array := &core.MapperTreeNode{
		ID: "items", Name: "items", Type: core.NodeArray,
		LoopReference: core.NewLoopReference(core.SourceReference{}),
		Children:      []*core.MapperTreeNode{arrayChild},
	}
	root := &core.MapperTreeNode{ID: "root", Name: "root", Type: core.NodeElement, Children: []*core.MapperTreeNode{array}}

	temps := map[core.NodeID]string{"items": "_item_1"}
	got := OutputAccessor(leaf, root, "output", temps)
	if got != "_item_1.orderId" {
		t.Fatalf("got %q", got)
	}
}
