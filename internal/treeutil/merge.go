package treeutil

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/oxhq/mapperengine/internal/core"
)

// ApplyMethod selects how an incoming tree is grafted onto an existing one.
type ApplyMethod string

const (
	MethodReplace    ApplyMethod = "REPLACE"
	MethodReset      ApplyMethod = "RESET"
	MethodAddOnly    ApplyMethod = "ADD_ONLY"
	MethodDeleteOnly ApplyMethod = "DELETE_ONLY"
	MethodMerge      ApplyMethod = "MERGE"
)

// MergeReport carries the result tree plus an informational structural diff
// between the pre- and post-merge trees. ClearReferences/ClearContext signal
// to the caller (the store layer) that RESET implies clearing references
// and context — treeutil never mutates those itself.
type MergeReport struct {
	Tree             *core.MapperTreeNode
	Patch            []byte
	ClearReferences  bool
	ClearContext     bool
}

// MergeTrees grafts incoming onto existing per method, per §4.1:
//
//   - REPLACE / RESET: a clone of incoming; RESET additionally asks the
//     caller to clear references and context.
//   - ADD_ONLY: recursively add children present in incoming but absent from
//     existing (keyed by name at each level), recursing into name-matched
//     children; never removes anything.
//   - DELETE_ONLY: remove children absent from incoming, recurse into
//     matches.
//   - MERGE: ADD_ONLY followed by DELETE_ONLY.
func MergeTrees(existing, incoming *core.MapperTreeNode, method ApplyMethod) MergeReport {
	before := treeToJSON(existing)

	var result *core.MapperTreeNode
	report := MergeReport{}

	switch method {
	case MethodReplace:
		result = CloneNode(incoming)
	case MethodReset:
		result = CloneNode(incoming)
		report.ClearReferences = true
		report.ClearContext = true
	case MethodAddOnly:
		result = addOnly(existing, incoming)
	case MethodDeleteOnly:
		result = deleteOnly(existing, incoming)
	case MethodMerge:
		result = deleteOnly(addOnly(existing, incoming), incoming)
	default:
		result = existing
	}

	report.Tree = result
	after := treeToJSON(result)
	if patch, err := jsonpatch.CreateMergePatch(before, after); err == nil {
		report.Patch = patch
	}
	return report
}

func treeToJSON(n *core.MapperTreeNode) []byte {
	if n == nil {
		b, _ := json.Marshal(map[string]any{})
		return b
	}
	b, err := json.Marshal(n)
	if err != nil {
		b, _ = json.Marshal(map[string]any{})
	}
	return b
}

func addOnly(existing, incoming *core.MapperTreeNode) *core.MapperTreeNode {
	if existing == nil {
		return CloneNode(incoming)
	}
	if incoming == nil {
		return CloneNode(existing)
	}
	result := cloneShallow(existing)
	byName := make(map[string]*core.MapperTreeNode, len(result.Children))
	for _, c := range result.Children {
		byName[c.Name] = c
	}
	children := append([]*core.MapperTreeNode{}, result.Children...)
	for _, incomingChild := range incoming.Children {
		if existingChild, ok := byName[incomingChild.Name]; ok {
			merged := addOnly(existingChild, incomingChild)
			for i, c := range children {
				if c.ID == existingChild.ID {
					children[i] = merged
				}
			}
			continue
		}
		children = append(children, CloneNode(incomingChild))
	}
	result.Children = children
	return result
}

func deleteOnly(existing, incoming *core.MapperTreeNode) *core.MapperTreeNode {
	if existing == nil {
		return nil
	}
	if incoming == nil {
		return CloneNode(existing)
	}
	incomingByName := make(map[string]*core.MapperTreeNode, len(incoming.Children))
	for _, c := range incoming.Children {
		incomingByName[c.Name] = c
	}
	result := cloneShallow(existing)
	var children []*core.MapperTreeNode
	for _, c := range result.Children {
		match, ok := incomingByName[c.Name]
		if !ok {
			continue // absent from incoming: drop it
		}
		children = append(children, deleteOnly(c, match))
	}
	result.Children = children
	return result
}

// NormalizeArrayChildren collapses concrete indexed children ([0], [1], ...)
// that may arrive from different source parsers into a single canonical
// arrayChild node named "[]" whose children are the union of fields
// observed across the indexed siblings.
func NormalizeArrayChildren(n *core.MapperTreeNode) *core.MapperTreeNode {
	if n == nil {
		return nil
	}
	cp := cloneShallow(n)
	if cp.Type == core.NodeArray {
		var indexed []*core.MapperTreeNode
		var rest []*core.MapperTreeNode
		for _, c := range cp.Children {
			if c.Type == core.NodeArrayChild || isIndexedPlaceholder(c.Name) {
				indexed = append(indexed, c)
			} else {
				rest = append(rest, NormalizeArrayChildren(c))
			}
		}
		if len(indexed) > 0 {
			unioned := unionArrayChildren(indexed)
			cp.Children = append(rest, unioned)
		} else {
			cp.Children = rest
		}
		return cp
	}
	children := make([]*core.MapperTreeNode, len(cp.Children))
	for i, c := range cp.Children {
		children[i] = NormalizeArrayChildren(c)
	}
	cp.Children = children
	return cp
}

func isIndexedPlaceholder(name string) bool {
	if name == "[]" {
		return true
	}
	if len(name) < 3 || name[0] != '[' || name[len(name)-1] != ']' {
		return false
	}
	for _, r := range name[1 : len(name)-1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func unionArrayChildren(indexed []*core.MapperTreeNode) *core.MapperTreeNode {
	canonical := &core.MapperTreeNode{ID: NewNodeID(), Name: "[]", Type: core.NodeArrayChild}
	byName := map[string]*core.MapperTreeNode{}
	var order []string
	for _, idx := range indexed {
		norm := NormalizeArrayChildren(idx)
		for _, field := range norm.Children {
			if existing, ok := byName[field.Name]; ok {
				merged := addOnly(existing, field)
				byName[field.Name] = merged
				continue
			}
			byName[field.Name] = field
			order = append(order, field.Name)
		}
	}
	for _, name := range order {
		canonical.Children = append(canonical.Children, byName[name])
	}
	return canonical
}
