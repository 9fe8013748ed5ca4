// Package treeutil provides immutable traversal, search, and mutation
// helpers over core.MapperTreeNode, plus the merge strategies used when
// grafting an incoming tree onto an existing one.
package treeutil

import (
	"github.com/google/uuid"

	"github.com/oxhq/mapperengine/internal/core"
)

// NewNodeID mints a fresh, stable opaque node id.
func NewNodeID() core.NodeID {
	return core.NodeID(uuid.NewString())
}

// GetPathFragment returns the path segment a node contributes: nil for
// arrayChild nodes (signalled by ok=false), "@name" for attributes,
// otherwise the node's name.
func GetPathFragment(n *core.MapperTreeNode) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type {
	case core.NodeArrayChild:
		return "", false
	case core.NodeAttribute:
		return "@" + n.Name, true
	default:
		return n.Name, true
	}
}

// GetFullPath returns the sequence of path fragments from the tree's root
// (whose own name is the first segment) to the node identified by id, or
// nil when id is not in the tree. arrayChild nodes, which have no fragment
// of their own, contribute the placeholder segment "[]" so the path encoder
// can recognize it.
func GetFullPath(id core.NodeID, tree *core.MapperTreeNode) []string {
	path := findPathSegments(tree, id, nil)
	return path
}

func findPathSegments(n *core.MapperTreeNode, target core.NodeID, trail []string) []string {
	if n == nil {
		return nil
	}
	var seg string
	switch n.Type {
	case core.NodeArrayChild:
		seg = "[]"
	default:
		if frag, ok := GetPathFragment(n); ok {
			seg = frag
		}
	}
	var nextTrail []string
	if seg != "" {
		nextTrail = append(append([]string{}, trail...), seg)
	} else {
		nextTrail = trail
	}

	if n.ID == target {
		return nextTrail
	}
	for _, c := range n.Children {
		if found := findPathSegments(c, target, nextTrail); found != nil {
			return found
		}
	}
	return nil
}

// FindNodeByID performs a depth-first search for the node with the given id.
// Returns nil when not found.
func FindNodeByID(tree *core.MapperTreeNode, id core.NodeID) *core.MapperTreeNode {
	if tree == nil {
		return nil
	}
	if tree.ID == id {
		return tree
	}
	for _, c := range tree.Children {
		if found := FindNodeByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// FindParentNode performs a depth-first search for the parent of the node
// with the given id. Returns nil when id is the root or not found.
func FindParentNode(tree *core.MapperTreeNode, id core.NodeID) *core.MapperTreeNode {
	if tree == nil {
		return nil
	}
	for _, c := range tree.Children {
		if c.ID == id {
			return tree
		}
		if found := FindParentNode(c, id); found != nil {
			return found
		}
	}
	return nil
}

// GetAncestors returns the chain of ancestors of id, ordered root-first,
// not including the node itself. Empty when id is the root or not found.
func GetAncestors(tree *core.MapperTreeNode, id core.NodeID) []*core.MapperTreeNode {
	var path []*core.MapperTreeNode
	if collectAncestors(tree, id, &path) {
		return path
	}
	return nil
}

func collectAncestors(n *core.MapperTreeNode, target core.NodeID, path *[]*core.MapperTreeNode) bool {
	if n == nil {
		return false
	}
	if n.ID == target {
		return true
	}
	for _, c := range n.Children {
		*path = append(*path, n)
		if collectAncestors(c, target, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}

// BuildIndex walks the tree once and returns an id -> node map, per the
// Design Notes guidance to avoid cyclic back-pointers and resolve
// cross-tree references through an on-demand index instead.
func BuildIndex(tree *core.MapperTreeNode) map[core.NodeID]*core.MapperTreeNode {
	idx := make(map[core.NodeID]*core.MapperTreeNode)
	var walk func(n *core.MapperTreeNode)
	walk = func(n *core.MapperTreeNode) {
		if n == nil {
			return
		}
		idx[n.ID] = n
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree)
	return idx
}

func cloneShallow(n *core.MapperTreeNode) *core.MapperTreeNode {
	cp := *n
	cp.Children = append([]*core.MapperTreeNode{}, n.Children...)
	cp.SourceReferences = append([]core.SourceReference{}, n.SourceReferences...)
	cp.LoopConditions = append([]core.LoopCondition{}, n.LoopConditions...)
	return &cp
}

// CloneNode deep-copies a subtree while preserving every node's identity.
func CloneNode(n *core.MapperTreeNode) *core.MapperTreeNode {
	if n == nil {
		return nil
	}
	cp := cloneShallow(n)
	cp.Children = make([]*core.MapperTreeNode, len(n.Children))
	for i, c := range n.Children {
		cp.Children[i] = CloneNode(c)
	}
	return cp
}

// DeepCopyNode deep-copies a subtree and mints a fresh id for every node,
// for use on paste/duplicate operations.
func DeepCopyNode(n *core.MapperTreeNode) *core.MapperTreeNode {
	if n == nil {
		return nil
	}
	cp := cloneShallow(n)
	cp.ID = NewNodeID()
	cp.Children = make([]*core.MapperTreeNode, len(n.Children))
	for i, c := range n.Children {
		cp.Children[i] = DeepCopyNode(c)
	}
	return cp
}

// UpdateNode returns a new tree with the node matching id replaced by
// mutate(node). Unaffected subtrees keep their original pointers
// (structural sharing).
func UpdateNode(tree *core.MapperTreeNode, id core.NodeID, mutate func(*core.MapperTreeNode) *core.MapperTreeNode) *core.MapperTreeNode {
	if tree == nil {
		return nil
	}
	if tree.ID == id {
		cp := cloneShallow(tree)
		return mutate(cp)
	}
	changed := false
	newChildren := make([]*core.MapperTreeNode, len(tree.Children))
	for i, c := range tree.Children {
		nc := UpdateNode(c, id, mutate)
		if nc != c {
			changed = true
		}
		newChildren[i] = nc
	}
	if !changed {
		return tree
	}
	cp := cloneShallow(tree)
	cp.Children = newChildren
	return cp
}

// RemoveNode returns a new tree with the node matching id (and its
// subtree) removed.
func RemoveNode(tree *core.MapperTreeNode, id core.NodeID) *core.MapperTreeNode {
	if tree == nil || tree.ID == id {
		return tree
	}
	newChildren := make([]*core.MapperTreeNode, 0, len(tree.Children))
	changed := false
	for _, c := range tree.Children {
		if c.ID == id {
			changed = true
			continue
		}
		nc := RemoveNode(c, id)
		if nc != c {
			changed = true
		}
		newChildren = append(newChildren, nc)
	}
	if !changed {
		return tree
	}
	cp := cloneShallow(tree)
	cp.Children = newChildren
	return cp
}

// InsertChild returns a new tree with child appended to the children of the
// node matching parentID. child keeps whatever id it already carries.
func InsertChild(tree *core.MapperTreeNode, parentID core.NodeID, child *core.MapperTreeNode) *core.MapperTreeNode {
	return UpdateNode(tree, parentID, func(n *core.MapperTreeNode) *core.MapperTreeNode {
		n.Children = append(append([]*core.MapperTreeNode{}, n.Children...), child)
		return n
	})
}

// InsertSibling returns a new tree with sibling inserted immediately after
// the node matching afterID, under the same parent.
func InsertSibling(tree *core.MapperTreeNode, afterID core.NodeID, sibling *core.MapperTreeNode) *core.MapperTreeNode {
	parent := FindParentNode(tree, afterID)
	if parent == nil {
		return tree
	}
	return UpdateNode(tree, parent.ID, func(n *core.MapperTreeNode) *core.MapperTreeNode {
		children := make([]*core.MapperTreeNode, 0, len(n.Children)+1)
		for _, c := range n.Children {
			children = append(children, c)
			if c.ID == afterID {
				children = append(children, sibling)
			}
		}
		n.Children = children
		return n
	})
}

// MoveNodeUp swaps the node matching id with its previous sibling.
func MoveNodeUp(tree *core.MapperTreeNode, id core.NodeID) *core.MapperTreeNode {
	return moveNode(tree, id, -1)
}

// MoveNodeDown swaps the node matching id with its next sibling.
func MoveNodeDown(tree *core.MapperTreeNode, id core.NodeID) *core.MapperTreeNode {
	return moveNode(tree, id, 1)
}

func moveNode(tree *core.MapperTreeNode, id core.NodeID, dir int) *core.MapperTreeNode {
	parent := FindParentNode(tree, id)
	if parent == nil {
		return tree
	}
	return UpdateNode(tree, parent.ID, func(n *core.MapperTreeNode) *core.MapperTreeNode {
		idx := -1
		for i, c := range n.Children {
			if c.ID == id {
				idx = i
				break
			}
		}
		target := idx + dir
		if idx < 0 || target < 0 || target >= len(n.Children) {
			return n
		}
		children := append([]*core.MapperTreeNode{}, n.Children...)
		children[idx], children[target] = children[target], children[idx]
		n.Children = children
		return n
	})
}

// RebuildFlatReferences walks the target tree and rebuilds the denormalised
// FlatReference list from each node's SourceReferences and LoopReference.
// This is the only place FlatReference values are produced; callers must
// never append to MapperState.References directly.
func RebuildFlatReferences(targetTree *core.MapperTreeNode) []core.FlatReference {
	var out []core.FlatReference
	var walk func(n *core.MapperTreeNode)
	walk = func(n *core.MapperTreeNode) {
		if n == nil {
			return
		}
		if n.LoopReference != nil {
			out = append(out, flattenReference(n.LoopReference.SourceReference, n.ID))
		}
		for _, ref := range n.SourceReferences {
			out = append(out, flattenReference(ref, n.ID))
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(targetTree)
	return out
}

func flattenReference(ref core.SourceReference, targetID core.NodeID) core.FlatReference {
	return core.FlatReference{
		ID:            ref.ID,
		SourceNodeID:  ref.SourceNodeID,
		TargetNodeID:  targetID,
		VariableName:  ref.VariableName,
		TextReference: ref.TextReference,
		CustomPath:    ref.CustomPath,
		LoopOverID:    ref.LoopOverID,
		IsLoop:        ref.IsLoop,
	}
}

// GroupNodes wraps the nodes matching ids (must share a parent) into a new
// element node with the given name, preserving their relative order.
func GroupNodes(tree *core.MapperTreeNode, ids []core.NodeID, groupName string) *core.MapperTreeNode {
	if len(ids) == 0 {
		return tree
	}
	parent := FindParentNode(tree, ids[0])
	if parent == nil {
		return tree
	}
	idSet := make(map[core.NodeID]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	return UpdateNode(tree, parent.ID, func(n *core.MapperTreeNode) *core.MapperTreeNode {
		group := &core.MapperTreeNode{ID: NewNodeID(), Name: groupName, Type: core.NodeElement}
		var children []*core.MapperTreeNode
		inserted := false
		for _, c := range n.Children {
			if idSet[c.ID] {
				group.Children = append(group.Children, c)
				if !inserted {
					children = append(children, group)
					inserted = true
				}
				continue
			}
			children = append(children, c)
		}
		n.Children = children
		return n
	})
}
