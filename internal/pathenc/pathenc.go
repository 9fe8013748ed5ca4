// Package pathenc converts internal node paths (as produced by
// treeutil.GetFullPath) into data-accessor expressions for the target
// dialect (JavaScript-shaped: dotted property access, bracketed string
// accessors for non-identifier segments).
package pathenc

import (
	"regexp"
	"strings"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/treeutil"
)

var identifierRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// isArrayPlaceholder reports whether a path segment is the canonical "[]"
// array-child marker or an indexed form ("[0]", "[12]", ...) that survived
// normalization.
func isArrayPlaceholder(seg string) bool {
	if seg == "[]" {
		return true
	}
	if len(seg) < 3 || seg[0] != '[' || seg[len(seg)-1] != ']' {
		return false
	}
	for _, r := range seg[1 : len(seg)-1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Encode converts a path (root-first, as returned by treeutil.GetFullPath)
// into a dotted/bracketed accessor expression relative to base. The
// synthetic leading "root" segment and any array-child placeholders are
// dropped.
func Encode(path []string, base string) string {
	var sb strings.Builder
	sb.WriteString(base)
	for i, seg := range path {
		if i == 0 && seg == "root" {
			continue
		}
		if isArrayPlaceholder(seg) {
			continue
		}
		if strings.HasPrefix(seg, "@") || !identifierRE.MatchString(seg) {
			sb.WriteString("[")
			sb.WriteString(quoteString(seg))
			sb.WriteString("]")
			continue
		}
		sb.WriteString(".")
		sb.WriteString(seg)
	}
	return sb.String()
}

func quoteString(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + replacer.Replace(s) + "'"
}

// ActiveLoop describes the loop currently in scope during emission, as
// needed by BuildSourceAccessPath to decide whether a reference resolves
// relative to the loop iterator or the input root. ID is the loop
// reference's own id (what a descendant's LoopOverID is matched against);
// SourceNodeID is the source-tree node the loop actually iterates over
// (what the prefix strip below needs) — the two are distinct freshly-minted
// ids and must not be confused.
type ActiveLoop struct {
	ID           core.NodeID
	SourceNodeID core.NodeID
}

// BuildSourceAccessPath computes the accessor expression for ref, relative
// either to the root input variable or, when ref is scoped to the active
// loop, to iterVar.
func BuildSourceAccessPath(ref *core.SourceReference, sourceTree *core.MapperTreeNode, activeLoop *ActiveLoop, iterVar, rootVar string) string {
	if ref.CustomPath != "" {
		return ref.CustomPath
	}

	fullPath := treeutil.GetFullPath(ref.SourceNodeID, sourceTree)
	if fullPath == nil {
		return "undefined"
	}

	if activeLoop != nil && iterVar != "" && ref.LoopOverID == activeLoop.ID {
		loopNode := treeutil.FindNodeByID(sourceTree, activeLoop.SourceNodeID)
		loopPath := treeutil.GetFullPath(activeLoop.SourceNodeID, sourceTree)
		if loopNode != nil && loopNode.Type == core.NodeArrayChild {
			if len(loopPath) > 0 {
				loopPath = loopPath[:len(loopPath)-1]
			}
		}
		rel := stripPrefix(fullPath, loopPath)
		if len(rel) > 0 && isArrayPlaceholder(rel[0]) {
			rel = rel[1:]
		}
		if len(rel) == 0 {
			return iterVar
		}
		return Encode(rel, iterVar)
	}

	return Encode(fullPath, rootVar)
}

// BuildLoopSourcePath computes the iterable expression for a loop
// reference: the source array the loop iterates over, relative to the
// input root. When the loop's source node is an arrayChild, it resolves to
// the parent array by stripping the trailing placeholder first.
func BuildLoopSourcePath(loopRef *core.LoopReference, sourceTree *core.MapperTreeNode, rootVar string) string {
	if loopRef.CustomPath != "" {
		return loopRef.CustomPath
	}
	node := treeutil.FindNodeByID(sourceTree, loopRef.SourceNodeID)
	fullPath := treeutil.GetFullPath(loopRef.SourceNodeID, sourceTree)
	if fullPath == nil {
		return "undefined"
	}
	if node != nil && node.Type == core.NodeArrayChild && len(fullPath) > 0 {
		fullPath = fullPath[:len(fullPath)-1]
	}
	return Encode(fullPath, rootVar)
}

func stripPrefix(path, prefix []string) []string {
	if len(prefix) > len(path) {
		return path
	}
	for i, seg := range prefix {
		if path[i] != seg {
			return path
		}
	}
	return path[len(prefix):]
}
