// Package resolver builds value expressions and output-path accessors for
// target nodes: §4.3 (reference resolver & value expression) and §4.4
// (output path builder) of the mapper spec.
package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/treeutil"
)

var identifierRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValueExpression, when Skip is true, signals that no assignment should be
// emitted for this node at all (step 3 of §4.3).
type ValueExpression struct {
	Expr string
	Skip bool
}

// BuildValueExpression implements §4.3's buildValueExpression:
//  1. node.Value set: a quoted literal when PlainTextValue, else verbatim.
//  2. else, with source references: the single reference's variable name,
//     or — with multiple references — a template string concatenation.
//  3. else: Skip (no assignment).
func BuildValueExpression(node *core.MapperTreeNode) ValueExpression {
	if node.Value != "" {
		if node.PlainTextValue {
			return ValueExpression{Expr: quoteJSString(node.Value)}
		}
		return ValueExpression{Expr: node.Value}
	}

	switch len(node.SourceReferences) {
	case 0:
		return ValueExpression{Skip: true}
	case 1:
		return ValueExpression{Expr: node.SourceReferences[0].VariableName}
	default:
		var names []string
		for _, ref := range node.SourceReferences {
			names = append(names, ref.VariableName)
		}
		return ValueExpression{Expr: "`" + strings.Join(wrapInterpolation(names), "") + "`"}
	}
}

func wrapInterpolation(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "${" + n + "}"
	}
	return out
}

func quoteJSString(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + replacer.Replace(s) + `"`
}

// OutputAccessor computes the left-hand-side accessor for a target node
// inside the given output variable, per §4.4. ArrayTempVars maps the id of
// an array node (that owns a loopReference) to the name of its registered
// temporary item variable (see emitter §4.5 step 3e, build-then-push).
func OutputAccessor(node *core.MapperTreeNode, targetTree *core.MapperTreeNode, outputVar string, arrayTempVars map[core.NodeID]string) string {
	ancestors := treeutil.GetAncestors(targetTree, node.ID)
	var sb strings.Builder
	sb.WriteString(outputVar)

	// ancestors is root-first; the synthetic root itself contributes no
	// segment, so we walk from index 1 onward, switching the base variable
	// whenever we cross an arrayChild whose preceding ancestor owns a loop.
	base := outputVar
	for i := 1; i < len(ancestors); i++ {
		a := ancestors[i]
		if a.Type == core.NodeArrayChild {
			if i > 0 {
				prev := ancestors[i-1]
				if prev.Type == core.NodeArray && prev.LoopReference != nil {
					if tmp, ok := arrayTempVars[prev.ID]; ok {
						base = tmp
					}
				}
			}
			continue
		}
		base = appendSegment(base, a.Name, a.Type)
	}

	if node.Type != core.NodeArrayChild {
		return appendSegment(base, node.Name, node.Type)
	}
	// node itself is an arrayChild: its accessor IS the temp var switch.
	parent := treeutil.FindParentNode(targetTree, node.ID)
	if parent != nil && parent.LoopReference != nil {
		if tmp, ok := arrayTempVars[parent.ID]; ok {
			return tmp
		}
	}
	return base
}

func appendSegment(base, name string, typ core.NodeType) string {
	if typ == core.NodeAttribute || !identifierRE.MatchString(name) {
		return fmt.Sprintf("%s[%s]", base, quoteJSString(name))
	}
	return base + "." + name
}
