// Package emitter walks a core.MapperState and assembles the JavaScript
// script described by §4.5 of the mapper spec: input parse, declared
// globals, lookup tables, user functions, prolog, top-level reference
// variables, output construction, epilog, return.
package emitter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/pathenc"
	"github.com/oxhq/mapperengine/internal/resolver"
)

var objectKeyRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// objectKey renders a lookup-table entry key as an object-literal key:
// unquoted when it is a valid identifier, else a quoted string.
func objectKey(key string) string {
	if objectKeyRE.MatchString(key) {
		return key
	}
	return quoteJSString(key)
}

// RootVar and OutputVar are the fixed names the emitted script uses for the
// (already-parsed) input document and the object under construction.
const (
	RootVar   = "input"
	OutputVar = "output"
)

// Generator accumulates the emitted script and diagnostics for one
// MapperState. It never returns a hard error: missing trees or dangling
// references degrade to diagnostics and `"undefined"` per §7.
type Generator struct {
	state      *core.MapperState
	sb         strings.Builder
	diags      []core.Diagnostic
	loopDepth  int
	refIDsSeen map[core.NodeID]bool
}

// Generate runs the full emitter pipeline and returns the script body, the
// diagnostics accumulated along the way, and a nil error (kept for an
// idiomatic Go signature; see §7 — the emitter never throws).
func Generate(state *core.MapperState) (string, []core.Diagnostic, error) {
	g := &Generator{state: state, refIDsSeen: map[core.NodeID]bool{}}
	g.run()
	return g.sb.String(), g.diags, nil
}

func (g *Generator) diag(sev, msg string) {
	g.diags = append(g.diags, core.Diagnostic{Severity: sev, Message: msg})
}

func (g *Generator) line(indent int, format string, args ...any) {
	g.sb.WriteString(strings.Repeat("  ", indent))
	g.sb.WriteString(fmt.Sprintf(format, args...))
	g.sb.WriteString("\n")
}

func (g *Generator) run() {
	g.sb.WriteString("\"use strict\";\n")

	// 1. Input parse.
	switch g.state.SourceInputType {
	case core.InputXML:
		g.line(0, "%s = parseXML(%s);", RootVar, RootVar)
	default:
		g.line(0, "%s = JSON.parse(%s);", RootVar, RootVar)
	}

	// 2. Global variable declarations.
	for _, gv := range g.state.LocalContext.GlobalVariables {
		kind := "let"
		if gv.IsFinal {
			kind = "const"
		}
		g.line(0, "%s %s = %s;", kind, gv.Name, literalOrExpr(gv.Value, gv.PlainTextValue))
	}

	// 3. Lookup tables.
	for _, lt := range g.state.LocalContext.LookupTables {
		g.line(0, "const %s = {", lt.Name)
		for _, entry := range lt.Entries {
			g.line(1, "%s: %s,", objectKey(entry.Key), literalOrExpr(entry.Value, entry.PlainTextValue))
		}
		g.line(0, "};")
	}

	// 4. User functions, pasted verbatim.
	for _, fn := range g.state.LocalContext.Functions {
		g.sb.WriteString(fn.Body)
		g.sb.WriteString("\n")
	}

	// 5. Prolog.
	if g.state.LocalContext.PrologScript != "" {
		g.sb.WriteString(g.state.LocalContext.PrologScript)
		g.sb.WriteString("\n")
	}

	// 6. Top-level reference variables (loopOverId absent), deduplicated.
	if g.state.TargetTreeNode != nil {
		for _, ref := range g.collectTopLevelRefs(g.state.TargetTreeNode) {
			if g.refIDsSeen[ref.ID] {
				continue
			}
			g.refIDsSeen[ref.ID] = true
			accessor := pathenc.BuildSourceAccessPath(&ref, g.state.SourceTreeNode, nil, "", RootVar)
			if accessor == "undefined" {
				g.diag(core.SeverityWarning, fmt.Sprintf("reference %s points to a missing source node", ref.ID))
			}
			g.line(0, "const %s = %s;", ref.VariableName, accessor)
		}
	}

	// 7. Output construction.
	g.line(0, "let %s = {};", OutputVar)
	if g.state.TargetTreeNode != nil {
		for _, child := range g.state.TargetTreeNode.Children {
			g.generateTargetNode(child, 0, nil, "", map[core.NodeID]string{})
		}
	} else {
		g.diag(core.SeverityWarning, "mapper document has no target tree; output is an empty object")
	}

	// 8. Epilog.
	if g.state.LocalContext.EpilogScript != "" {
		g.sb.WriteString(g.state.LocalContext.EpilogScript)
		g.sb.WriteString("\n")
	}

	// 9. Return.
	switch g.state.TargetInputType {
	case core.InputXML:
		g.line(0, "return toXML(%s);", OutputVar)
	default:
		g.line(0, "return JSON.stringify(%s);", OutputVar)
	}
}

func literalOrExpr(value string, plainText bool) string {
	if plainText {
		return quoteJSString(value)
	}
	return value
}

func quoteJSString(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + replacer.Replace(s) + `"`
}

// collectTopLevelRefs walks the whole target tree collecting references
// whose LoopOverID is unset, in deterministic (stable) tree order.
func (g *Generator) collectTopLevelRefs(n *core.MapperTreeNode) []core.SourceReference {
	var out []core.SourceReference
	var walk func(*core.MapperTreeNode)
	walk = func(n *core.MapperTreeNode) {
		if n == nil {
			return
		}
		for _, ref := range n.SourceReferences {
			if ref.LoopOverID == "" {
				out = append(out, ref)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// collectSubtreeRefs walks node and every descendant collecting source
// references scoped to loopID, for §4.5 step 3f.
func collectSubtreeRefs(n *core.MapperTreeNode, loopID core.NodeID) []core.SourceReference {
	var out []core.SourceReference
	var walk func(*core.MapperTreeNode)
	walk = func(n *core.MapperTreeNode) {
		if n == nil {
			return
		}
		for _, ref := range n.SourceReferences {
			if ref.LoopOverID == loopID {
				out = append(out, ref)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type loopScope struct {
	id core.NodeID
}

// generateTargetNode implements the 8-step recursive generator of §4.5.
func (g *Generator) generateTargetNode(node *core.MapperTreeNode, indent int, activeLoop *loopScope, iterVar string, arrayTempVars map[core.NodeID]string) {
	// Step 1: code nodes inject verbatim and return.
	if node.Type == core.NodeCode {
		g.sb.WriteString(node.Value)
		g.sb.WriteString("\n")
		return
	}

	closeCondition := false
	if node.NodeCondition != nil && strings.TrimSpace(node.NodeCondition.Condition) != "" {
		g.line(indent, "if (%s) {", node.NodeCondition.Condition)
		indent++
		closeCondition = true
	}

	closeLoop := false
	closeLoopConditions := false
	pushedTempVar := ""
	arrayAccessor := ""

	if node.LoopReference != nil {
		var sourceTree *core.MapperTreeNode
		if g.state != nil {
			sourceTree = g.state.SourceTreeNode
		}

		iterable := node.LoopStatement
		if iterable == "" {
			iterable = pathenc.BuildLoopSourcePath(node.LoopReference, sourceTree, RootVar)
		}
		newIterVar := node.LoopIterator
		if newIterVar == "" {
			newIterVar = "_" + node.LoopReference.VariableName
		}

		if node.Type == core.NodeArray {
			arrayAccessor = resolver.OutputAccessor(node, g.state.TargetTreeNode, OutputVar, arrayTempVars)
			g.line(indent, "if (!Array.isArray(%s)) %s = [];", arrayAccessor, arrayAccessor)
		}

		g.line(indent, "for (const %s of %s) {", newIterVar, iterable)
		indent++
		closeLoop = true

		if len(node.LoopConditions) > 0 {
			clause := buildLoopConditionClause(node, newIterVar)
			g.line(indent, "if (%s) {", clause)
			indent++
			closeLoopConditions = true
		}

		if node.Type == core.NodeArray {
			g.loopDepth++
			pushedTempVar = fmt.Sprintf("_item_%d", g.loopDepth)
			g.line(indent, "const %s = {};", pushedTempVar)
			arrayTempVars = cloneTempVars(arrayTempVars)
			arrayTempVars[node.ID] = pushedTempVar
		}

		for _, ref := range collectSubtreeRefs(node, node.LoopReference.ID) {
			if g.refIDsSeen[ref.ID] {
				continue
			}
			g.refIDsSeen[ref.ID] = true
			accessor := pathenc.BuildSourceAccessPath(&ref, sourceTree, &pathenc.ActiveLoop{ID: node.LoopReference.ID, SourceNodeID: node.LoopReference.SourceNodeID}, newIterVar, RootVar)
			if accessor == "undefined" {
				g.diag(core.SeverityWarning, fmt.Sprintf("reference %s points to a missing source node", ref.ID))
			}
			g.line(indent, "const %s = %s;", ref.VariableName, accessor)
		}

		activeLoop = &loopScope{id: node.LoopReference.ID}
		iterVar = newIterVar
	}

	if node.CustomCode != "" {
		g.sb.WriteString(strings.Repeat("  ", indent))
		g.sb.WriteString(node.CustomCode)
		g.sb.WriteString("\n")
	}

	if node.Type != core.NodeArray && node.Type != core.NodeArrayChild {
		ve := resolver.BuildValueExpression(node)
		if !ve.Skip {
			accessor := resolver.OutputAccessor(node, g.state.TargetTreeNode, OutputVar, arrayTempVars)
			g.line(indent, "%s = %s;", accessor, ve.Expr)
			if (node.DebugComment || g.state.MapperPreferences.DebugComment) && len(node.SourceReferences) > 0 {
				var names []string
				for _, r := range node.SourceReferences {
					names = append(names, r.VariableName)
				}
				g.line(indent, "// refs: %s", strings.Join(names, ", "))
			}
		}
	}

	for _, child := range node.Children {
		g.generateTargetNode(child, indent, activeLoop, iterVar, arrayTempVars)
	}

	if pushedTempVar != "" {
		g.line(indent, "if (Object.keys(%s).length > 0) { %s.push(%s); }", pushedTempVar, arrayAccessor, pushedTempVar)
	}

	if closeLoopConditions {
		indent--
		g.line(indent, "}")
	}
	if closeLoop {
		indent--
		g.line(indent, "}")
	}
	if closeCondition {
		indent--
		g.line(indent, "}")
	}
}

func cloneTempVars(m map[core.NodeID]string) map[core.NodeID]string {
	out := make(map[core.NodeID]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func buildLoopConditionClause(node *core.MapperTreeNode, iterVar string) string {
	connective := "&&"
	if node.LoopConditionsConnective == core.ConnectiveOr {
		connective = "||"
	}
	var clauses []string
	for _, cond := range node.LoopConditions {
		accessor := pathenc.Encode(append([]string{"root"}, strings.Split(cond.SourceNodePath, ".")...), iterVar)
		suffix := cond.Condition
		if suffix == "" {
			suffix = cond.Operator + " " + cond.Value
		}
		clauses = append(clauses, strings.TrimSpace(accessor+" "+suffix))
	}
	return strings.Join(clauses, " "+connective+" ")
}
