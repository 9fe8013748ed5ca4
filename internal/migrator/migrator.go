// Package migrator upgrades a prior mapper document serialisation — one
// that cross-referenced nodes by integer id instead of by uuid — into the
// current core.MapperState shape, per §4.8.
//
// The legacy document is read permissively: every field is fetched through
// a small set of coercing accessors (getString, getBool, ...) that fall
// back to a zero value instead of failing, mirroring the permissive
// map[string]any reads the rest of this codebase's teacher corpus uses for
// loosely-typed wire payloads.
package migrator

import (
	"fmt"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/treeutil"
)

// legacyTypeNames maps the closed set of node-type spellings a prior
// serialisation used onto the current core.NodeType set. Anything not in
// this table falls back to core.NodeElement.
var legacyTypeNames = map[string]core.NodeType{
	"obj":        core.NodeElement,
	"object":     core.NodeElement,
	"field":      core.NodeElement,
	"attr":       core.NodeAttribute,
	"attribute":  core.NodeAttribute,
	"list":       core.NodeArray,
	"array":      core.NodeArray,
	"listItem":   core.NodeArrayChild,
	"arrayChild": core.NodeArrayChild,
	"item":       core.NodeArrayChild,
	"script":     core.NodeCode,
	"code":       core.NodeCode,
}

func normalizeNodeType(legacy string) core.NodeType {
	if t, ok := legacyTypeNames[legacy]; ok {
		return t
	}
	return core.NodeElement
}

// idMaps carries the cross-references a migration pass accumulates.
type idMaps struct {
	// old-uuid or old-integer-id (stringified) -> new uuid
	nodeIDs map[string]core.NodeID
	// old integer loop id -> new loop reference uuid, populated in Pass B as
	// loop-carrying target nodes are visited.
	loopIDs map[string]core.NodeID
}

func newIDMaps() *idMaps {
	return &idMaps{
		nodeIDs: make(map[string]core.NodeID),
		loopIDs: make(map[string]core.NodeID),
	}
}

// Migrate converts a legacy document (already unmarshalled into a permissive
// map[string]any tree) into the current core.MapperState.
func Migrate(legacy map[string]any) (*core.MapperState, error) {
	maps := newIDMaps()

	var sourceTree *core.MapperTreeNode
	if raw := getMap(legacy, "sourceTreeNode", "sourceTree"); raw != nil {
		sourceTree = migrateSourceNode(raw, maps)
	}

	var targetTree *core.MapperTreeNode
	if raw := getMap(legacy, "targetTreeNode", "targetTree"); raw != nil {
		targetTree = migrateTargetNode(raw, maps)
	}

	state := &core.MapperState{
		ModelVersion:          core.CurrentModelVersion,
		ID:                    getString(legacy, string(treeutil.NewNodeID()), "id"),
		Name:                  getString(legacy, "", "name"),
		SourceTreeNode:        sourceTree,
		TargetTreeNode:        targetTree,
		LocalContext:          migrateContext(getMap(legacy, "localContext", "context")),
		MapperPreferences:     migratePreferences(getMap(legacy, "mapperPreferences", "preferences")),
		SourceInputType:       migrateInputType(getString(legacy, "", "sourceInputType", "sourceFormat")),
		TargetInputType:       migrateInputType(getString(legacy, "", "targetInputType", "targetFormat")),
		SourceOriginalContent: getString(legacy, "", "sourceOriginalContent", "originalSource"),
	}

	// Pass C: rebuild the flat reference list from the migrated target tree,
	// never trusting whatever denormalised list the legacy document carried.
	state.References = treeutil.RebuildFlatReferences(state.TargetTreeNode)

	return state, nil
}

// migrateSourceNode is Pass A: depth-first walk minting a fresh id per node
// and recording both the old-uuid and old-integer-id mappings to it.
func migrateSourceNode(raw map[string]any, maps *idMaps) *core.MapperTreeNode {
	newID := treeutil.NewNodeID()
	recordOldID(raw, newID, maps)

	n := &core.MapperTreeNode{
		ID:          newID,
		Name:        getString(raw, "", "name", "label"),
		Type:        normalizeNodeType(getString(raw, "", "type", "nodeType")),
		SampleValue: getString(raw, "", "sampleValue", "exampleValue"),
	}
	for _, childRaw := range getMapSlice(raw, "children") {
		n.Children = append(n.Children, migrateSourceNode(childRaw, maps))
	}
	return n
}

// migrateTargetNode is Pass B: depth-first walk minting fresh ids, resolving
// each loop reference's sourceNodeId against the Pass A maps, and recording
// old-loop-integer-id -> new-loop-uuid so that descendant loopOverRef values
// can be retargeted.
func migrateTargetNode(raw map[string]any, maps *idMaps) *core.MapperTreeNode {
	newID := treeutil.NewNodeID()
	recordOldID(raw, newID, maps)

	n := &core.MapperTreeNode{
		ID:             newID,
		Name:           getString(raw, "", "name", "label"),
		Type:           normalizeNodeType(getString(raw, "", "type", "nodeType")),
		Value:          getString(raw, "", "value", "valueExpression"),
		PlainTextValue: getBool(raw, "plainTextValue", "isPlainText"),
		CustomCode:     getString(raw, "", "customCode", "script"),
		Label:          getString(raw, "", "label"),
		Comment:        getString(raw, "", "comment", "note"),
		Format:         getString(raw, "", "format"),
		ErrorMessage:   getString(raw, "", "errorMessage"),
		NonEmpty:       getBool(raw, "nonEmpty", "required"),
		DebugComment:   getBool(raw, "debugComment", ""),
		Quote:          getString(raw, "", "quote"),
		LoopStatement:  getString(raw, "", "loopStatement"),
	}

	if cond := getString(raw, "", "nodeCondition", "condition"); cond != "" {
		n.NodeCondition = &core.NodeCondition{Condition: cond}
	}

	if loopRaw := getMap(raw, "loopReference", "loopRef"); loopRaw != nil {
		ref := migrateSourceReference(loopRaw, maps)
		ref.IsLoop = true
		n.LoopReference = core.NewLoopReference(ref)
		// A legacy integer loop id identifies this loop reference for
		// descendant loopOverRef retargeting. It must map to the loop
		// reference's own fresh id (n.LoopReference.ID), the value a
		// descendant's LoopOverID is matched against throughout the
		// emitter — not the array node's own id.
		legacyLoopID := firstNonEmpty(
			getRawString(raw, "legacyLoopId"), getRawString(loopRaw, "legacyLoopId"),
			getRawString(loopRaw, "jsonId"),
		)
		if legacyLoopID != "" {
			maps.loopIDs[legacyLoopID] = n.LoopReference.ID
		}
	}

	for _, condRaw := range getMapSlice(raw, "loopConditions") {
		n.LoopConditions = append(n.LoopConditions, core.LoopCondition{
			SourceNodePath: getString(condRaw, "", "sourceNodePath", "path"),
			Operator:       getString(condRaw, "", "operator", "op"),
			Value:          getString(condRaw, "", "value"),
			Condition:      getString(condRaw, "", "condition"),
		})
	}
	if connective := getString(raw, "", "loopConditionsConnective", "connective"); connective == string(core.ConnectiveOr) {
		n.LoopConditionsConnective = core.ConnectiveOr
	} else if len(n.LoopConditions) > 0 {
		n.LoopConditionsConnective = core.ConnectiveAnd
	}

	for _, refRaw := range getMapSlice(raw, "sourceReferences", "references") {
		ref := migrateSourceReference(refRaw, maps)
		if loopOverRef := getRawString(refRaw, "loopOverRef"); loopOverRef != "" {
			if resolved, ok := maps.loopIDs[loopOverRef]; ok {
				ref.LoopOverID = resolved
			}
		}
		n.SourceReferences = append(n.SourceReferences, ref)
	}

	for _, childRaw := range getMapSlice(raw, "children") {
		n.Children = append(n.Children, migrateTargetNode(childRaw, maps))
	}
	return n
}

// migrateSourceReference resolves sourceNodeId via the Pass A id maps: the
// legacy value may itself already be a uuid, or a bare integer id — either
// way Pass A recorded both spellings against the same new uuid.
func migrateSourceReference(raw map[string]any, maps *idMaps) core.SourceReference {
	old := firstNonEmpty(getRawString(raw, "sourceNodeId"), getRawString(raw, "sourceNodeID"))
	resolved := maps.nodeIDs[old]
	return core.SourceReference{
		ID:            treeutil.NewNodeID(),
		SourceNodeID:  resolved,
		VariableName:  getString(raw, "", "variableName", "varName"),
		TextReference: getBool(raw, "textReference", "isTextRef"),
		CustomPath:    getString(raw, "", "customPath", "path"),
	}
}

func recordOldID(raw map[string]any, newID core.NodeID, maps *idMaps) {
	if uid := getRawString(raw, "id"); uid != "" {
		maps.nodeIDs[uid] = newID
	}
	if intID := firstNonEmpty(getRawString(raw, "legacyId"), getRawString(raw, "jsonId")); intID != "" {
		maps.nodeIDs[intID] = newID
	}
}

func migrateContext(raw map[string]any) core.MapperContext {
	ctx := core.MapperContext{
		PrologScript: getString(raw, "", "prologScript", "prolog"),
		EpilogScript: getString(raw, "", "epilogScript", "epilog"),
	}
	for _, gv := range getMapSlice(raw, "globalVariables", "globals") {
		ctx.GlobalVariables = append(ctx.GlobalVariables, core.GlobalVariable{
			Name:           getString(gv, "", "name"),
			Value:          getString(gv, "", "value"),
			PlainTextValue: getBool(gv, "plainTextValue", "isPlainText"),
			IsFinal:        getBool(gv, "isFinal", "final"),
		})
	}
	for _, lt := range getMapSlice(raw, "lookupTables", "tables") {
		table := core.LookupTable{Name: getString(lt, "", "name")}
		for _, e := range getMapSlice(lt, "entries", "rows") {
			table.Entries = append(table.Entries, core.LookupEntry{
				Key:            getString(e, "", "key"),
				Value:          getString(e, "", "value"),
				PlainTextValue: getBool(e, "plainTextValue", "isPlainText"),
			})
		}
		ctx.LookupTables = append(ctx.LookupTables, table)
	}
	for _, fn := range getMapSlice(raw, "functions", "userFunctions") {
		ctx.Functions = append(ctx.Functions, core.UserFunction{
			Name: getString(fn, "", "name"),
			Body: getString(fn, "", "body", "script"),
		})
	}
	return ctx
}

func migratePreferences(raw map[string]any) core.MapperPreferences {
	prefs := core.DefaultPreferences()
	if raw == nil {
		return prefs
	}
	prefs.DebugComment = getBool(raw, "debugComment", "showDebugComments")
	prefs.OverrideTargetValue = getBoolDefault(raw, true, "overrideTargetValue", "overwriteExisting")
	prefs.AutoMap = getBool(raw, "autoMap")
	prefs.AutoMapOneToMany = getBool(raw, "autoMapOneToMany")
	prefs.AutoMapIncludeSubNodes = getBool(raw, "autoMapIncludeSubNodes")
	return prefs
}

func migrateInputType(legacy string) core.InputType {
	switch legacy {
	case "JSON", "json":
		return core.InputJSON
	case "XML", "xml":
		return core.InputXML
	case "CSV", "csv":
		return core.InputCSV
	default:
		return core.InputUnknown
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// --- permissive field readers -----------------------------------------

func getMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if nested, ok := v.(map[string]any); ok {
				return nested
			}
		}
	}
	return nil
}

func getMapSlice(m map[string]any, keys ...string) []map[string]any {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		raw, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			if im, ok := item.(map[string]any); ok {
				out = append(out, im)
			}
		}
		return out
	}
	return nil
}

// getString tries each of keys in order against m and returns the first
// non-empty string value found, falling back to def.
func getString(m map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if s := getRawString(m, k); s != "" {
			return s
		}
	}
	return def
}

func getRawString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return trimFloatString(t)
	case int:
		return fmt.Sprintf("%d", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return ""
	}
}

func trimFloatString(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// getBool tries each of keys in order against m and returns the first
// boolean value found, defaulting to false.
func getBool(m map[string]any, keys ...string) bool {
	return getBoolDefault(m, false, keys...)
}

func getBoolDefault(m map[string]any, def bool, keys ...string) bool {
	if m == nil {
		return def
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if v, ok := m[k]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}
	return def
}
