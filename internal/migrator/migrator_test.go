package migrator

import (
	"encoding/json"
	"testing"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/treeutil"
)

// legacyDoc mirrors the prior integer-id serialisation: source nodes keyed
// by a bare integer id, a target array node carrying a legacy integer loop
// id, and a descendant source reference retargeting that loop via
// loopOverRef.
const legacyDoc = `{
  "id": "old-doc-1",
  "sourceTreeNode": {
    "id": "src-root",
    "name": "root",
    "type": "obj",
    "children": [
      {
        "id": 101,
        "name": "items",
        "type": "list",
        "children": [
          {
            "id": 102,
            "name": "item",
            "type": "listItem",
            "children": [
              { "id": 103, "name": "price", "type": "field" }
            ]
          }
        ]
      }
    ]
  },
  "targetTreeNode": {
    "id": "tgt-root",
    "name": "root",
    "type": "obj",
    "children": [
      {
        "id": "tgt-arr",
        "name": "lines",
        "type": "list",
        "legacyLoopId": "77",
        "loopReference": { "sourceNodeId": 101, "variableName": "line" },
        "children": [
          {
            "id": "tgt-item",
            "name": "lineItem",
            "type": "listItem",
            "children": [
              {
                "id": "tgt-price",
                "name": "price",
                "type": "field",
                "value": "line.price",
                "sourceReferences": [
                  { "sourceNodeId": 103, "variableName": "line", "loopOverRef": "77" }
                ]
              }
            ]
          }
        ]
      }
    ]
  },
  "mapperPreferences": { "overrideTargetValue": false }
}`

func mustDecode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return m
}

func TestMigrateRetargetsLoopReferenceViaIntegerID(t *testing.T) {
	legacy := mustDecode(t, legacyDoc)
	state, err := Migrate(legacy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.ModelVersion != core.CurrentModelVersion {
		t.Fatalf("expected model version %d, got %d", core.CurrentModelVersion, state.ModelVersion)
	}

	srcIndex := treeutil.BuildIndex(state.SourceTreeNode)
	var itemsNode *core.MapperTreeNode
	for _, n := range srcIndex {
		if n.Name == "items" {
			itemsNode = n
		}
	}
	if itemsNode == nil {
		t.Fatalf("expected a migrated source node named items")
	}

	tgtIndex := treeutil.BuildIndex(state.TargetTreeNode)
	var linesNode, priceNode *core.MapperTreeNode
	for _, n := range tgtIndex {
		switch n.Name {
		case "lines":
			linesNode = n
		case "price":
			priceNode = n
		}
	}
	if linesNode == nil || priceNode == nil {
		t.Fatalf("expected migrated target nodes lines and price")
	}

	if linesNode.LoopReference == nil {
		t.Fatalf("expected lines node to carry a loop reference")
	}
	if linesNode.LoopReference.SourceNodeID != itemsNode.ID {
		t.Fatalf("loop reference not resolved to migrated items node: got %v want %v",
			linesNode.LoopReference.SourceNodeID, itemsNode.ID)
	}

	if len(priceNode.SourceReferences) != 1 {
		t.Fatalf("expected exactly one source reference on price, got %d", len(priceNode.SourceReferences))
	}
	ref := priceNode.SourceReferences[0]
	if ref.LoopOverID != linesNode.LoopReference.ID {
		t.Fatalf("loopOverRef not retargeted to migrated loop reference id: got %v want %v", ref.LoopOverID, linesNode.LoopReference.ID)
	}

	if state.MapperPreferences.OverrideTargetValue {
		t.Fatalf("expected overrideTargetValue false to survive migration")
	}

	if len(state.References) != 2 {
		t.Fatalf("expected 2 rebuilt flat references (loop + field), got %d: %+v", len(state.References), state.References)
	}
}

// TestMigrateResolvesLoopRefViaJsonIdAlias mirrors the spec's literal
// scenario 6 field naming directly: loopReference.jsonId and a descendant
// reference keyed by the matching loopOverRef both resolve to one fresh id.
func TestMigrateResolvesLoopRefViaJsonIdAlias(t *testing.T) {
	legacy := mustDecode(t, `{
	  "targetTreeNode": {
	    "id": "tgt-root",
	    "name": "root",
	    "type": "obj",
	    "children": [
	      {
	        "id": "tgt-arr",
	        "name": "lines",
	        "type": "list",
	        "loopReference": { "jsonId": 7, "sourceNodeId": "s1", "variableName": "line" },
	        "children": [
	          {
	            "id": "tgt-price",
	            "name": "price",
	            "type": "field",
	            "sourceReferences": [
	              { "jsonId": 9, "sourceNodeId": "s1", "loopOverRef": "7" }
	            ]
	          }
	        ]
	      }
	    ]
	  }
	}`)
	state, err := Migrate(legacy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tgtIndex := treeutil.BuildIndex(state.TargetTreeNode)
	var linesNode, priceNode *core.MapperTreeNode
	for _, n := range tgtIndex {
		switch n.Name {
		case "lines":
			linesNode = n
		case "price":
			priceNode = n
		}
	}
	if linesNode == nil || priceNode == nil {
		t.Fatalf("expected migrated target nodes lines and price")
	}
	if len(priceNode.SourceReferences) != 1 {
		t.Fatalf("expected exactly one source reference on price, got %d", len(priceNode.SourceReferences))
	}
	if priceNode.SourceReferences[0].LoopOverID != linesNode.LoopReference.ID {
		t.Fatalf("loopOverRef (via jsonId alias) not retargeted to migrated loop reference id: got %v want %v",
			priceNode.SourceReferences[0].LoopOverID, linesNode.LoopReference.ID)
	}
}

func TestNormalizeNodeTypeFallsBackToElement(t *testing.T) {
	if got := normalizeNodeType("something-unknown"); got != core.NodeElement {
		t.Fatalf("expected unknown legacy type to fall back to element, got %v", got)
	}
	if got := normalizeNodeType("list"); got != core.NodeArray {
		t.Fatalf("expected 'list' to map to array, got %v", got)
	}
}

func TestMigratePreservesInputTypes(t *testing.T) {
	legacy := mustDecode(t, `{"sourceInputType": "xml", "targetInputType": "json"}`)
	state, err := Migrate(legacy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.SourceInputType != core.InputXML {
		t.Fatalf("expected source input type XML, got %v", state.SourceInputType)
	}
	if state.TargetInputType != core.InputJSON {
		t.Fatalf("expected target input type JSON, got %v", state.TargetInputType)
	}
}
