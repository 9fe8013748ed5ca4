// Package serialize implements §4.9's load path: a type guard for the
// current persisted document shape, a permissive guard for the prior
// integer-id shape, and a hard failure (carrying its cause) when neither
// matches.
package serialize

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/oxhq/mapperengine/internal/core"
	"github.com/oxhq/mapperengine/internal/migrator"
)

// legacyVersionMax is the highest modelVersion the prior integer-id
// serialisation ever shipped with; anything at or below it (or an absent
// version) is a legacy-shape candidate.
const legacyVersionMax = 0

// Deserialize parses raw JSON into a current core.MapperState, migrating it
// first if it is recognized as the prior integer-id shape. Returns a
// core.CLIError (via core.Wrap) carrying the original cause on any failure.
func Deserialize(raw []byte) (*core.MapperState, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, core.Wrap(core.ErrMalformedJSON, "document is not valid JSON", err)
	}

	var schemaErr error
	if isCurrentShape(doc) {
		if err := validateCurrentSchema(raw); err != nil {
			// A schema failure is treated the same as a required-key
			// failure: it falls through to the legacy guard rather than
			// failing outright, and only surfaces if that guard also
			// rejects the document.
			schemaErr = err
		} else {
			var state core.MapperState
			if err := json.Unmarshal(raw, &state); err != nil {
				return nil, core.Wrap(core.ErrMalformedJSON, "document did not decode into the current model shape", err)
			}
			return &state, nil
		}
	}

	if isLegacyShape(doc) {
		state, err := migrator.Migrate(doc)
		if err != nil {
			return nil, core.Wrap(core.ErrUnknownShape, "legacy document failed to migrate", err)
		}
		return state, nil
	}

	if schemaErr != nil {
		return nil, core.Wrap(core.ErrSchemaMismatch, "document failed schema validation", schemaErr)
	}
	return nil, core.Wrap(core.ErrUnknownShape, "document matches neither the current nor the legacy shape", nil)
}

// isCurrentShape is the type guard: modelVersion === 1 plus presence of the
// required top-level keys listed in §6.
func isCurrentShape(doc map[string]any) bool {
	v, ok := doc["modelVersion"]
	if !ok {
		return false
	}
	f, ok := v.(float64)
	if !ok || int(f) != core.CurrentModelVersion {
		return false
	}
	for _, key := range []string{"id", "localContext", "mapperPreferences", "sourceInputType", "targetInputType"} {
		if _, ok := doc[key]; !ok {
			return false
		}
	}
	return true
}

// isLegacyShape succeeds when the version is absent, within the prior
// integer range, or the source tree contains a field diagnostic of the
// legacy shape (a node carrying a bare integer "id", the historical
// cross-reference key the current uuid-keyed format never produces).
func isLegacyShape(doc map[string]any) bool {
	if v, ok := doc["modelVersion"]; ok {
		if f, ok := v.(float64); ok && int(f) <= legacyVersionMax {
			return true
		}
	} else {
		return true
	}
	if sourceTreeHasIntegerID(doc["sourceTreeNode"]) || sourceTreeHasIntegerID(doc["sourceTree"]) {
		return true
	}
	return false
}

func sourceTreeHasIntegerID(v any) bool {
	node, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if _, isFloat := node["id"].(float64); isFloat {
		return true
	}
	for _, c := range childrenOf(node) {
		if sourceTreeHasIntegerID(c) {
			return true
		}
	}
	return false
}

func childrenOf(node map[string]any) []any {
	if c, ok := node["children"].([]any); ok {
		return c
	}
	return nil
}

func validateCurrentSchema(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(currentSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%v", msgs)
	}
	return nil
}

// Serialize renders the current model to its persisted JSON form.
func Serialize(state *core.MapperState) ([]byte, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return nil, core.Wrap(core.ErrMalformedJSON, "failed to encode model", err)
	}
	return b, nil
}
