package serialize

// currentSchema is the JSON Schema for the current (modelVersion: 1)
// persisted document shape, validated with xeipuuv/gojsonschema. It only
// constrains the top-level required keys of §6 — the tree shapes
// themselves are covered by core.MapperTreeNode's own (permissive) JSON
// tags, matching the spec's emphasis on a shape/version type guard rather
// than a fully exhaustive schema.
const currentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["modelVersion", "id", "localContext", "mapperPreferences", "sourceInputType", "targetInputType"],
  "properties": {
    "modelVersion": { "const": 1 },
    "id": { "type": "string" },
    "name": { "type": "string" },
    "sourceTreeNode": { "type": ["object", "null"] },
    "targetTreeNode": { "type": ["object", "null"] },
    "references": { "type": "array" },
    "localContext": { "type": "object" },
    "mapperPreferences": { "type": "object" },
    "sourceInputType": { "enum": ["JSON", "XML", "CSV", "UNKNOWN"] },
    "targetInputType": { "enum": ["JSON", "XML", "CSV", "UNKNOWN"] },
    "sourceOriginalContent": { "type": "string" }
  }
}`
