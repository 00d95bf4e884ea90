package flow

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// flowSchema is the JSON Schema every flow document must satisfy before
// node-level parsing runs. It pins the structural shape; semantic checks
// (case targets, axis contents, expression syntax) happen in Validate.
const flowSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "nodes"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "flow_variables": {"type": "object"},
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["message", "switch", "input", "http_request", "check_time"]},
          "cases": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id"],
              "properties": {
                "id": {"type": ["string", "integer", "boolean"]},
                "o_connection": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    }
  }
}`

// ValidateSchema checks a YAML flow document against the flow schema.
func ValidateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(flowSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("flow document does not match schema: %s", strings.Join(issues, "; "))
}
