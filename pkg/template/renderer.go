// Package template renders node data against a session's variable context.
//
// Data may be a raw string or an arbitrary JSON-like tree; non-string data is
// serialized to JSON before substitution so that templated values inside
// nested structures render in place. Rendered output is parsed back into a
// structure when it forms valid JSON, and the string literals "True"/"true"
// and "False"/"false" are coerced to booleans throughout.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Renderer substitutes {{variable}} expressions in template data.
// It is stateless and safe for concurrent use from any number of sessions.
type Renderer struct{}

// NewRenderer creates a template renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render renders data against vars using the fallback chain:
//
//  1. String data is the template source; anything else is serialized to its
//     canonical JSON text first.
//  2. The source is rendered against vars. Every variable reference must
//     resolve; a missing variable aborts the render.
//  3. The rendered text is parsed as JSON and boolean-coerced recursively.
//  4. If the text is not valid JSON, the raw text itself is boolean-coerced
//     and returned as a scalar.
//  5. If rendering failed only because of an undefined variable, the render
//     is retried once with an empty context. This narrow fallback succeeds
//     only when the template has no (remaining) variable references.
//
// Any other failure returns an error; callers treat that as "no value" and
// must not crash the session.
func (r *Renderer) Render(data interface{}, vars map[string]interface{}) (interface{}, error) {
	source, err := templateSource(data)
	if err != nil {
		return nil, err
	}

	rendered, err := substitute(source, vars)
	if err == nil {
		return parseAndCoerce(rendered), nil
	}
	if !errors.Is(err, ErrUndefinedVariable) {
		return nil, err
	}

	// Undefined variable: retry once with an empty context. This only
	// succeeds if the template has no variable references at all.
	rendered, retryErr := substitute(source, map[string]interface{}{})
	if retryErr != nil {
		return nil, err
	}
	return parseAndCoerce(rendered), nil
}

// templateSource returns the template text for data: strings pass through,
// everything else is serialized to canonical JSON.
func templateSource(data interface{}) (string, error) {
	if s, ok := data.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: cannot serialize template data: %v", ErrInvalidTemplate, err)
	}
	return string(raw), nil
}

// parseAndCoerce parses rendered text as JSON when possible and applies
// boolean coercion either way.
func parseAndCoerce(rendered string) interface{} {
	var parsed interface{}
	if err := json.Unmarshal([]byte(rendered), &parsed); err != nil {
		// Not valid JSON (bare word, malformed): coerce the raw scalar.
		return CoerceBooleans(rendered)
	}
	return CoerceBooleans(parsed)
}

// substitute replaces every {{expression}} in template with the resolved
// value from vars. Expressions are variable paths with optional dot access
// into nested maps.
func substitute(template string, vars map[string]interface{}) (string, error) {
	var result strings.Builder
	i := 0
	n := len(template)

	for i < n {
		if i < n-1 && template[i] == '{' && template[i+1] == '{' {
			end := strings.Index(template[i+2:], "}}")
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed braces in template", ErrInvalidTemplate)
			}
			end += i + 2

			expr := strings.TrimSpace(template[i+2 : end])
			if expr == "" {
				return "", fmt.Errorf("%w: empty variable name", ErrInvalidTemplate)
			}

			value, err := resolveVariable(expr, vars)
			if err != nil {
				return "", err
			}
			result.WriteString(stringify(value))
			i = end + 2
			continue
		}

		result.WriteByte(template[i])
		i++
	}

	return result.String(), nil
}

// resolveVariable resolves a dotted variable path against the context.
func resolveVariable(path string, vars map[string]interface{}) (interface{}, error) {
	parts := strings.Split(path, ".")
	var current interface{} = vars

	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUndefinedVariable, path)
		}
		val, ok := m[part]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUndefinedVariable, path)
		}
		current = val
	}

	return current, nil
}

// stringify converts a resolved value for insertion into the rendered text.
// Maps and slices embed as JSON so substitutions inside JSON templates stay
// parseable.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	default:
		return fmt.Sprint(v)
	}
}

// CoerceBooleans walks a JSON-like value and converts the string literals
// "True"/"true" to true and "False"/"false" to false. Maps and slices are
// visited recursively; all other values pass through unchanged.
func CoerceBooleans(item interface{}) interface{} {
	switch v := item.(type) {
	case map[string]interface{}:
		for k, val := range v {
			v[k] = CoerceBooleans(val)
		}
		return v
	case []interface{}:
		for i, val := range v {
			v[i] = CoerceBooleans(val)
		}
		return v
	case string:
		switch v {
		case "True", "true":
			return true
		case "False", "false":
			return false
		}
		return v
	default:
		return item
	}
}

// MergeVariables overlays locals onto base without mutating either map.
// Local values win on key collision. Used to apply a node's flow variables
// over the session's ambient context before rendering.
func MergeVariables(base, locals map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(locals))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range locals {
		merged[k] = v
	}
	return merged
}
