package flow

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlFlow is the document structure before conversion to domain objects.
type yamlFlow struct {
	Name          string                 `yaml:"name"`
	FlowVariables map[string]interface{} `yaml:"flow_variables,omitempty"`
	Nodes         []yamlNode             `yaml:"nodes"`
}

// yamlNode carries the union of all type-specific fields.
type yamlNode struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`

	// message / input
	Text        string `yaml:"text,omitempty"`
	OConnection string `yaml:"o_connection,omitempty"`
	Variable    string `yaml:"variable,omitempty"`

	// switch / input
	Validation string `yaml:"validation,omitempty"`
	Condition  string `yaml:"condition,omitempty"`

	// http_request
	Method      string                 `yaml:"method,omitempty"`
	URL         string                 `yaml:"url,omitempty"`
	Middleware  string                 `yaml:"middleware,omitempty"`
	Variables   yaml.Node              `yaml:"variables,omitempty"`
	Cookies     yaml.Node              `yaml:"cookies,omitempty"`
	QueryParams map[string]interface{} `yaml:"query_params,omitempty"`
	Headers     map[string]interface{} `yaml:"headers,omitempty"`
	BasicAuth   *BasicAuth             `yaml:"basic_auth,omitempty"`
	Data        interface{}            `yaml:"data,omitempty"`

	// check_time
	TimeRanges  []string `yaml:"time_ranges,omitempty"`
	DaysOfWeek  []string `yaml:"days_of_week,omitempty"`
	DaysOfMonth []string `yaml:"days_of_month,omitempty"`
	Months      []string `yaml:"months,omitempty"`
	Timezone    string   `yaml:"timezone,omitempty"`

	Cases         []yamlCase             `yaml:"cases,omitempty"`
	FlowVariables map[string]interface{} `yaml:"flow_variables,omitempty"`
}

// yamlCase tolerates unquoted scalars: `id: 200` and `id: true` are both
// legal in flow files and normalize to their case-key string form.
type yamlCase struct {
	ID          interface{} `yaml:"id"`
	OConnection string      `yaml:"o_connection"`
}

// Parse parses a flow document from YAML bytes, validates it against the
// flow schema, and validates the resulting graph.
func Parse(data []byte) (*Flow, error) {
	if len(data) == 0 {
		return nil, errors.New("empty flow document")
	}

	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var yf yamlFlow
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if yf.Name == "" {
		return nil, errors.New("missing required field: name")
	}

	nodes := make([]Node, 0, len(yf.Nodes))
	for _, yn := range yf.Nodes {
		node, err := parseNode(yn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse node %q: %w", yn.ID, err)
		}
		nodes = append(nodes, node)
	}

	f := NewFlow(yf.Name, yf.FlowVariables, nodes)
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	return f, nil
}

// ParseFile parses a flow document from a YAML file.
func ParseFile(filePath string) (*Flow, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// parseNode converts a yamlNode into the appropriate concrete Node type.
func parseNode(yn yamlNode) (Node, error) {
	if yn.ID == "" {
		return nil, errors.New("node ID cannot be empty")
	}
	nodeType := NodeType(yn.Type)
	if !nodeType.Valid() {
		return nil, fmt.Errorf("unknown node type: %s", yn.Type)
	}

	cases, err := parseCases(yn.Cases)
	if err != nil {
		return nil, err
	}

	switch nodeType {
	case NodeTypeMessage:
		return &MessageNode{
			ID:            yn.ID,
			Text:          yn.Text,
			OConnection:   yn.OConnection,
			FlowVariables: yn.FlowVariables,
		}, nil

	case NodeTypeSwitch:
		return &SwitchNode{
			ID:            yn.ID,
			Validation:    yn.Validation,
			Condition:     yn.Condition,
			Cases:         cases,
			FlowVariables: yn.FlowVariables,
		}, nil

	case NodeTypeInput:
		return &InputNode{
			ID:            yn.ID,
			Text:          yn.Text,
			Variable:      yn.Variable,
			Validation:    yn.Validation,
			Cases:         cases,
			FlowVariables: yn.FlowVariables,
		}, nil

	case NodeTypeHTTPRequest:
		variables, err := parseVariableMappings(yn.Variables)
		if err != nil {
			return nil, err
		}
		cookies, err := parseCookieNames(yn.Cookies)
		if err != nil {
			return nil, err
		}
		return &HTTPRequestNode{
			ID:            yn.ID,
			Method:        yn.Method,
			URL:           yn.URL,
			Middleware:    yn.Middleware,
			Variables:     variables,
			Cookies:       cookies,
			QueryParams:   yn.QueryParams,
			Headers:       yn.Headers,
			BasicAuth:     yn.BasicAuth,
			Data:          yn.Data,
			Cases:         cases,
			FlowVariables: yn.FlowVariables,
		}, nil

	case NodeTypeCheckTime:
		return &CheckTimeNode{
			ID:            yn.ID,
			TimeRanges:    yn.TimeRanges,
			DaysOfWeek:    yn.DaysOfWeek,
			DaysOfMonth:   yn.DaysOfMonth,
			Months:        yn.Months,
			Timezone:      yn.Timezone,
			Cases:         cases,
			FlowVariables: yn.FlowVariables,
		}, nil
	}

	return nil, fmt.Errorf("unknown node type: %s", yn.Type)
}

// parseCases normalizes case IDs to their string form.
func parseCases(ycs []yamlCase) (CaseTable, error) {
	if len(ycs) == 0 {
		return nil, nil
	}
	cases := make(CaseTable, 0, len(ycs))
	for _, yc := range ycs {
		if yc.ID == nil {
			return nil, errors.New("case ID cannot be empty")
		}
		cases = append(cases, Case{ID: caseKey(yc.ID), OConnection: yc.OConnection})
	}
	return cases, nil
}

// caseKey converts a scalar case ID to its canonical string form: status
// codes in decimal, booleans as "True"/"False" to match check_time keys.
func caseKey(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// parseVariableMappings reads the `variables` mapping preserving document
// order. Order is significant: bare-string response bodies are assigned to
// the first mapping only.
func parseVariableMappings(node yaml.Node) ([]VariableMapping, error) {
	if node.IsZero() {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.New("variables must be a mapping of name to extraction key")
	}
	mappings := make([]VariableMapping, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name, key string
		if err := node.Content[i].Decode(&name); err != nil {
			return nil, fmt.Errorf("invalid variable name: %w", err)
		}
		if err := node.Content[i+1].Decode(&key); err != nil {
			return nil, fmt.Errorf("invalid extraction key for %q: %w", name, err)
		}
		mappings = append(mappings, VariableMapping{Name: name, Key: key})
	}
	return mappings, nil
}

// parseCookieNames accepts either a sequence of cookie names or a mapping
// whose keys are the names (values ignored, kept for compatibility).
func parseCookieNames(node yaml.Node) ([]string, error) {
	if node.IsZero() {
		return nil, nil
	}
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, fmt.Errorf("invalid cookies list: %w", err)
		}
		return names, nil
	case yaml.MappingNode:
		names := make([]string, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name string
			if err := node.Content[i].Decode(&name); err != nil {
				return nil, fmt.Errorf("invalid cookie name: %w", err)
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, errors.New("cookies must be a list or mapping of cookie names")
	}
}
