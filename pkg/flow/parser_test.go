package flow

import (
	"testing"
)

func TestParse_SimpleFlow(t *testing.T) {
	doc := `name: "support"
flow_variables:
  greeting: "hi"
nodes:
  - id: "m1"
    type: "message"
    text: "{{greeting}} there"
    o_connection: "s1"
  - id: "s1"
    type: "switch"
    validation: "{{route}}"
    cases:
      - id: "sales"
        o_connection: "m1"
      - id: "default"
        o_connection: ""
`
	f, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if f.Name != "support" {
		t.Errorf("Expected name 'support', got '%s'", f.Name)
	}
	if len(f.Nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(f.Nodes))
	}
	if f.FlowVariables["greeting"] != "hi" {
		t.Errorf("Expected flow variable greeting=hi, got %v", f.FlowVariables["greeting"])
	}
	if f.GetNode("m1") == nil || f.GetNode("s1") == nil {
		t.Error("Expected nodes indexed by ID")
	}
	if f.GetNode("missing") != nil {
		t.Error("Expected nil for unknown node ID")
	}
}

func TestParse_AllNodeTypes(t *testing.T) {
	doc := `name: "everything"
nodes:
  - id: "m1"
    type: "message"
    text: "hello"
  - id: "i1"
    type: "input"
    text: "your name?"
    variable: "name"
    validation: "{{name}}"
    cases:
      - id: "default"
        o_connection: "m1"
  - id: "s1"
    type: "switch"
    condition: "attempts > 3"
    cases:
      - id: "True"
        o_connection: "m1"
      - id: "False"
        o_connection: "i1"
  - id: "r1"
    type: "http_request"
    method: "GET"
    url: "https://api.example.test/news?category={{category}}"
    variables:
      news: "data"
      source: "origin"
    cases:
      - id: 200
        o_connection: "m1"
      - id: "default"
        o_connection: "i1"
  - id: "t1"
    type: "check_time"
    timezone: "America/Bogota"
    time_ranges: ["08:00-12:00"]
    days_of_week: ["mon-fri"]
    days_of_month: ["*"]
    months: ["*"]
    cases:
      - id: "True"
        o_connection: "m1"
      - id: "False"
        o_connection: "i1"
`
	f, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Nodes) != 5 {
		t.Fatalf("Expected 5 nodes, got %d", len(f.Nodes))
	}

	types := map[string]NodeType{
		"m1": NodeTypeMessage,
		"i1": NodeTypeInput,
		"s1": NodeTypeSwitch,
		"r1": NodeTypeHTTPRequest,
		"t1": NodeTypeCheckTime,
	}
	for id, want := range types {
		node := f.GetNode(id)
		if node == nil {
			t.Fatalf("node %q missing", id)
		}
		if node.Type() != want {
			t.Errorf("node %q: expected type %s, got %s", id, want, node.Type())
		}
	}
}

func TestParse_CaseKeyNormalization(t *testing.T) {
	doc := `name: "keys"
nodes:
  - id: "r1"
    type: "http_request"
    method: "GET"
    url: "https://example.test"
    cases:
      - id: 200
        o_connection: "r1"
      - id: true
        o_connection: "r1"
      - id: "404"
        o_connection: "r1"
`
	f, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	node := f.GetNode("r1").(*HTTPRequestNode)
	if !node.Cases.Has("200") {
		t.Error("integer case ID should normalize to decimal string")
	}
	if !node.Cases.Has("True") {
		t.Error("boolean case ID should normalize to True/False")
	}
	if !node.Cases.Has("404") {
		t.Error("string case ID should pass through")
	}
}

func TestParse_VariableOrderPreserved(t *testing.T) {
	doc := `name: "order"
nodes:
  - id: "r1"
    type: "http_request"
    method: "GET"
    url: "https://example.test"
    variables:
      zebra: "z"
      alpha: "a"
      mango: "m"
`
	f, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	node := f.GetNode("r1").(*HTTPRequestNode)
	want := []string{"zebra", "alpha", "mango"}
	if len(node.Variables) != len(want) {
		t.Fatalf("Expected %d variables, got %d", len(want), len(node.Variables))
	}
	for i, name := range want {
		if node.Variables[i].Name != name {
			t.Errorf("variable %d: expected %q, got %q", i, name, node.Variables[i].Name)
		}
	}
}

func TestParse_CookieForms(t *testing.T) {
	listDoc := `name: "cookies"
nodes:
  - id: "r1"
    type: "http_request"
    method: "GET"
    url: "https://example.test"
    cookies: ["session_id", "csrf"]
`
	f, err := Parse([]byte(listDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	node := f.GetNode("r1").(*HTTPRequestNode)
	if len(node.Cookies) != 2 || node.Cookies[0] != "session_id" {
		t.Errorf("unexpected cookies: %v", node.Cookies)
	}

	mapDoc := `name: "cookies"
nodes:
  - id: "r1"
    type: "http_request"
    method: "GET"
    url: "https://example.test"
    cookies:
      session_id: capture
`
	f, err = Parse([]byte(mapDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	node = f.GetNode("r1").(*HTTPRequestNode)
	if len(node.Cookies) != 1 || node.Cookies[0] != "session_id" {
		t.Errorf("unexpected cookies: %v", node.Cookies)
	}
}

func TestParse_DuplicateNodeIDs(t *testing.T) {
	doc := `name: "dup"
nodes:
  - id: "m1"
    type: "message"
    text: "a"
  - id: "m1"
    type: "message"
    text: "b"
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected duplicate node ID error")
	}
}

func TestParse_UnknownTransitionTarget(t *testing.T) {
	doc := `name: "dangling"
nodes:
  - id: "m1"
    type: "message"
    text: "a"
    o_connection: "nope"
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected unknown target error")
	}
}

func TestParse_SchemaRejectsUnknownType(t *testing.T) {
	doc := `name: "bad"
nodes:
  - id: "x1"
    type: "teleport"
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected schema validation error for unknown node type")
	}
}

func TestParse_SwitchConditionCompileCheck(t *testing.T) {
	doc := `name: "badexpr"
nodes:
  - id: "s1"
    type: "switch"
    condition: "attempts >"
    cases:
      - id: "True"
        o_connection: ""
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Error("expected condition compile error")
	}
}
