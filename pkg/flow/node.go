package flow

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
)

// NodeType identifies a node kind. The set is closed: a flow document may
// only use these five values.
type NodeType string

// The five node kinds.
const (
	NodeTypeMessage     NodeType = "message"
	NodeTypeSwitch      NodeType = "switch"
	NodeTypeInput       NodeType = "input"
	NodeTypeHTTPRequest NodeType = "http_request"
	NodeTypeCheckTime   NodeType = "check_time"
)

// Valid reports whether t is one of the enumerated node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeMessage, NodeTypeSwitch, NodeTypeInput, NodeTypeHTTPRequest, NodeTypeCheckTime:
		return true
	}
	return false
}

// Node is the interface all node kinds implement. Node definitions are
// immutable once parsed and are shared by every session that reaches them;
// no session state may live on a node.
type Node interface {
	GetID() string
	Type() NodeType
	Validate() error
	// LocalVariables returns the node's flow-variable overrides, applied on
	// top of the session context whenever this node renders data.
	LocalVariables() map[string]interface{}
}

// BasicAuth holds outbound basic-auth credentials. Login and Password are
// template strings. CredentialRef names a secret in the credential store;
// when set, it supplies the password instead of the inline field.
type BasicAuth struct {
	Login         string `yaml:"login" json:"login"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	CredentialRef string `yaml:"credential_ref,omitempty" json:"credential_ref,omitempty"`
}

// VariableMapping binds an output variable name to an extraction key looked
// up at the top level of an HTTP response body. Order matters: when a
// response body is a bare string, only the first mapping receives it.
type VariableMapping struct {
	Name string
	Key  string
}

// MessageNode renders a text template and delivers it to the session's
// room, then advances unconditionally.
type MessageNode struct {
	ID            string
	Text          string
	OConnection   string
	FlowVariables map[string]interface{}
}

// GetID returns the node ID.
func (n *MessageNode) GetID() string { return n.ID }

// Type returns the node type.
func (n *MessageNode) Type() NodeType { return NodeTypeMessage }

// LocalVariables returns the node's flow-variable overrides.
func (n *MessageNode) LocalVariables() map[string]interface{} { return n.FlowVariables }

// Validate checks the message node definition.
func (n *MessageNode) Validate() error {
	if n.ID == "" {
		return errors.New("message node: empty node ID")
	}
	if n.Text == "" {
		return fmt.Errorf("message node %q: text is required", n.ID)
	}
	return nil
}

// SwitchNode dispatches on either a rendered validation template (the
// rendered string is the case key) or an expression evaluated to a boolean
// (dispatching to the "True"/"False" cases). Exactly one mode must be set.
type SwitchNode struct {
	ID            string
	Validation    string
	Condition     string
	Cases         CaseTable
	FlowVariables map[string]interface{}
}

// GetID returns the node ID.
func (n *SwitchNode) GetID() string { return n.ID }

// Type returns the node type.
func (n *SwitchNode) Type() NodeType { return NodeTypeSwitch }

// LocalVariables returns the node's flow-variable overrides.
func (n *SwitchNode) LocalVariables() map[string]interface{} { return n.FlowVariables }

// Validate checks the switch node definition, including a compile check of
// the condition expression when that mode is used.
func (n *SwitchNode) Validate() error {
	if n.ID == "" {
		return errors.New("switch node: empty node ID")
	}
	if n.Validation == "" && n.Condition == "" {
		return fmt.Errorf("switch node %q: one of validation or condition is required", n.ID)
	}
	if n.Validation != "" && n.Condition != "" {
		return fmt.Errorf("switch node %q: validation and condition are mutually exclusive", n.ID)
	}
	if len(n.Cases) == 0 {
		return fmt.Errorf("switch node %q: at least one case is required", n.ID)
	}
	if n.Condition != "" {
		if _, err := expr.Compile(n.Condition); err != nil {
			return fmt.Errorf("switch node %q: invalid condition: %w", n.ID, err)
		}
	}
	return nil
}

// InputNode prompts the room with a rendered text template and parks the
// session. On re-entry with the user's reply, the reply is stored under
// Variable, the validation template is rendered, and its result dispatches
// through the case table.
type InputNode struct {
	ID            string
	Text          string
	Variable      string
	Validation    string
	Cases         CaseTable
	FlowVariables map[string]interface{}
}

// GetID returns the node ID.
func (n *InputNode) GetID() string { return n.ID }

// Type returns the node type.
func (n *InputNode) Type() NodeType { return NodeTypeInput }

// LocalVariables returns the node's flow-variable overrides.
func (n *InputNode) LocalVariables() map[string]interface{} { return n.FlowVariables }

// Validate checks the input node definition.
func (n *InputNode) Validate() error {
	if n.ID == "" {
		return errors.New("input node: empty node ID")
	}
	if n.Text == "" {
		return fmt.Errorf("input node %q: text is required", n.ID)
	}
	if n.Variable == "" {
		return fmt.Errorf("input node %q: variable is required", n.ID)
	}
	return nil
}

// HTTPRequestNode issues an outbound HTTP request built from rendered
// templates, interprets the response, extracts variables, and dispatches on
// the stringified status code.
type HTTPRequestNode struct {
	ID            string
	Method        string
	URL           string
	Middleware    string
	Variables     []VariableMapping
	Cookies       []string
	QueryParams   map[string]interface{}
	Headers       map[string]interface{}
	BasicAuth     *BasicAuth
	Data          interface{}
	Cases         CaseTable
	FlowVariables map[string]interface{}
}

// GetID returns the node ID.
func (n *HTTPRequestNode) GetID() string { return n.ID }

// Type returns the node type.
func (n *HTTPRequestNode) Type() NodeType { return NodeTypeHTTPRequest }

// LocalVariables returns the node's flow-variable overrides.
func (n *HTTPRequestNode) LocalVariables() map[string]interface{} { return n.FlowVariables }

// Validate checks the http_request node definition.
func (n *HTTPRequestNode) Validate() error {
	if n.ID == "" {
		return errors.New("http_request node: empty node ID")
	}
	if n.Method == "" {
		return fmt.Errorf("http_request node %q: method is required", n.ID)
	}
	if n.URL == "" {
		return fmt.Errorf("http_request node %q: url is required", n.ID)
	}
	if n.BasicAuth != nil && n.BasicAuth.Login == "" {
		return fmt.Errorf("http_request node %q: basic_auth requires a login", n.ID)
	}
	return nil
}

// CheckTimeNode evaluates a calendar window and dispatches through its
// "True"/"False" cases.
type CheckTimeNode struct {
	ID            string
	TimeRanges    []string
	DaysOfWeek    []string
	DaysOfMonth   []string
	Months        []string
	Timezone      string
	Cases         CaseTable
	FlowVariables map[string]interface{}
}

// GetID returns the node ID.
func (n *CheckTimeNode) GetID() string { return n.ID }

// Type returns the node type.
func (n *CheckTimeNode) Type() NodeType { return NodeTypeCheckTime }

// LocalVariables returns the node's flow-variable overrides.
func (n *CheckTimeNode) LocalVariables() map[string]interface{} { return n.FlowVariables }

// Validate checks the check_time node definition.
func (n *CheckTimeNode) Validate() error {
	if n.ID == "" {
		return errors.New("check_time node: empty node ID")
	}
	if n.Timezone == "" {
		return fmt.Errorf("check_time node %q: timezone is required", n.ID)
	}
	for name, axis := range map[string][]string{
		"time_ranges":   n.TimeRanges,
		"days_of_week":  n.DaysOfWeek,
		"days_of_month": n.DaysOfMonth,
		"months":        n.Months,
	} {
		if len(axis) == 0 {
			return fmt.Errorf("check_time node %q: %s must have at least one entry", n.ID, name)
		}
	}
	if len(n.Cases) != 2 {
		return fmt.Errorf("check_time node %q: exactly two cases (True/False) are required", n.ID)
	}
	for _, c := range n.Cases {
		if c.ID != "True" && c.ID != "False" {
			return fmt.Errorf("check_time node %q: case %q must be True or False", n.ID, c.ID)
		}
	}
	return nil
}
