package flow

import (
	"errors"
	"fmt"
)

// Flow is a graph of nodes a session traverses. Definitions are immutable
// after parsing and shared by every concurrent session.
type Flow struct {
	Name          string
	FlowVariables map[string]interface{}
	Nodes         []Node

	byID map[string]Node
}

// NewFlow builds a flow from parsed nodes and indexes them by ID.
func NewFlow(name string, flowVariables map[string]interface{}, nodes []Node) *Flow {
	f := &Flow{
		Name:          name,
		FlowVariables: flowVariables,
		Nodes:         nodes,
		byID:          make(map[string]Node, len(nodes)),
	}
	for _, n := range nodes {
		if _, ok := f.byID[n.GetID()]; !ok {
			f.byID[n.GetID()] = n
		}
	}
	return f
}

// GetNode returns the node with the given ID, or nil when unknown.
func (f *Flow) GetNode(id string) Node {
	return f.byID[id]
}

// Validate checks the whole graph: node validity, unique IDs, and that
// every transition target names a known node. An empty target is legal and
// means "end of flow".
func (f *Flow) Validate() error {
	if len(f.Nodes) == 0 {
		return errors.New("flow has no nodes")
	}

	seen := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		if seen[n.GetID()] {
			return fmt.Errorf("duplicate node ID: %s", n.GetID())
		}
		seen[n.GetID()] = true
	}

	for _, n := range f.Nodes {
		for _, target := range nodeTargets(n) {
			if target == "" {
				continue
			}
			if !seen[target] {
				return fmt.Errorf("node %q points at unknown node %q", n.GetID(), target)
			}
		}
	}

	return nil
}

// nodeTargets collects every transition target a node can produce.
func nodeTargets(n Node) []string {
	switch node := n.(type) {
	case *MessageNode:
		return []string{node.OConnection}
	case *SwitchNode:
		return caseTargets(node.Cases)
	case *InputNode:
		return caseTargets(node.Cases)
	case *HTTPRequestNode:
		return caseTargets(node.Cases)
	case *CheckTimeNode:
		return caseTargets(node.Cases)
	default:
		return nil
	}
}

func caseTargets(cases CaseTable) []string {
	targets := make([]string, 0, len(cases))
	for _, c := range cases {
		targets = append(targets, c.OConnection)
	}
	return targets
}
