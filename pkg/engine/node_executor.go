package engine

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/convoflow/convoflow/pkg/flow"
	"github.com/convoflow/convoflow/pkg/storage"
	"github.com/convoflow/convoflow/pkg/timewindow"
)

// stepAction says what the session cursor does after a node executes.
type stepAction int

const (
	// actionAdvance moves the cursor to step.next.
	actionAdvance stepAction = iota
	// actionEnd marks the session completed.
	actionEnd
	// actionPark suspends the session awaiting user input.
	actionPark
	// actionStay leaves the cursor where it is.
	actionStay
)

type step struct {
	action stepAction
	next   string
}

// executeNode dispatches on the node's type tag. The set of types is
// closed; an unknown type can only mean a parser bug.
func (e *Engine) executeNode(ctx context.Context, f *flow.Flow, s *storage.Session, node flow.Node) (step, error) {
	switch n := node.(type) {
	case *flow.MessageNode:
		return e.executeMessageNode(ctx, f, s, n)
	case *flow.SwitchNode:
		return e.executeSwitchNode(f, s, n), nil
	case *flow.InputNode:
		return e.executeInputNode(ctx, f, s, n)
	case *flow.HTTPRequestNode:
		return e.executeHTTPRequestNode(ctx, f, s, n), nil
	case *flow.CheckTimeNode:
		return e.executeCheckTimeNode(f, s, n), nil
	default:
		return step{action: actionStay}, fmt.Errorf("unknown node type: %s", node.Type())
	}
}

// executeMessageNode renders the text and delivers it, then advances
// unconditionally. A render failure sends nothing but still advances;
// conversational flows never crash on bad data.
func (e *Engine) executeMessageNode(ctx context.Context, f *flow.Flow, s *storage.Session, n *flow.MessageNode) (step, error) {
	vars := e.renderContext(f, s, n)

	rendered, err := e.renderer.Render(n.Text, vars)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("flow", f.Name).
			Str("node_id", n.ID).
			Msg("message text failed to render")
	} else if text := renderedText(rendered); text != "" {
		if err := e.transport.SendMessage(ctx, s.UserID, text); err != nil {
			return step{}, fmt.Errorf("failed to send message: %w", err)
		}
	}

	if n.OConnection == "" {
		return step{action: actionEnd}, nil
	}
	return step{action: actionAdvance, next: n.OConnection}, nil
}

// executeSwitchNode dispatches on a rendered validation template or an
// evaluated boolean condition. Render and evaluation failures degrade to
// the empty case key, which resolves to "default" when one exists.
func (e *Engine) executeSwitchNode(f *flow.Flow, s *storage.Session, n *flow.SwitchNode) step {
	vars := e.renderContext(f, s, n)

	var caseID string
	if n.Condition != "" {
		result, err := e.evalCondition(n.Condition, vars)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("flow", f.Name).
				Str("node_id", n.ID).
				Msg("switch condition failed to evaluate")
		} else if result {
			caseID = "True"
		} else {
			caseID = "False"
		}
	} else {
		rendered, err := e.renderer.Render(n.Validation, vars)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("flow", f.Name).
				Str("node_id", n.ID).
				Msg("switch validation failed to render")
		} else {
			caseID = caseKeyFor(rendered)
		}
	}

	return dispatch(n.Cases, caseID)
}

// evalCondition compiles and runs a boolean expression against the
// variable context. Any non-nil, non-false result counts as true.
func (e *Engine) evalCondition(condition string, vars map[string]interface{}) (bool, error) {
	program, err := expr.Compile(condition, expr.Env(vars), expr.AllowUndefinedVariables())
	if err != nil {
		return false, fmt.Errorf("failed to compile condition: %w", err)
	}
	out, err := expr.Run(program, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition: %w", err)
	}
	switch v := out.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return true, nil
	}
}

// executeInputNode renders the prompt, sends it, and parks the session.
// The reply is handled by resumeInputNode on the next event.
func (e *Engine) executeInputNode(ctx context.Context, f *flow.Flow, s *storage.Session, n *flow.InputNode) (step, error) {
	vars := e.renderContext(f, s, n)

	rendered, err := e.renderer.Render(n.Text, vars)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("flow", f.Name).
			Str("node_id", n.ID).
			Msg("input prompt failed to render")
	} else if text := renderedText(rendered); text != "" {
		if err := e.transport.SendMessage(ctx, s.UserID, text); err != nil {
			return step{}, fmt.Errorf("failed to send input prompt: %w", err)
		}
	}

	return step{action: actionPark}, nil
}

// resumeInputNode stores the user's reply under the configured variable,
// then dispatches: through the rendered validation template when one is
// configured, otherwise on the reply itself.
func (e *Engine) resumeInputNode(f *flow.Flow, s *storage.Session, n *flow.InputNode, reply string) step {
	s.SetVariable(n.Variable, reply)

	caseID := reply
	if n.Validation != "" {
		vars := e.renderContext(f, s, n)
		rendered, err := e.renderer.Render(n.Validation, vars)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("flow", f.Name).
				Str("node_id", n.ID).
				Msg("input validation failed to render")
			caseID = ""
		} else {
			caseID = caseKeyFor(rendered)
		}
	}

	return dispatch(n.Cases, caseID)
}

// executeCheckTimeNode evaluates the node's calendar window against the
// engine clock and dispatches to the True or False case. An evaluation
// error (bad timezone, empty axis) leaves the cursor in place.
func (e *Engine) executeCheckTimeNode(f *flow.Flow, s *storage.Session, n *flow.CheckTimeNode) step {
	matched, err := timewindow.Evaluate(e.now(), timewindow.Window{
		TimeRanges:  n.TimeRanges,
		DaysOfWeek:  n.DaysOfWeek,
		DaysOfMonth: n.DaysOfMonth,
		Months:      n.Months,
		Timezone:    n.Timezone,
	})
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("flow", f.Name).
			Str("node_id", n.ID).
			Msg("time window failed to evaluate")
		return step{action: actionStay}
	}

	if matched {
		return dispatch(n.Cases, "True")
	}
	return dispatch(n.Cases, "False")
}
