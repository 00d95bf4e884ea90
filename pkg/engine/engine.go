package engine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/convoflow/convoflow/pkg/config"
	"github.com/convoflow/convoflow/pkg/errors"
	"github.com/convoflow/convoflow/pkg/flow"
	"github.com/convoflow/convoflow/pkg/storage"
	"github.com/convoflow/convoflow/pkg/template"
)

// maxStepsPerEvent bounds how many nodes a single incoming event may
// traverse, so a cyclic flow cannot spin a session forever.
const maxStepsPerEvent = 64

// Engine walks sessions through flow graphs one node at a time. Node
// definitions are immutable and shared; all mutable state lives in the
// session store, read at the start of an event and written at the end.
type Engine struct {
	cfg         *config.Config
	flows       FlowRepository
	sessions    storage.SessionStore
	credentials storage.CredentialStore
	transport   Transport
	middlewares map[string]Middleware
	client      *http.Client
	renderer    *template.Renderer
	inactivity  *InactivityRegistry
	idleTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// Options collects the engine's collaborators. Config, Flows, Sessions,
// and Transport are required.
type Options struct {
	Config      *config.Config
	Flows       FlowRepository
	Sessions    storage.SessionStore
	Credentials storage.CredentialStore
	Transport   Transport
	Middlewares map[string]Middleware
	HTTPClient  *http.Client
	Logger      zerolog.Logger
	// IdleTimeout ends sessions parked on an input node for too long.
	// Zero disables idle tracking.
	IdleTimeout time.Duration
	// Clock supplies the current time for check_time evaluation. Nil
	// means time.Now.
	Clock func() time.Time
}

// New creates an engine from its collaborators.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("engine requires a config")
	}
	if opts.Flows == nil {
		return nil, fmt.Errorf("engine requires a flow repository")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("engine requires a session store")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("engine requires a transport")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Config.HTTP.Timeout()}
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &Engine{
		cfg:         opts.Config,
		flows:       opts.Flows,
		sessions:    opts.Sessions,
		credentials: opts.Credentials,
		transport:   opts.Transport,
		middlewares: opts.Middlewares,
		client:      client,
		renderer:    template.NewRenderer(),
		inactivity:  NewInactivityRegistry(),
		idleTimeout: opts.IdleTimeout,
		now:         now,
		log:         opts.Logger,
	}, nil
}

// Inactivity exposes the idle-timer registry to the surrounding program.
func (e *Engine) Inactivity() *InactivityRegistry {
	return e.inactivity
}

// Close stops background timers.
func (e *Engine) Close() {
	e.inactivity.CancelAll()
}

// HandleEvent processes one incoming user event: a message from userID
// addressed to the named flow. It loads or creates the session, resumes a
// parked input node when one is waiting, and otherwise walks the flow
// from the session's cursor. Node failures never propagate; they degrade
// to "stay put" and are logged.
func (e *Engine) HandleEvent(ctx context.Context, userID, flowName, text string) error {
	if e.cfg.IgnoreUser(userID) {
		e.log.Debug().Str("user_id", userID).Msg("ignoring event from filtered user")
		return nil
	}

	f, err := e.flows.Get(flowName)
	if err != nil {
		return fmt.Errorf("failed to resolve flow %q: %w", flowName, err)
	}

	s, err := e.sessions.GetByUser(ctx, userID, flowName)
	switch {
	case err == nil && s.State == storage.StateCompleted:
		// A finished session restarts from the top on the next event.
		if err := e.sessions.Delete(ctx, s.ID); err != nil {
			return fmt.Errorf("failed to reset completed session: %w", err)
		}
		s = storage.NewSession(userID, flowName)
	case err != nil && !isNotFound(err):
		return fmt.Errorf("failed to load session: %w", err)
	case err != nil:
		s = storage.NewSession(userID, flowName)
	}

	// Any observed activity disarms the session's idle timer.
	e.inactivity.Cancel(s.ID)

	if s.State == storage.StateAwaitingInput {
		return e.resumeInput(ctx, f, s, text)
	}
	return e.runSession(ctx, f, s)
}

func isNotFound(err error) bool {
	return stderrors.Is(err, storage.ErrSessionNotFound)
}

// runSession walks nodes from the session cursor until the flow ends, an
// input node parks the session, or a node declines to transition.
func (e *Engine) runSession(ctx context.Context, f *flow.Flow, s *storage.Session) error {
	for i := 0; i < maxStepsPerEvent; i++ {
		node := e.currentNode(f, s)
		if node == nil {
			e.log.Warn().
				Str("flow", f.Name).
				Str("session_id", s.ID).
				Str("node_id", s.NodeID).
				Msg("session cursor points at unknown node")
			return e.persist(ctx, s)
		}

		st, err := e.executeNode(ctx, f, s, node)
		if err != nil {
			e.log.Error().
				Err(errors.NewOperationalError("execute node", f.Name, s.ID, node.GetID(), err)).
				Msg("node execution failed")
			return e.persist(ctx, s)
		}

		switch st.action {
		case actionAdvance:
			s.NodeID = st.next
			s.State = storage.StateActive
		case actionEnd:
			s.State = storage.StateCompleted
			e.log.Info().
				Str("flow", f.Name).
				Str("session_id", s.ID).
				Msg("session completed")
			return e.persist(ctx, s)
		case actionPark:
			s.NodeID = node.GetID()
			s.State = storage.StateAwaitingInput
			if err := e.persist(ctx, s); err != nil {
				return err
			}
			e.armIdleTimer(s)
			return nil
		case actionStay:
			return e.persist(ctx, s)
		}
	}

	e.log.Warn().
		Str("flow", f.Name).
		Str("session_id", s.ID).
		Int("limit", maxStepsPerEvent).
		Msg("event hit the per-event step limit")
	return e.persist(ctx, s)
}

// resumeInput feeds the user's reply to the input node the session is
// parked on, then resumes the walk.
func (e *Engine) resumeInput(ctx context.Context, f *flow.Flow, s *storage.Session, text string) error {
	node, ok := f.GetNode(s.NodeID).(*flow.InputNode)
	if !ok {
		// The flow changed underneath the session. Reset to active and
		// walk from the cursor.
		s.State = storage.StateActive
		return e.runSession(ctx, f, s)
	}

	st := e.resumeInputNode(f, s, node, text)
	s.State = storage.StateActive

	switch st.action {
	case actionAdvance:
		s.NodeID = st.next
		return e.runSession(ctx, f, s)
	case actionEnd:
		s.State = storage.StateCompleted
		return e.persist(ctx, s)
	default:
		return e.persist(ctx, s)
	}
}

func (e *Engine) currentNode(f *flow.Flow, s *storage.Session) flow.Node {
	if s.NodeID == "" {
		if len(f.Nodes) == 0 {
			return nil
		}
		return f.Nodes[0]
	}
	return f.GetNode(s.NodeID)
}

func (e *Engine) persist(ctx context.Context, s *storage.Session) error {
	if err := e.sessions.Put(ctx, s); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", s.ID, err)
	}
	return nil
}

func (e *Engine) armIdleTimer(s *storage.Session) {
	if e.idleTimeout <= 0 {
		return
	}
	sessionID := s.ID
	e.inactivity.Start(sessionID, e.idleTimeout, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sess, err := e.sessions.Get(ctx, sessionID)
		if err != nil {
			return
		}
		sess.State = storage.StateCompleted
		if err := e.sessions.Put(ctx, sess); err != nil {
			e.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to expire idle session")
			return
		}
		e.log.Info().Str("session_id", sessionID).Msg("session expired after inactivity")
	})
}

// renderContext builds the variable context for a node: flow variables as
// the base, session variables over them, node-local overrides last.
func (e *Engine) renderContext(f *flow.Flow, s *storage.Session, node flow.Node) map[string]interface{} {
	ctx := template.MergeVariables(f.FlowVariables, s.Variables)
	return template.MergeVariables(ctx, node.LocalVariables())
}

// renderedText formats a rendered value for delivery as message text.
// Structured values embed as JSON so a flow can show raw payloads.
func renderedText(value interface{}) string {
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

// caseKeyFor converts a rendered value to its case-table key: booleans as
// "True"/"False", numbers in decimal, nil as the empty key.
func caseKeyFor(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// dispatch maps a case key to a step through the node's case table. A
// matched case with an empty target ends the flow; no match at all leaves
// the cursor where it is.
func dispatch(cases flow.CaseTable, caseID string) step {
	target, found := cases.LookupCase(caseID)
	if !found {
		return step{action: actionStay}
	}
	if target == "" {
		return step{action: actionEnd}
	}
	return step{action: actionAdvance, next: target}
}
