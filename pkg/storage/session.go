package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by stores when no session exists for the
// given ID.
var ErrSessionNotFound = errors.New("session not found")

// SessionState tracks where a session sits in its lifecycle.
type SessionState string

const (
	// StateActive means the session walks nodes as events arrive.
	StateActive SessionState = "active"
	// StateAwaitingInput means an input node rendered its prompt and the
	// session is parked until the user answers.
	StateAwaitingInput SessionState = "awaiting_input"
	// StateCompleted means the session reached an end of flow.
	StateCompleted SessionState = "completed"
)

// Session is one user's cursor through a flow plus the variables collected
// along the way. Flow definitions stay immutable; all mutable state lives
// here.
type Session struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	FlowName  string                 `json:"flow_name"`
	NodeID    string                 `json:"node_id"`
	State     SessionState           `json:"state"`
	Variables map[string]interface{} `json:"variables"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewSession creates an active session at the start of the named flow.
func NewSession(userID, flowName string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		FlowName:  flowName,
		State:     StateActive,
		Variables: make(map[string]interface{}),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetVariable records a variable on the session.
func (s *Session) SetVariable(name string, value interface{}) {
	if s.Variables == nil {
		s.Variables = make(map[string]interface{})
	}
	s.Variables[name] = value
	s.UpdatedAt = time.Now().UTC()
}

// GetVariable returns a session variable and whether it exists.
func (s *Session) GetVariable(name string) (interface{}, bool) {
	v, ok := s.Variables[name]
	return v, ok
}

// Clone returns a copy safe to hand to another goroutine. Variables are
// shallow-copied one level deep, which matches how nodes write them.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Variables = make(map[string]interface{}, len(s.Variables))
	for k, v := range s.Variables {
		cp.Variables[k] = v
	}
	return &cp
}

// SessionStore persists sessions between events. Implementations must be
// safe for concurrent use.
type SessionStore interface {
	// Get returns the session with the given ID, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// GetByUser returns the user's session for a flow, or ErrSessionNotFound.
	GetByUser(ctx context.Context, userID, flowName string) (*Session, error)
	// Put inserts or replaces a session.
	Put(ctx context.Context, s *Session) error
	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
	// Close releases any underlying resources.
	Close() error
}
