package engine

import (
	"context"
	"net/http"

	"github.com/convoflow/convoflow/pkg/flow"
)

// Transport delivers rendered node output to the user's room. The engine
// never talks to a chat server directly; the surrounding program supplies
// whichever transport it has.
type Transport interface {
	SendMessage(ctx context.Context, userID string, text string) error
}

// RequestContext carries call identity to middleware so instrumentation
// can observe outbound requests without the engine knowing what the
// middleware does with it.
type RequestContext struct {
	BotID      string
	SessionID  string
	Middleware string
}

// Middleware observes or mutates an outbound HTTP request before it is
// sent. Typical implementations inject auth headers and handle their own
// token refresh out of band.
type Middleware interface {
	Name() string
	Apply(req *http.Request, rc RequestContext) error
}

// FlowRepository resolves flow definitions by name.
type FlowRepository interface {
	Get(name string) (*flow.Flow, error)
}
