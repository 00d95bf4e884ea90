package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/convoflow/convoflow/pkg/flow"
	"github.com/convoflow/convoflow/pkg/storage"
)

// executeHTTPRequestNode issues the node's outbound request and routes
// the session on the stringified status code. Every failure mode degrades
// rather than crashing the session: a transport error becomes a synthetic
// 500, a 401 bypasses routing entirely, and extraction misses are skipped
// per variable.
func (e *Engine) executeHTTPRequestNode(ctx context.Context, f *flow.Flow, s *storage.Session, n *flow.HTTPRequestNode) step {
	vars := e.renderContext(f, s, n)

	resp, err := e.doRequest(ctx, s, n, vars)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("flow", f.Name).
			Str("session_id", s.ID).
			Str("node_id", n.ID).
			Msg("http request failed before a response was obtained")
		// Synthetic 500: route to the "500" case when one exists, but never
		// decide termination here.
		target, found := n.Cases.LookupCase("500")
		if !found || target == "" {
			return step{action: actionStay}
		}
		return step{action: actionAdvance, next: target}
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		e.log.Warn().
			Err(readErr).
			Str("node_id", n.ID).
			Msg("failed to read response body")
		body = nil
	}

	e.log.Debug().
		Str("flow", f.Name).
		Str("node_id", n.ID).
		Int("status", resp.StatusCode).
		Msg("http request completed")

	// A 401 goes straight back to the caller: no cookie capture, no
	// extraction, no routing. Upstream auth middleware owns the retry.
	if resp.StatusCode == http.StatusUnauthorized {
		return step{action: actionStay}
	}

	for _, name := range n.Cookies {
		for _, c := range resp.Cookies() {
			if c.Name == name {
				s.SetVariable(name, c.Value)
				break
			}
		}
	}

	e.extractVariables(s, n, body, vars)

	// A node with no case table at all is a flow terminus.
	if len(n.Cases) == 0 {
		return step{action: actionEnd}
	}
	return dispatch(n.Cases, strconv.Itoa(resp.StatusCode))
}

// doRequest renders the request parts independently and performs the
// call. Any failure before a response exists is a transport error.
func (e *Engine) doRequest(ctx context.Context, s *storage.Session, n *flow.HTTPRequestNode, vars map[string]interface{}) (*http.Response, error) {
	renderedURL, err := e.renderer.Render(n.URL, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render url: %w", err)
	}
	target := renderedText(renderedURL)

	var bodyReader io.Reader
	var contentType string
	if n.Data != nil {
		bodyReader, contentType, err = e.renderBody(n.Data, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to render request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(n.Method), target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if len(n.QueryParams) > 0 {
		query := req.URL.Query()
		for key, value := range e.renderStringMap(n.QueryParams, vars, n.ID, "query params") {
			query.Set(key, value)
		}
		req.URL.RawQuery = query.Encode()
	}

	if e.cfg.HTTP.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.HTTP.UserAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range e.renderStringMap(n.Headers, vars, n.ID, "headers") {
		req.Header.Set(key, value)
	}

	if n.BasicAuth != nil {
		login, password := e.renderBasicAuth(n.BasicAuth, vars, n.ID)
		req.SetBasicAuth(login, password)
	}

	if n.Middleware != "" {
		if mw, ok := e.middlewares[n.Middleware]; ok {
			rc := RequestContext{
				BotID:      e.cfg.Bot.UserID,
				SessionID:  s.ID,
				Middleware: n.Middleware,
			}
			if err := mw.Apply(req, rc); err != nil {
				return nil, fmt.Errorf("middleware %q failed: %w", n.Middleware, err)
			}
		} else {
			e.log.Warn().
				Str("node_id", n.ID).
				Str("middleware", n.Middleware).
				Msg("node names an unregistered middleware")
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// renderBody renders the data template into a request body. Structured
// data goes out as JSON; a rendered string goes out verbatim.
func (e *Engine) renderBody(data interface{}, vars map[string]interface{}) (io.Reader, string, error) {
	rendered, err := e.renderer.Render(data, vars)
	if err != nil {
		return nil, "", err
	}

	switch v := rendered.(type) {
	case string:
		return strings.NewReader(v), "", nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}

// renderStringMap renders each entry of a template map to a string. A
// failed entry is dropped, not fatal.
func (e *Engine) renderStringMap(m map[string]interface{}, vars map[string]interface{}, nodeID, what string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for key, value := range m {
		rendered, err := e.renderer.Render(value, vars)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("node_id", nodeID).
				Str("key", key).
				Msgf("failed to render %s entry", what)
			continue
		}
		out[key] = renderedText(rendered)
	}
	return out
}

// renderBasicAuth renders the login and resolves the password, preferring
// a credential store reference over the inline template.
func (e *Engine) renderBasicAuth(auth *flow.BasicAuth, vars map[string]interface{}, nodeID string) (string, string) {
	login := auth.Login
	if rendered, err := e.renderer.Render(auth.Login, vars); err == nil {
		login = renderedText(rendered)
	}

	if auth.CredentialRef != "" && e.credentials != nil {
		password, err := e.credentials.Get(auth.CredentialRef)
		if err == nil {
			return login, password
		}
		e.log.Warn().
			Err(err).
			Str("node_id", nodeID).
			Str("credential_ref", auth.CredentialRef).
			Msg("failed to resolve credential reference")
	}

	password := auth.Password
	if rendered, err := e.renderer.Render(auth.Password, vars); err == nil {
		password = renderedText(rendered)
	}
	return login, password
}

// extractVariables pulls configured variables out of the response body.
// A body that does not parse as JSON counts as empty; nothing is
// extracted. An object body is probed key by key at the top level only;
// a JSON string body lands in the first configured variable. Extracted
// values pass back through the renderer so they may carry template
// expressions.
func (e *Engine) extractVariables(s *storage.Session, n *flow.HTTPRequestNode, body []byte, vars map[string]interface{}) {
	if len(n.Variables) == 0 || len(body) == 0 {
		return
	}
	if !gjson.ValidBytes(body) {
		return
	}

	parsed := gjson.ParseBytes(body)
	switch {
	case parsed.IsObject():
		for _, mapping := range n.Variables {
			result := parsed.Get(literalKey(mapping.Key))
			if !result.Exists() {
				continue
			}
			e.storeExtracted(s, n, mapping.Name, result.Value(), vars)
		}
	case parsed.Type == gjson.String:
		// A bare string body feeds only the first configured variable,
		// positionally. Arrays, numbers, and booleans feed nothing.
		e.storeExtracted(s, n, n.Variables[0].Name, parsed.String(), vars)
	}
}

func (e *Engine) storeExtracted(s *storage.Session, n *flow.HTTPRequestNode, name string, value interface{}, vars map[string]interface{}) {
	rendered, err := e.renderer.Render(value, vars)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("node_id", n.ID).
			Str("variable", name).
			Msg("extracted value failed to render")
		return
	}
	s.SetVariable(name, rendered)
}

// literalKey escapes gjson path syntax so a configured extraction key is
// matched verbatim at the top level, never as a deep path.
func literalKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
