package errors

import (
	"fmt"
	"time"
)

// OperationalError wraps an error with the flow, session, and node it
// occurred in. Node execution failures are recoverable by design (a bad
// upstream response must never crash a session), so these errors carry
// context for logging rather than signalling a process fault.
type OperationalError struct {
	Operation  string                 // What operation was being performed
	FlowID     string                 // Which flow
	SessionID  string                 // Which session
	NodeID     string                 // Which node (if applicable)
	Timestamp  time.Time              // When error occurred
	Attributes map[string]interface{} // Additional context (optional)
	Cause      error                  // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
func NewOperationalError(operation, flowID, sessionID, nodeID string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation: operation,
		FlowID:    flowID,
		SessionID: sessionID,
		NodeID:    nodeID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// NewOperationalErrorWithAttrs creates an OperationalError with additional attributes.
//
// Returns nil if cause is nil (no error to wrap).
func NewOperationalErrorWithAttrs(operation, flowID, sessionID, nodeID string, cause error, attrs map[string]interface{}) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation:  operation,
		FlowID:     flowID,
		SessionID:  sessionID,
		NodeID:     nodeID,
		Timestamp:  time.Now(),
		Attributes: attrs,
		Cause:      cause,
	}
}

// Error implements the error interface.
//
// Format: "[timestamp] operation: flow={id} session={id} node={id}: {cause}"
// Empty identifiers are omitted from the message.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	msg := "[" + e.Timestamp.Format(time.RFC3339) + "] " + e.Operation + ": flow=" + e.FlowID
	if e.SessionID != "" {
		msg += " session=" + e.SessionID
	}
	if e.NodeID != "" {
		msg += " node=" + e.NodeID
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
