package browser

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrorKind is one of the six stable error kinds the engine ever surfaces
// to a tool-handler caller.
type ErrorKind string

const (
	KindNavigationFailed ErrorKind = "NAVIGATION_FAILED"
	KindTimeout          ErrorKind = "TIMEOUT"
	KindElementNotFound  ErrorKind = "ELEMENT_NOT_FOUND"
	KindEvaluationError  ErrorKind = "EVALUATION_ERROR"
	KindSnapshotExpired  ErrorKind = "SNAPSHOT_EXPIRED"
	KindSessionError     ErrorKind = "SESSION_ERROR"
)

// EngineError is the one error type every exported engine operation
// returns. CDP/library errors are translated into one of these kinds at
// the tool-handler boundary; unknown errors become SESSION_ERROR with
// the original message preserved.
type EngineError struct {
	Kind           ErrorKind
	Message        string
	Recommendation string
	Representation *PageRepresentation // partial state, e.g. on TIMEOUT
	Err            error
}

func (e *EngineError) Error() string {
	if e.Recommendation != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Recommendation)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError builds an EngineError of the given kind.
func NewEngineError(kind ErrorKind, message string, err error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Err: err}
}

// WithRecommendation attaches a human-actionable hint.
func (e *EngineError) WithRecommendation(rec string) *EngineError {
	e.Recommendation = rec
	return e
}

// WithRepresentation attaches the current (partial) representation, used
// by TIMEOUT so the agent can inspect partial state.
func (e *EngineError) WithRepresentation(rep *PageRepresentation) *EngineError {
	e.Representation = rep
	return e
}

// errorHints maps substrings of a raw CDP/library error to an actionable
// recommendation, the same pattern-match-and-wrap approach used by the
// tool layer's own error hints.
var errorHints = map[string]string{
	"element not found": "Run 'observe' first to refresh element ids",
	"node not found":    "Run 'observe' first to refresh element ids",
	"context canceled":  "The browser session may have closed; navigate again to reconnect",
	"context deadline":  "Operation timed out; try increasing the timeout argument",
	"no clickable area": "Element has no visible area; it may be hidden or zero-sized",
	"failed to get box": "Element may have been removed from the page; re-observe to refresh",
	"failed to resolve": "Element reference is stale; re-observe to get a fresh id",
	"failed to focus":   "Element cannot receive focus; it may be disabled or hidden",
	"net::err":          "Navigation failed at the network layer; check the URL and connectivity",
	"dial tcp":          "Could not reach the browser's CDP endpoint; is it running?",
}

// translate wraps a raw error as an EngineError of the given kind,
// attaching a recommendation when the error text matches a known hint.
func translate(kind ErrorKind, action string, err error) *EngineError {
	ee := NewEngineError(kind, fmt.Sprintf("%s failed: %v", action, err), err)
	lower := strings.ToLower(err.Error())
	for pattern, hint := range errorHints {
		if strings.Contains(lower, pattern) {
			return ee.WithRecommendation(hint)
		}
	}
	return ee
}

// textSanitizer strips markup from untrusted page text (console messages,
// page errors) before it is embedded in a PageRepresentation's JSON, so a
// page's own console.error payload can't smuggle markup through.
var textSanitizer = bluemonday.StrictPolicy()

func sanitizeText(s string) string {
	return textSanitizer.Sanitize(s)
}
