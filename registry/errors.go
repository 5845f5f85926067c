package registry

import (
	"errors"
	"fmt"
)

// ErrProtocol is the sentinel all protocol failures wrap. Use
// errors.Is(err, ErrProtocol) when the details do not matter, or
// errors.As with *ProtocolError when they do.
var ErrProtocol = errors.New("registry protocol error")

// ProtocolError reports a structurally unexpected registry response:
// an unclassifiable HTTP status, a body that is not JSON, or a JSON
// body missing the key that identifies the outcome. It signals that
// the registry contract cannot be trusted for this run, so callers
// should abort rather than continue validating.
type ProtocolError struct {
	// URL is the full request URL that produced the bad response.
	URL string

	// StatusCode is the HTTP status of the response, 0 if the failure
	// happened before a status was read.
	StatusCode int

	// Reason describes what was wrong with the response.
	Reason string

	// Body holds the raw response body for diagnosis. It may be
	// truncated for very large responses.
	Body string
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d from %s)", ErrProtocol, e.Reason, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrProtocol, e.Reason, e.URL)
}

// Unwrap makes errors.Is(err, ErrProtocol) match.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}
