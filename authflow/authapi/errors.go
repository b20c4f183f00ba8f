package authapi

import "fmt"

// RemoteError is a non-2xx backend reply. Message is the backend's own
// message when the payload carried one, otherwise a generic status-based
// message; it is surfaced to the user verbatim.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// NetworkError is a transport-level failure: the request never produced
// an HTTP response. It is distinguished from RemoteError structurally,
// never by matching message text.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
