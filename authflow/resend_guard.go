package authflow

import "sync"

// ResendGuard collapses rapid repeat resend requests into one backend
// call per session. Flows are constructed per request, so the guard must
// outlive them: share a single ResendGuard across every flow built for
// the same session (the gateway holds one per server).
type ResendGuard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

// NewResendGuard creates an empty guard.
func NewResendGuard() *ResendGuard {
	return &ResendGuard{inFlight: make(map[string]bool)}
}

// begin marks a resend in flight for the session; false when one is
// already outstanding.
func (g *ResendGuard) begin(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[sessionID] {
		return false
	}
	g.inFlight[sessionID] = true
	return true
}

// end clears the in-flight mark for the session.
func (g *ResendGuard) end(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, sessionID)
}
