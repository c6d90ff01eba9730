package notecore

import "sync"

// OnlineState combines reachability, auth, and credential validity into
// a single observable predicate (§4.J, §5): isOnline = connected ∧
// authenticated ∧ credentialValid. Set is pushed by three independent
// external collaborators (the reachability monitor, the auth flow, and
// the credential store); a flip in the aggregate publishes
// OnlineStateChanged over the event bus but never blocks a caller's
// critical path (saves always persist locally first).
type OnlineState struct {
	mu     sync.Mutex
	events *EventBus

	connected        bool
	authenticated    bool
	credentialValid  bool
	lastOnline       bool
}

// NewOnlineState constructs an aggregator; it starts offline until Set
// reports otherwise.
func NewOnlineState(events *EventBus) *OnlineState {
	return &OnlineState{events: events}
}

// Set records the latest reading from the reachability monitor, the
// auth flow, and the credential store, and publishes OnlineStateChanged
// if the aggregate predicate flipped.
func (s *OnlineState) Set(connected, authenticated, credentialValid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = connected
	s.authenticated = authenticated
	s.credentialValid = credentialValid
	s.publishIfChangedLocked()
}

// SetConnected updates only the reachability reading.
func (s *OnlineState) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
	s.publishIfChangedLocked()
}

// SetAuthenticated updates only the authenticated reading.
func (s *OnlineState) SetAuthenticated(authenticated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = authenticated
	s.publishIfChangedLocked()
}

// SetCredentialValid updates only the credential-validity reading.
func (s *OnlineState) SetCredentialValid(valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentialValid = valid
	s.publishIfChangedLocked()
}

// IsOnline evaluates the aggregate predicate.
func (s *OnlineState) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluateLocked()
}

func (s *OnlineState) evaluateLocked() bool {
	return s.connected && s.authenticated && s.credentialValid
}

func (s *OnlineState) publishIfChangedLocked() {
	online := s.evaluateLocked()
	if online == s.lastOnline {
		return
	}
	s.lastOnline = online
	if s.events != nil {
		s.events.Publish(&Event{
			Type:               EventOnlineStateChanged,
			OnlineStateChanged: &OnlineStateChangedPayload{IsOnline: online},
		})
	}
}
