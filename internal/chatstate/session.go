package chatstate

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// SessionEventType distinguishes session lifecycle transitions.
type SessionEventType string

const (
	SignedIn  SessionEventType = "SIGNED_IN"
	SignedOut SessionEventType = "SIGNED_OUT"
)

// Session is the authenticated identity for the current client.
type Session struct {
	UserID uuid.UUID
	Email  string
	Token  string
}

// SessionEvent is published on every sign-in and sign-out. Session is
// nil for SignedOut.
type SessionEvent struct {
	Type    SessionEventType
	Session *Session
}

// SessionManager owns the current session and broadcasts lifecycle
// events to a single subscriber over a buffered channel.
type SessionManager struct {
	mu      sync.Mutex
	backend Backend
	current *Session
	events  chan SessionEvent
}

func NewSessionManager(backend Backend) *SessionManager {
	return &SessionManager{
		backend: backend,
		events:  make(chan SessionEvent, 16),
	}
}

// Events returns the session event stream. The channel is never closed.
func (m *SessionManager) Events() <-chan SessionEvent {
	return m.events
}

// Current returns the active session, if any.
func (m *SessionManager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// SignIn authenticates against the backend and publishes SignedIn.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) error {
	session, err := m.backend.Login(ctx, email, password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.current = &session
	m.mu.Unlock()

	m.publish(SessionEvent{Type: SignedIn, Session: &session})
	return nil
}

// SignUp registers a new account and signs it in.
func (m *SessionManager) SignUp(ctx context.Context, email, password, apiKey string) error {
	if err := m.backend.Signup(ctx, email, password, apiKey); err != nil {
		return err
	}
	return m.SignIn(ctx, email, password)
}

// SignOut drops the session and publishes SignedOut. The subscriber is
// responsible for tearing down dependent state.
func (m *SessionManager) SignOut() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	m.publish(SessionEvent{Type: SignedOut})
}

func (m *SessionManager) publish(ev SessionEvent) {
	select {
	case m.events <- ev:
	default:
		log.Printf("WARN [SessionManager] event channel full, dropping %s", ev.Type)
	}
}
