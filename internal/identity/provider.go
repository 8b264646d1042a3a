package identity

import (
	"context"
	"sync"

	"go-jobportal-web/internal/domain"
)

type EventKind string

const (
	// EventInitial reports the provider's view of a session on first contact.
	EventInitial        EventKind = "INITIAL_SESSION"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventUserUpdated    EventKind = "USER_UPDATED"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is an auth-state notification for one browser session. Identity is
// nil when the provider reports no signed-in user.
type Event struct {
	Kind      EventKind
	SessionID string
	Identity  *domain.Identity
	Tokens    *domain.Tokens
}

// Provider is the identity provider port. Operations report failures as
// domain errors; successful state changes are reported only as Events on
// the subscription.
type Provider interface {
	SignUp(ctx context.Context, sid, email, password string) error
	SignInWithPassword(ctx context.Context, sid, email, password string) error
	// AuthorizeURL starts the PKCE consent flow and returns the URL to send
	// the browser to together with the verifier to keep for the callback.
	AuthorizeURL(ctx context.Context, kind domain.ProviderKind) (authURL, verifier string, err error)
	ExchangeCode(ctx context.Context, sid, code, verifier string) error
	UpdateUser(ctx context.Context, sid string, tokens *domain.Tokens, upd domain.ProfileUpdate) error
	SignOut(ctx context.Context, sid string, tokens *domain.Tokens) error
	// Restore reports the initial state for a session, refreshing expired tokens.
	Restore(ctx context.Context, sid string, tokens *domain.Tokens) error
	Subscribe() (<-chan Event, func())
}

// Hub fans provider events out to subscribers. Publish blocks until every
// subscriber has accepted the event or ctx is done.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ctx context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
