package session

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"sync"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/identity"
	"go-jobportal-web/pkg/logger"
	"go-jobportal-web/pkg/metrics"

	"github.com/google/uuid"
)

// refreshLeeway renews tokens this long before they expire.
const refreshLeeway = 30 * time.Second

var (
	ErrSettleTimeout = fmt.Errorf("%w: no auth notification received in time", domain.ErrProviderUnavailable)
	ErrFlowExpired   = errors.New("sign-in flow expired, please start again")
)

// Store owns the Session of every browser session. Identity is written only
// by the goroutine consuming provider events; operations mark the session
// loading, call the provider and wait for the resulting notification.
type Store struct {
	provider identity.Provider
	repo     domain.SessionRepository
	log      *logger.Logger
	settle   time.Duration
	now      func() time.Time

	locks [64]sync.Mutex

	mu       sync.Mutex
	waiters  map[string][]chan struct{}
	watchers map[string]map[chan domain.Session]struct{}

	unsubscribe func()
	done        chan struct{}
}

// New subscribes to the provider once; the subscription lives until Close.
func New(provider identity.Provider, repo domain.SessionRepository, log *logger.Logger, settle time.Duration) *Store {
	if log == nil {
		log = logger.Nop()
	}
	if settle <= 0 {
		settle = 3 * time.Second
	}

	events, unsubscribe := provider.Subscribe()
	s := &Store{
		provider:    provider,
		repo:        repo,
		log:         log,
		settle:      settle,
		now:         time.Now,
		waiters:     make(map[string][]chan struct{}),
		watchers:    make(map[string]map[chan domain.Session]struct{}),
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}
	go s.consume(events)
	return s
}

// Close ends the provider subscription and waits for the consumer to stop.
func (s *Store) Close() {
	s.unsubscribe()
	<-s.done
}

// NewID returns a fresh browser session id.
func NewID() string {
	return uuid.NewString()
}

func (s *Store) consume(events <-chan identity.Event) {
	defer close(s.done)
	for ev := range events {
		s.apply(ev)
	}
}

func (s *Store) apply(ev identity.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer s.signal(ev.SessionID)

	rec, err := s.update(ctx, ev.SessionID, func(rec *domain.SessionRecord) {
		if ev.Identity != nil {
			rec.Session.State = domain.StateAuthenticated
			rec.Session.Identity = ev.Identity
			if ev.Tokens != nil {
				rec.Tokens = ev.Tokens
			}
		} else {
			rec.Session.State = domain.StateUnauthenticated
			rec.Session.Identity = nil
			rec.Tokens = nil
		}
		rec.Session.IsLoading = false
	})
	if err != nil {
		s.log.Error("failed to apply auth event", "kind", ev.Kind, "error", err)
		return
	}

	metrics.RecordSessionTransition(rec.Session.State.String())
	s.log.Debug("auth event applied", "kind", ev.Kind, "state", rec.Session.State.String(), "version", rec.Session.Version)
}

func (s *Store) lock(sid string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

func (s *Store) load(ctx context.Context, sid string) (*domain.SessionRecord, error) {
	rec, err := s.repo.Get(ctx, sid)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.SessionRecord{ID: sid, Session: domain.Session{State: domain.StateUninitialized}}, nil
	}
	return rec, err
}

// update performs a serialized read-modify-write of one record and
// notifies watchers of the new snapshot.
func (s *Store) update(ctx context.Context, sid string, fn func(*domain.SessionRecord)) (*domain.SessionRecord, error) {
	l := s.lock(sid)
	l.Lock()
	rec, err := s.load(ctx, sid)
	if err == nil {
		fn(rec)
		rec.Session.Version++
		rec.UpdatedAt = s.now()
		err = s.repo.Save(ctx, rec)
	}
	l.Unlock()

	if err != nil {
		return nil, err
	}
	s.notify(sid, rec.Session)
	return rec, nil
}

func (s *Store) expect(sid string) chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.waiters[sid] = append(s.waiters[sid], ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) forget(sid string, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.waiters[sid]
	for i, w := range list {
		if w == ch {
			s.waiters[sid] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.waiters[sid]) == 0 {
		delete(s.waiters, sid)
	}
}

func (s *Store) signal(sid string) {
	s.mu.Lock()
	list := s.waiters[sid]
	delete(s.waiters, sid)
	s.mu.Unlock()
	for _, ch := range list {
		close(ch)
	}
}

func (s *Store) notify(sid string, sess domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers[sid] {
		select {
		case ch <- sess:
		default:
			// keep only the latest snapshot for slow watchers
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- sess:
			default:
			}
		}
	}
}

// begin marks the session loading and registers for the next notification.
func (s *Store) begin(ctx context.Context, sid string, fn func(*domain.SessionRecord)) (*domain.SessionRecord, chan struct{}, error) {
	waiter := s.expect(sid)
	rec, err := s.update(ctx, sid, func(rec *domain.SessionRecord) {
		rec.Session.IsLoading = true
		if rec.Session.State == domain.StateUninitialized {
			rec.Session.State = domain.StateLoading
		}
		if fn != nil {
			fn(rec)
		}
	})
	if err != nil {
		s.forget(sid, waiter)
		return nil, nil, err
	}
	return rec, waiter, nil
}

// finish waits for the provider notification that settles an operation.
func (s *Store) finish(ctx context.Context, sid string, waiter chan struct{}, opErr error) (domain.Session, error) {
	if opErr != nil {
		s.forget(sid, waiter)
		s.clearLoading(ctx, sid)
		return s.Snapshot(ctx, sid), opErr
	}

	timer := time.NewTimer(s.settle)
	defer timer.Stop()

	select {
	case <-waiter:
		return s.Snapshot(ctx, sid), nil
	case <-ctx.Done():
		s.forget(sid, waiter)
		return domain.Session{}, ctx.Err()
	case <-timer.C:
		s.forget(sid, waiter)
		s.log.Warn("auth notification not received in time", "session", sid, "timeout", s.settle.String())
		s.clearLoading(ctx, sid)
		return s.Snapshot(ctx, sid), ErrSettleTimeout
	}
}

func (s *Store) clearLoading(ctx context.Context, sid string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.update(cctx, sid, func(rec *domain.SessionRecord) {
		rec.Session.IsLoading = false
	}); err != nil {
		s.log.Error("failed to clear loading flag", "error", err)
	}
}

// Snapshot returns the current session without contacting the provider.
func (s *Store) Snapshot(ctx context.Context, sid string) domain.Session {
	rec, err := s.load(ctx, sid)
	if err != nil {
		s.log.Error("failed to load session", "error", err)
		return domain.Session{State: domain.StateUninitialized}
	}
	return rec.Session
}

// AccessToken returns the provider access token held for the session, if any.
func (s *Store) AccessToken(ctx context.Context, sid string) string {
	rec, err := s.load(ctx, sid)
	if err != nil || rec.Tokens == nil {
		return ""
	}
	return rec.Tokens.AccessToken
}

// Open is called on every request. On first contact it moves the session
// from Uninitialized to Loading and asks the provider for the initial
// state; it also renews tokens close to expiry.
func (s *Store) Open(ctx context.Context, sid string) domain.Session {
	rec, err := s.load(ctx, sid)
	if err != nil {
		s.log.Error("failed to load session", "error", err)
		return domain.Session{State: domain.StateUninitialized}
	}

	st := rec.Session.State
	needsRestore := st == domain.StateUninitialized || st == domain.StateLoading ||
		(rec.Tokens != nil && rec.Tokens.Expired(s.now().Add(refreshLeeway)))
	if !needsRestore {
		return rec.Session
	}

	rec, waiter, err := s.begin(ctx, sid, nil)
	if err != nil {
		s.log.Error("failed to open session", "error", err)
		return domain.Session{State: domain.StateUninitialized}
	}
	sess, err := s.finish(ctx, sid, waiter, s.provider.Restore(ctx, sid, rec.Tokens))
	if err != nil {
		s.log.Warn("session restore did not settle", "error", err)
	}
	return sess
}

func (s *Store) settledIdentity(sess domain.Session, err error) (*domain.Identity, error) {
	if err != nil {
		return nil, err
	}
	if sess.Identity == nil {
		return nil, domain.ErrUnauthenticated
	}
	return sess.Identity, nil
}

// Register creates an account, which signs it in, then applies the optional
// profile fields. A failed profile update is logged and does not undo the
// registration.
func (s *Store) Register(ctx context.Context, sid, email, password string, profile domain.ProfileUpdate) (*domain.Identity, error) {
	_, waiter, err := s.begin(ctx, sid, nil)
	if err != nil {
		return nil, err
	}
	ident, err := s.settledIdentity(s.finish(ctx, sid, waiter, s.provider.SignUp(ctx, sid, email, password)))
	if err != nil {
		return nil, err
	}

	if profile.DisplayName == nil && profile.AvatarURL == nil {
		return ident, nil
	}
	if err := s.UpdateProfile(ctx, sid, profile); err != nil {
		s.log.Warn("profile update after registration failed", "error", err)
		return ident, nil
	}
	return s.Snapshot(ctx, sid).Identity, nil
}

func (s *Store) UpdateProfile(ctx context.Context, sid string, upd domain.ProfileUpdate) error {
	rec, waiter, err := s.begin(ctx, sid, nil)
	if err != nil {
		return err
	}
	if rec.Session.Identity == nil {
		s.forget(sid, waiter)
		s.clearLoading(ctx, sid)
		return domain.ErrUnauthenticated
	}
	_, err = s.finish(ctx, sid, waiter, s.provider.UpdateUser(ctx, sid, rec.Tokens, upd))
	return err
}

func (s *Store) SignIn(ctx context.Context, sid, email, password string) (*domain.Identity, error) {
	_, waiter, err := s.begin(ctx, sid, nil)
	if err != nil {
		return nil, err
	}
	return s.settledIdentity(s.finish(ctx, sid, waiter, s.provider.SignInWithPassword(ctx, sid, email, password)))
}

// BeginFederated starts the consent flow and returns the URL to redirect
// the browser to. The PKCE verifier and return path stay server-side.
func (s *Store) BeginFederated(ctx context.Context, sid string, kind domain.ProviderKind, returnTo string) (string, error) {
	authURL, verifier, err := s.provider.AuthorizeURL(ctx, kind)
	if err != nil {
		return "", err
	}
	if _, err := s.update(ctx, sid, func(rec *domain.SessionRecord) {
		rec.PKCEVerifier = verifier
		rec.ReturnTo = returnTo
	}); err != nil {
		return "", err
	}
	return authURL, nil
}

// CompleteFederated finishes the consent flow from the callback query and
// returns the identity and the return path stored by BeginFederated.
func (s *Store) CompleteFederated(ctx context.Context, sid string, q url.Values) (*domain.Identity, string, error) {
	var verifier, returnTo string
	_, waiter, err := s.begin(ctx, sid, func(rec *domain.SessionRecord) {
		verifier, returnTo = rec.PKCEVerifier, rec.ReturnTo
		rec.PKCEVerifier, rec.ReturnTo = "", ""
	})
	if err != nil {
		return nil, "", err
	}

	opErr := identity.CallbackError(q)
	if opErr == nil && verifier == "" {
		opErr = ErrFlowExpired
	}
	if opErr == nil {
		opErr = s.provider.ExchangeCode(ctx, sid, q.Get("code"), verifier)
	}

	ident, err := s.settledIdentity(s.finish(ctx, sid, waiter, opErr))
	return ident, returnTo, err
}

// SignOut asks the provider to end the session. Identity is cleared when
// the provider's notification arrives, not before.
func (s *Store) SignOut(ctx context.Context, sid string) error {
	rec, waiter, err := s.begin(ctx, sid, nil)
	if err != nil {
		return err
	}
	_, err = s.finish(ctx, sid, waiter, s.provider.SignOut(ctx, sid, rec.Tokens))
	return err
}

// Watch streams snapshots of one session. Slow readers only see the latest.
func (s *Store) Watch(sid string) (<-chan domain.Session, func()) {
	ch := make(chan domain.Session, 1)

	s.mu.Lock()
	if s.watchers[sid] == nil {
		s.watchers[sid] = make(map[chan domain.Session]struct{})
	}
	s.watchers[sid][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers[sid], ch)
			if len(s.watchers[sid]) == 0 {
				delete(s.watchers, sid)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}
