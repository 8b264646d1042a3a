package middleware

import (
	"encoding/gob"
	"net/http"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/repository/jobapi"
	"go-jobportal-web/internal/session"
	"go-jobportal-web/pkg/metrics"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const (
	sessionIDKey   = "sid"
	deniedKey      = "access_denied"
	sessionCtxKey  = "session"
	defaultTimeout = 3 * time.Second
)

// Flash is a one-shot notice shown as a modal on the next rendered page.
type Flash struct {
	Kind    string // success, error, info
	Title   string
	Message string
}

func init() {
	gob.Register(Flash{})
}

type CookieConfig struct {
	Name   string
	Secret string
	Secure bool
	MaxAge time.Duration
}

// Sessions installs the signed cookie that carries the browser session id
// and flash notices. Identity and tokens stay server-side.
func Sessions(cfg CookieConfig) gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(cfg.Name, store)
}

// LoadSession resolves the browser session, opens it in the Store and puts
// the snapshot and access token on the request context.
func LoadSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs := sessions.Default(c)
		sid, _ := cs.Get(sessionIDKey).(string)
		if sid == "" {
			sid = session.NewID()
			cs.Set(sessionIDKey, sid)
			_ = cs.Save()
		}

		ctx := c.Request.Context()
		snap := store.Open(ctx, sid)
		if snap.Identity != nil && cs.Get(deniedKey) != nil {
			cs.Delete(deniedKey)
			_ = cs.Save()
		}

		ctx = session.WithSession(ctx, sid, snap)
		ctx = jobapi.WithAccessToken(ctx, store.AccessToken(ctx, sid))
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionCtxKey, snap)
		c.Next()
	}
}

// RefreshSession re-reads the snapshot after an operation changed it.
func RefreshSession(c *gin.Context, store *session.Store) domain.Session {
	ctx := c.Request.Context()
	sid := session.IDFromContext(ctx)
	snap := store.Snapshot(ctx, sid)
	ctx = session.WithSession(ctx, sid, snap)
	ctx = jobapi.WithAccessToken(ctx, store.AccessToken(ctx, sid))
	c.Request = c.Request.WithContext(ctx)
	c.Set(sessionCtxKey, snap)
	return snap
}

// RequireSession guards a route subtree. A settling session waits up to
// wait for the outcome and renders loading if it is still unknown; a
// signed-out session is sent to sign-in with the current URL as the return
// path. The "Access Denied" notice is flashed once per denial.
func RequireSession(store *session.Store, wait time.Duration, loading gin.HandlerFunc) gin.HandlerFunc {
	if wait <= 0 {
		wait = defaultTimeout
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sid := session.IDFromContext(ctx)
		snap, _ := session.FromContext(ctx)

		decision := session.Decide(snap)
		if decision == session.DecisionLoading {
			snap = awaitSettled(c, store, sid, wait)
			decision = session.Decide(snap)
			c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sid, snap))
			c.Set(sessionCtxKey, snap)
		}
		metrics.RecordGuardDecision(decision.String())

		switch decision {
		case session.DecisionAllow:
			c.Next()
		case session.DecisionLoading:
			loading(c)
			c.Abort()
		default:
			cs := sessions.Default(c)
			if cs.Get(deniedKey) == nil {
				cs.AddFlash(Flash{Kind: "error", Title: "Access Denied", Message: "Please login to access this page"})
				cs.Set(deniedKey, true)
				_ = cs.Save()
			}
			c.Redirect(http.StatusSeeOther, session.LoginURL(c.Request.URL.RequestURI()))
			c.Abort()
		}
	}
}

func awaitSettled(c *gin.Context, store *session.Store, sid string, wait time.Duration) domain.Session {
	updates, cancel := store.Watch(sid)
	defer cancel()

	snap := store.Snapshot(c.Request.Context(), sid)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for session.Decide(snap) == session.DecisionLoading {
		select {
		case s, ok := <-updates:
			if !ok {
				return snap
			}
			snap = s
		case <-timer.C:
			return snap
		case <-c.Request.Context().Done():
			return snap
		}
	}
	return snap
}

// AddFlash queues a notice for the next rendered page.
func AddFlash(c *gin.Context, f Flash) {
	cs := sessions.Default(c)
	cs.AddFlash(f)
	_ = cs.Save()
}

// Flashes drains the queued notices. Requests rejected before the cookie
// session was loaded have none.
func Flashes(c *gin.Context) []Flash {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	cs := sessions.Default(c)
	raw := cs.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = cs.Save()

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}
