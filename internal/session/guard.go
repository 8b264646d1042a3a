package session

import (
	"context"
	"net/url"
	"strings"

	"go-jobportal-web/internal/domain"
)

type Decision int

const (
	DecisionLoading Decision = iota
	DecisionAllow
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "loading"
	}
}

// Decide is the route guard: wait while the session is settling, allow a
// signed-in identity, redirect everyone else to sign-in.
func Decide(sess domain.Session) Decision {
	switch {
	case sess.IsLoading, sess.State == domain.StateUninitialized, sess.State == domain.StateLoading:
		return DecisionLoading
	case sess.Identity != nil:
		return DecisionAllow
	default:
		return DecisionRedirect
	}
}

// LoginURL builds the sign-in location that returns to target afterwards.
func LoginURL(target string) string {
	target = SafeReturnPath(target)
	if target == "/" {
		return "/login"
	}
	return "/login?redirect=" + url.QueryEscape(target)
}

// SafeReturnPath accepts only local absolute paths; anything else becomes "/".
func SafeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return p
}

// WithSession stores the request's session snapshot and id in ctx.
func WithSession(ctx context.Context, sid string, sess domain.Session) context.Context {
	ctx = context.WithValue(ctx, domain.KeySessionID, sid)
	return context.WithValue(ctx, domain.KeySession, sess)
}

func FromContext(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(domain.KeySession).(domain.Session)
	return sess, ok
}

func IDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(domain.KeySessionID).(string)
	return sid
}

// IdentityFromContext returns the signed-in identity for the request, or nil.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	sess, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return sess.Identity
}
