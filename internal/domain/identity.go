package domain

import (
	"context"
	"errors"
	"time"
)

// Identity provider failures, mapped to user-facing categories by the delivery layer.
var (
	ErrDuplicateAccount    = errors.New("account already registered")
	ErrWeakCredential      = errors.New("password does not meet the policy")
	ErrInvalidCredential   = errors.New("invalid credentials")
	ErrAccountNotFound     = errors.New("account not found")
	ErrFederatedConflict   = errors.New("email bound to a different sign-in method")
	ErrUserCancelled       = errors.New("sign-in cancelled by user")
	ErrEmailNotConfirmed   = errors.New("email address not confirmed")
	ErrUnauthenticated     = errors.New("no signed-in identity")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrTooManyAttempts     = errors.New("too many failed sign-in attempts")
)

// Identity is the authenticated user record returned by the identity provider.
type Identity struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// EmailOrEmpty returns the email or "" when the provider did not supply one.
func (i *Identity) EmailOrEmpty() string {
	if i == nil || i.Email == nil {
		return ""
	}
	return *i.Email
}

// NameOrEmpty returns the display name or "".
func (i *Identity) NameOrEmpty() string {
	if i == nil || i.DisplayName == nil {
		return ""
	}
	return *i.DisplayName
}

type ProviderKind string

const (
	ProviderGoogle ProviderKind = "google"
	ProviderGitHub ProviderKind = "github"
)

func (k ProviderKind) Valid() bool {
	return k == ProviderGoogle || k == ProviderGitHub
}

// ProfileUpdate carries the optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
}

type SessionState int

const (
	StateUninitialized SessionState = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// Session is the snapshot views read. Identity is non-nil iff the latest
// provider notification reported an authenticated user.
type Session struct {
	State     SessionState `json:"state"`
	Identity  *Identity    `json:"identity,omitempty"`
	IsLoading bool         `json:"is_loading"`
	Version   uint64       `json:"version"`
}

func (s Session) Authenticated() bool {
	return !s.IsLoading && s.Identity != nil
}

// Tokens are the provider credentials held server-side for one browser session.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (t *Tokens) Expired(now time.Time) bool {
	return t == nil || t.AccessToken == "" || !now.Before(t.ExpiresAt)
}

// SessionRecord is the persisted server-side state of one browser session.
type SessionRecord struct {
	ID           string    `json:"id"`
	Session      Session   `json:"session"`
	Tokens       *Tokens   `json:"tokens,omitempty"`
	PKCEVerifier string    `json:"pkce_verifier,omitempty"`
	ReturnTo     string    `json:"return_to,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SessionRepository interface {
	Get(ctx context.Context, id string) (*SessionRecord, error)
	Save(ctx context.Context, rec *SessionRecord) error
	Delete(ctx context.Context, id string) error
}
