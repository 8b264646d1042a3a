package usecase

import (
	"context"
	"errors"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/logger"
)

// Authenticator is the part of the session store the sign-in pages drive.
type Authenticator interface {
	SignIn(ctx context.Context, sid, email, password string) (*domain.Identity, error)
	Register(ctx context.Context, sid, email, password string, profile domain.ProfileUpdate) (*domain.Identity, error)
	SignOut(ctx context.Context, sid string) error
}

// AttemptTracker counts failed password sign-ins.
type AttemptTracker interface {
	IsBlocked(ctx context.Context, email, ip string) (bool, error)
	RecordFailedAttempt(ctx context.Context, email, ip string) (bool, int, error)
	ClearAttempts(ctx context.Context, email, ip string) error
}

type AuthUsecase struct {
	auth    Authenticator
	tracker AttemptTracker
	log     *logger.Logger
}

func NewAuthUsecase(auth Authenticator, tracker AttemptTracker, log *logger.Logger) *AuthUsecase {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthUsecase{auth: auth, tracker: tracker, log: log}
}

// Login signs the session in with a password. Repeated invalid credentials
// from the same email or IP are refused with ErrTooManyAttempts before the
// identity provider is contacted. Tracker failures never block a login.
func (u *AuthUsecase) Login(ctx context.Context, sid, email, password, ip string) (*domain.Identity, error) {
	if u.tracker != nil {
		blocked, err := u.tracker.IsBlocked(ctx, email, ip)
		if err != nil {
			u.log.Warn("login tracker unavailable", "error", err)
		} else if blocked {
			return nil, domain.ErrTooManyAttempts
		}
	}

	ident, err := u.auth.SignIn(ctx, sid, email, password)
	if err != nil {
		if u.tracker != nil && (errors.Is(err, domain.ErrInvalidCredential) || errors.Is(err, domain.ErrAccountNotFound)) {
			blocked, n, terr := u.tracker.RecordFailedAttempt(ctx, email, ip)
			if terr != nil {
				u.log.Warn("failed to record login attempt", "error", terr)
			} else if blocked {
				u.log.Warn("login blocked after repeated failures", "ip", ip, "attempts", n)
				return nil, domain.ErrTooManyAttempts
			}
		}
		return nil, err
	}

	if u.tracker != nil {
		if err := u.tracker.ClearAttempts(ctx, email, ip); err != nil {
			u.log.Warn("failed to clear login attempts", "error", err)
		}
	}
	return ident, nil
}

func (u *AuthUsecase) Register(ctx context.Context, sid string, form RegisterForm) (*domain.Identity, error) {
	return u.auth.Register(ctx, sid, form.Email, form.Password, form.Profile())
}

func (u *AuthUsecase) Logout(ctx context.Context, sid string) error {
	return u.auth.SignOut(ctx, sid)
}
