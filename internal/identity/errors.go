package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-jobportal-web/internal/domain"
)

// apiError is the GoTrue error body. The token endpoint uses the OAuth
// error/error_description pair, the other endpoints use msg.
type apiError struct {
	Code        int    `json:"code"`
	ErrorCode   string `json:"error_code"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.Description, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// classify maps a GoTrue failure onto the domain error taxonomy.
func classify(status int, body apiError) error {
	text := body.text()
	lower := strings.ToLower(text)

	switch body.ErrorCode {
	case "user_already_exists", "email_exists":
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAccount, text)
	case "weak_password":
		return fmt.Errorf("%w: %s", domain.ErrWeakCredential, text)
	case "invalid_credentials":
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredential, text)
	case "user_not_found":
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, text)
	case "identity_already_exists", "email_conflict_identity_not_deletable":
		return fmt.Errorf("%w: %s", domain.ErrFederatedConflict, text)
	case "email_not_confirmed":
		return fmt.Errorf("%w: %s", domain.ErrEmailNotConfirmed, text)
	}

	// Older GoTrue versions omit error_code.
	switch {
	case strings.Contains(lower, "already registered"):
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAccount, text)
	case strings.Contains(lower, "password should be"):
		return fmt.Errorf("%w: %s", domain.ErrWeakCredential, text)
	case strings.Contains(lower, "invalid login credentials"):
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredential, text)
	case strings.Contains(lower, "email not confirmed"):
		return fmt.Errorf("%w: %s", domain.ErrEmailNotConfirmed, text)
	}

	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d: %s", domain.ErrProviderUnavailable, status, text)
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return fmt.Errorf("identity provider: %s", text)
}

// classifyCallback maps the error query parameters of an OAuth callback.
func classifyCallback(errCode, code, description string) error {
	switch {
	case errCode == "access_denied" && code != "identity_already_exists":
		return fmt.Errorf("%w: %s", domain.ErrUserCancelled, description)
	case code == "identity_already_exists", code == "email_exists",
		strings.Contains(strings.ToLower(description), "already"):
		return fmt.Errorf("%w: %s", domain.ErrFederatedConflict, description)
	}
	if description == "" {
		description = errCode
	}
	return fmt.Errorf("identity provider: %s", description)
}

// Message returns the banner text shown for an identity failure.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrDuplicateAccount):
		return "This email is already registered. Please use a different email or login."
	case errors.Is(err, domain.ErrWeakCredential):
		return "Please use a stronger password (at least 6 characters)."
	case errors.Is(err, domain.ErrInvalidCredential):
		return "Incorrect email or password. Please try again."
	case errors.Is(err, domain.ErrAccountNotFound):
		return "No user found with this email. Please check your email or sign up."
	case errors.Is(err, domain.ErrFederatedConflict):
		return "An account already exists with the same email address but different sign-in credentials. Please sign in using the method you used previously."
	case errors.Is(err, domain.ErrUserCancelled):
		return "Sign-in was cancelled."
	case errors.Is(err, domain.ErrEmailNotConfirmed):
		return "Please confirm your email address, then sign in."
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Please login to access this page"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "Too many failed sign-in attempts. Please wait a few minutes and try again."
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "The sign-in service is unavailable right now. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
