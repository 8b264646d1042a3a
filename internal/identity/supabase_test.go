package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func newTestClient(t *testing.T, h http.HandlerFunc) (*SupabaseClient, <-chan Event) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewSupabase(SupabaseConfig{
		URL:         srv.URL,
		APIKey:      "anon-key",
		RedirectURL: "http://localhost:8080/auth/callback",
		HTTPClient:  srv.Client(),
	}, auth.NewVerifier(testSecret, nil), nil)

	events, cancel := c.Subscribe()
	t.Cleanup(cancel)
	return c, events
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return Event{}
	}
}

func sessionJSON(accessToken string) map[string]any {
	return map[string]any{
		"access_token":  accessToken,
		"refresh_token": "refresh-1",
		"expires_in":    3600,
		"user": map[string]any{
			"id":            "user-1",
			"email":         "ada@example.com",
			"user_metadata": map[string]any{"full_name": "Ada Lovelace"},
		},
	}
}

func TestSignInWithPassword(t *testing.T) {
	t.Run("Should publish SIGNED_IN with identity and tokens", func(t *testing.T) {
		c, events := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/token", r.URL.Path)
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "anon-key", r.Header.Get("apikey"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ada@example.com", body["email"])
			_ = json.NewEncoder(w).Encode(sessionJSON("access-1"))
		})

		require.NoError(t, c.SignInWithPassword(context.Background(), "sid-1", "ada@example.com", "secret"))

		ev := nextEvent(t, events)
		assert.Equal(t, EventSignedIn, ev.Kind)
		assert.Equal(t, "sid-1", ev.SessionID)
		require.NotNil(t, ev.Identity)
		assert.Equal(t, "ada@example.com", ev.Identity.EmailOrEmpty())
		assert.Equal(t, "Ada Lovelace", ev.Identity.NameOrEmpty())
		assert.Equal(t, "access-1", ev.Tokens.AccessToken)
	})

	t.Run("Should map invalid credentials and publish nothing", func(t *testing.T) {
		c, events := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
		})

		err := c.SignInWithPassword(context.Background(), "sid-1", "ada@example.com", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredential)
		assert.Empty(t, events)
	})

	t.Run("Should treat 5xx as provider unavailable", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		err := c.SignInWithPassword(context.Background(), "sid-1", "ada@example.com", "pw")
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})
}

func TestSignUp(t *testing.T) {
	t.Run("Should map duplicate account", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`))
		})
		err := c.SignUp(context.Background(), "sid", "ada@example.com", "secret1")
		assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
	})

	t.Run("Should map weak password", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"error_code":"weak_password","msg":"Password should be at least 6 characters."}`))
		})
		err := c.SignUp(context.Background(), "sid", "ada@example.com", "123")
		assert.ErrorIs(t, err, domain.ErrWeakCredential)
	})

	t.Run("Should detect an obfuscated existing account", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"user-1","email":"ada@example.com","identities":[]}`))
		})
		err := c.SignUp(context.Background(), "sid", "ada@example.com", "secret1")
		assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
	})

	t.Run("Should sign in when the project auto-confirms", func(t *testing.T) {
		c, events := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)
			_ = json.NewEncoder(w).Encode(sessionJSON("access-1"))
		})
		require.NoError(t, c.SignUp(context.Background(), "sid", "ada@example.com", "secret1"))
		assert.Equal(t, EventSignedIn, nextEvent(t, events).Kind)
	})
}

func TestAuthorizeURL(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	raw, verifier, err := c.AuthorizeURL(context.Background(), domain.ProviderGitHub)
	require.NoError(t, err)
	require.NotEmpty(t, verifier)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "github", u.Query().Get("provider"))
	assert.Equal(t, "s256", u.Query().Get("code_challenge_method"))
	assert.NotEqual(t, verifier, u.Query().Get("code_challenge"))

	_, _, err = c.AuthorizeURL(context.Background(), domain.ProviderKind("myspace"))
	assert.Error(t, err)
}

func TestSignOut_PublishesEvenWhenProviderFails(t *testing.T) {
	c, events := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.SignOut(context.Background(), "sid-1", &domain.Tokens{AccessToken: "a"})
	require.NoError(t, err)

	ev := nextEvent(t, events)
	assert.Equal(t, EventSignedOut, ev.Kind)
	assert.Nil(t, ev.Identity)
}

func TestRestore(t *testing.T) {
	t.Run("Should report no identity without tokens", func(t *testing.T) {
		c, events := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		require.NoError(t, c.Restore(context.Background(), "sid", nil))
		ev := nextEvent(t, events)
		assert.Equal(t, EventInitial, ev.Kind)
		assert.Nil(t, ev.Identity)
	})

	t.Run("Should verify a live token locally", func(t *testing.T) {
		c, events := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			Email: "ada@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		tokens := &domain.Tokens{AccessToken: tok, ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, c.Restore(context.Background(), "sid", tokens))

		ev := nextEvent(t, events)
		require.NotNil(t, ev.Identity)
		assert.Equal(t, "user-1", ev.Identity.ID)
	})

	t.Run("Should refresh expired tokens", func(t *testing.T) {
		c, events := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
			_ = json.NewEncoder(w).Encode(sessionJSON("access-2"))
		})
		tokens := &domain.Tokens{AccessToken: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)}
		require.NoError(t, c.Restore(context.Background(), "sid", tokens))

		ev := nextEvent(t, events)
		assert.Equal(t, EventTokenRefreshed, ev.Kind)
		assert.Equal(t, "access-2", ev.Tokens.AccessToken)
	})

	t.Run("Should sign out when the refresh token is revoked", func(t *testing.T) {
		c, events := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`))
		})
		tokens := &domain.Tokens{AccessToken: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)}
		require.NoError(t, c.Restore(context.Background(), "sid", tokens))
		assert.Equal(t, EventSignedOut, nextEvent(t, events).Kind)
	})
}

func TestCallbackError(t *testing.T) {
	assert.NoError(t, CallbackError(url.Values{"code": {"abc"}}))
	assert.ErrorIs(t, CallbackError(url.Values{"error": {"access_denied"}}), domain.ErrUserCancelled)
	assert.ErrorIs(t, CallbackError(url.Values{
		"error":             {"server_error"},
		"error_code":        {"identity_already_exists"},
		"error_description": {"Identity is already linked to another user"},
	}), domain.ErrFederatedConflict)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Contains(t, Message(domain.ErrDuplicateAccount), "already registered")
	assert.Contains(t, Message(domain.ErrWeakCredential), "at least 6 characters")
}
