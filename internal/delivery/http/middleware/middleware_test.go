package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/identity"
	redisrepo "go-jobportal-web/internal/repository/redis"
	"go-jobportal-web/internal/session"
	"go-jobportal-web/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// idleProvider never reports anything, so sessions stay unsettled.
type idleProvider struct {
	hub *identity.Hub
}

func (p idleProvider) SignUp(context.Context, string, string, string) error { return nil }
func (p idleProvider) SignInWithPassword(context.Context, string, string, string) error {
	return nil
}
func (p idleProvider) AuthorizeURL(context.Context, domain.ProviderKind) (string, string, error) {
	return "", "", nil
}
func (p idleProvider) ExchangeCode(context.Context, string, string, string) error { return nil }
func (p idleProvider) UpdateUser(context.Context, string, *domain.Tokens, domain.ProfileUpdate) error {
	return nil
}
func (p idleProvider) SignOut(context.Context, string, *domain.Tokens) error { return nil }
func (p idleProvider) Restore(context.Context, string, *domain.Tokens) error { return nil }
func (p idleProvider) Subscribe() (<-chan identity.Event, func()) {
	return p.hub.Subscribe()
}

func newIdleStore(t *testing.T) *session.Store {
	t.Helper()
	s := session.New(idleProvider{hub: identity.NewHub()}, redisrepo.NewMemorySessionRepository(time.Hour), nil, 50*time.Millisecond)
	t.Cleanup(s.Close)
	return s
}

func jsonErrorPage(c *gin.Context, appErr *apperror.AppError) {
	c.String(appErr.Code, "page:"+appErr.Message)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		assert.Equal(t, c.GetString("RequestID"), c.Request.Context().Value(domain.KeyRequestID))
		c.Status(http.StatusNoContent)
	})

	t.Run("Should reuse a well-formed inbound id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, id)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, id, w.Header().Get(RequestIDHeader))
	})

	t.Run("Should replace a malformed inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(RequestIDHeader)
		assert.NotEqual(t, "<script>", got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}

func TestErrorHandler(t *testing.T) {
	newEngine := func(err error) *gin.Engine {
		r := gin.New()
		r.Use(ErrorHandler(nil, jsonErrorPage))
		r.GET("/", func(c *gin.Context) { _ = c.Error(err) })
		return r
	}

	t.Run("Should render domain not found as a 404 page", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(domain.ErrNotFound).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.True(t, strings.HasPrefix(w.Body.String(), "page:"))
	})

	t.Run("Should hide internal error details", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(assert.AnError).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	})

	t.Run("Should answer JSON clients with JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		newEngine(apperror.Forbidden("nope")).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "nope", body["message"])
	})

	t.Run("Should not render for a cancelled request", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(context.Canceled).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, 499, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestCSRF(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(nil, jsonErrorPage), CSRF(false))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, CSRFToken(c)) })
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Body.String()
	require.Len(t, token, CSRFTokenLength*2)
	cookie := &http.Cookie{Name: CSRFTokenCookieName, Value: token}

	post := func(form url.Values, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		if header != "" {
			req.Header.Set(CSRFTokenHeaderName, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, post(url.Values{CSRFTokenFormField: {token}}, ""))
	assert.Equal(t, http.StatusNoContent, post(url.Values{}, token))
	assert.Equal(t, http.StatusForbidden, post(url.Values{}, ""))
	assert.Equal(t, http.StatusForbidden, post(url.Values{CSRFTokenFormField: {"forged"}}, ""))
}

func TestRateLimiter_InMemory(t *testing.T) {
	rl := NewRateLimiter(nil, nil)
	r := gin.New()
	r.Use(ErrorHandler(nil, jsonErrorPage), rl.Middleware(GlobalRateLimitConfig(2, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1").Code)
	w := hit("10.0.0.1")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	w = hit("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// other clients have their own budget
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.2").Code)

	rl.Cleanup(0)
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1").Code)
}

func TestRequireSession(t *testing.T) {
	store := newIdleStore(t)

	newEngine := func(sess domain.Session) *gin.Engine {
		r := gin.New()
		r.Use(Sessions(CookieConfig{Name: "test", Secret: "0123456789abcdef0123456789abcdef", MaxAge: time.Hour}))
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), "sid-1", sess))
			c.Next()
		})
		r.GET("/private", RequireSession(store, 50*time.Millisecond, func(c *gin.Context) {
			c.String(http.StatusOK, "loading")
		}), func(c *gin.Context) {
			c.String(http.StatusOK, "secret")
		})
		r.GET("/flashes", func(c *gin.Context) {
			c.JSON(http.StatusOK, Flashes(c))
		})
		return r
	}

	t.Run("Should allow a signed-in session", func(t *testing.T) {
		r := newEngine(domain.Session{State: domain.StateAuthenticated, Identity: &domain.Identity{ID: "u1"}})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
		assert.Equal(t, "secret", w.Body.String())
	})

	t.Run("Should render loading while the session never settles", func(t *testing.T) {
		r := newEngine(domain.Session{State: domain.StateLoading, IsLoading: true})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
		assert.Equal(t, "loading", w.Body.String())
	})

	t.Run("Should redirect a signed-out session and flash once", func(t *testing.T) {
		r := newEngine(domain.Session{State: domain.StateUnauthenticated})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private?tab=2", nil))
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, session.LoginURL("/private?tab=2"), w.Header().Get("Location"))
		cookies := w.Result().Cookies()
		require.NotEmpty(t, cookies)
		jar := cookies[len(cookies)-1]

		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.AddCookie(jar)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		if c := w.Result().Cookies(); len(c) > 0 {
			jar = c[len(c)-1]
		}

		req = httptest.NewRequest(http.MethodGet, "/flashes", nil)
		req.AddCookie(jar)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var flashes []Flash
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flashes))
		require.Len(t, flashes, 1)
		assert.Equal(t, "Access Denied", flashes[0].Title)
	})
}
