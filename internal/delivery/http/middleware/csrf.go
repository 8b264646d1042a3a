package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"go-jobportal-web/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const (
	// CSRFTokenCookieName is the name of the cookie that stores the CSRF token
	CSRFTokenCookieName = "csrf_token"
	// CSRFTokenHeaderName is accepted for script-initiated requests
	CSRFTokenHeaderName = "X-CSRF-Token"
	// CSRFTokenFormField is the hidden input every rendered form carries
	CSRFTokenFormField = "_csrf"
	// CSRFTokenLength is the length of the generated token in bytes (32 bytes = 64 hex chars)
	CSRFTokenLength = 32
	CSRFTokenExpiry = 24 * time.Hour

	csrfCtxKey = "csrf_token"
)

// generateCSRFToken creates a cryptographically secure random token
func generateCSRFToken() (string, error) {
	b := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CSRF implements the double-submit cookie pattern. Every response carries
// the csrf_token cookie; state-changing requests must echo it in the _csrf
// form field or the X-CSRF-Token header.
func CSRF(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFTokenCookieName)
		if err != nil || token == "" {
			token, err = generateCSRFToken()
			if err != nil {
				_ = c.Error(apperror.Internal(err))
				c.Abort()
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CSRFTokenCookieName, token, int(CSRFTokenExpiry.Seconds()), "/", "", secure, true)
		}
		c.Set(csrfCtxKey, token)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		submitted := c.GetHeader(CSRFTokenHeaderName)
		if submitted == "" {
			submitted = c.PostForm(CSRFTokenFormField)
		}
		if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
			_ = c.Error(apperror.Forbidden("Your form expired. Please reload the page and try again."))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CSRFToken returns the token to embed in rendered forms.
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfCtxKey)
}
