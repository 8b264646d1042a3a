package web

import (
	"net/http"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/session"

	"github.com/gin-gonic/gin"
)

const sseHeartbeat = 25 * time.Second

// sessionEvents streams the browser session's state to guarded pages. When
// the session stops being signed in, for example after sign-out in another
// tab, it sends a redirect event with the sign-in URL for the page and ends.
func (h *Handler) sessionEvents(c *gin.Context) {
	ctx := c.Request.Context()
	sid := session.IDFromContext(ctx)
	returnTo := session.SafeReturnPath(c.Query("path"))

	updates, cancel := h.store.Watch(sid)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// decide on the current state first; updates only carry changes
	if h.emitSession(c, h.store.Snapshot(ctx, sid), returnTo) {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if h.emitSession(c, snap, returnTo) {
				return
			}
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// emitSession writes one snapshot and reports whether the stream is done.
func (h *Handler) emitSession(c *gin.Context, snap domain.Session, returnTo string) bool {
	if session.Decide(snap) == session.DecisionRedirect {
		c.SSEvent("redirect", session.LoginURL(returnTo))
		c.Writer.Flush()
		return true
	}
	c.SSEvent("session", snap.State.String())
	c.Writer.Flush()
	return false
}
