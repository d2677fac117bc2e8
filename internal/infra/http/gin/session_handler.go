package ginserver

import (
	"io"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"hostelfinder/internal/app/guard"
)

type SessionHTTP interface {
	Watch(c *gin.Context)
}

// SessionHandler streams guard decisions as server-sent events so a page can
// leave as soon as its session ends.
type SessionHandler struct {
	User      *guard.Guard
	Admin     *guard.Guard
	Heartbeat time.Duration
}

type decisionEvent struct {
	Outcome   guard.Outcome `json:"outcome"`
	Redirect  string        `json:"redirect,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func newDecisionEvent(d guard.Decision) decisionEvent {
	ev := decisionEvent{Outcome: d.Outcome, Redirect: d.Redirect, Retryable: d.Retryable}
	if d.Err != nil {
		ev.Error = "session check failed"
	}
	return ev
}

func (h SessionHandler) Watch(c *gin.Context) {
	g := h.User
	if admin, _ := strconv.ParseBool(c.Query("admin")); admin {
		g = h.Admin
	}
	if g == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "guard unavailable"})
		return
	}
	decisions, stop := g.Watch(c.Request.Context(), tokenFromRequest(c))
	defer stop()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case d, ok := <-decisions:
			if !ok {
				return false
			}
			c.SSEvent("decision", newDecisionEvent(d))
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}

var _ SessionHTTP = (*SessionHandler)(nil)
