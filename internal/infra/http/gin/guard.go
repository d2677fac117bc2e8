package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostelfinder/internal/app/guard"
	domainuser "hostelfinder/internal/domain/user"
)

const guardUserContextKey = "hostelfinder.guard_user"

// GuardMiddleware admits a request only when its guard grants access. Browser
// routes follow the decision's redirect; API routes get a status code.
type GuardMiddleware struct {
	Guard   *guard.Guard
	Browser bool
}

func (m GuardMiddleware) Handle(c *gin.Context) {
	if m.Guard == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "guard unavailable", "retryable": true})
		return
	}
	decision := m.Guard.Evaluate(c.Request.Context(), tokenFromRequest(c))
	if decision.Granted() {
		c.Set(guardUserContextKey, decision.UserID)
		c.Next()
		return
	}
	if decision.Retryable {
		if decision.Err != nil {
			_ = c.Error(decision.Err)
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session check failed, try again", "retryable": true})
		return
	}
	if m.Browser && decision.Redirect != "" {
		c.Redirect(http.StatusFound, decision.Redirect)
		c.Abort()
		return
	}
	if decision.UserID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth required", "redirect": decision.Redirect})
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin rights required", "redirect": decision.Redirect})
}

// guardedUser returns the user a guard admitted, if any.
func guardedUser(c *gin.Context) domainuser.ID {
	if val, ok := c.Get(guardUserContextKey); ok {
		if id, ok := val.(domainuser.ID); ok {
			return id
		}
	}
	if p, ok := currentPrincipal(c); ok {
		return domainuser.ID(p.ID)
	}
	return ""
}

// GuardFactory adapts g to the Handlers.UserGuard / AdminGuard shape.
func GuardFactory(g *guard.Guard) func(browser bool) gin.HandlerFunc {
	return func(browser bool) gin.HandlerFunc {
		return GuardMiddleware{Guard: g, Browser: browser}.Handle
	}
}
