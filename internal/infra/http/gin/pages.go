package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostelfinder/internal/app/guard"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

type PagesHTTP interface {
	Root(c *gin.Context)
	Login(c *gin.Context)
	NotFound(c *gin.Context)
}

// PagesHandler owns the browser routes that only redirect.
type PagesHandler struct {
	Guard *guard.Guard
}

func (h PagesHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusFound, loginPath)
}

// Login sends visitors that already hold a session on to the dashboard.
func (h PagesHandler) Login(c *gin.Context) {
	if h.Guard != nil {
		if token := tokenFromRequest(c); token != "" && h.Guard.Evaluate(c.Request.Context(), token).Granted() {
			c.Redirect(http.StatusFound, dashboardPath)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

func (h PagesHandler) NotFound(c *gin.Context) {
	c.Redirect(http.StatusFound, loginPath)
}

var _ PagesHTTP = (*PagesHandler)(nil)
