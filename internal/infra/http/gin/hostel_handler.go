package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostelfinder/internal/app/dto"
	hostelapp "hostelfinder/internal/app/handlers/hostels"
	"hostelfinder/internal/app/queries"
	domainhostels "hostelfinder/internal/domain/hostels"
)

type HostelHTTP interface {
	Catalog(c *gin.Context)
	RoomKinds(c *gin.Context)
}

// HostelHandler serves the signed-in catalog used by the dashboard.
type HostelHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h HostelHandler) Catalog(c *gin.Context) {
	criteria, err := domainhostels.ParseCriteria(c.Query("q"), c.Query("price_min"), c.Query("price_max"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	result, err := queries.Ask[hostelapp.ListHostelsQuery, dto.HostelCatalog](c.Request.Context(), h.Queries, hostelapp.ListHostelsQuery{Criteria: criteria})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostelHandler) RoomKinds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": dto.RoomKindOptions()})
}

var _ HostelHTTP = (*HostelHandler)(nil)
