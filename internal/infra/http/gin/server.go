package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hostelfinder/internal/infra/config"
	"hostelfinder/internal/infra/obs"
)

type Handlers struct {
	Pages          PagesHTTP
	Auth           AuthHTTP
	Session        SessionHTTP
	Hostels        HostelHTTP
	AdminHostels   AdminHostelHTTP
	AuthMiddleware gin.HandlerFunc
	// UserGuard and AdminGuard build the guard middleware for browser (true)
	// or API (false) routes.
	UserGuard  func(browser bool) gin.HandlerFunc
	AdminGuard func(browser bool) gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(cfg.CORSOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Location", obs.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.Pages != nil {
		router.GET("/", h.Pages.Root)
		router.GET(loginPath, h.Pages.Login)
		router.NoRoute(h.Pages.NotFound)
	}
	if h.Hostels != nil {
		router.GET(dashboardPath, chain(guardOf(h.UserGuard, true), h.Hostels.Catalog)...)
	}
	if h.AdminHostels != nil {
		router.GET("/admin", chain(guardOf(h.AdminGuard, true), h.AdminHostels.List)...)
	}

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Session != nil {
		api.GET("/session/watch", h.Session.Watch)
	}
	if h.Hostels != nil {
		api.GET("/hostels", chain(guardOf(h.UserGuard, false), h.Hostels.Catalog)...)
		api.GET("/room-types", h.Hostels.RoomKinds)
	}
	if h.AdminHostels != nil {
		admin := api.Group("/admin/hostels")
		if mw := guardOf(h.AdminGuard, false); mw != nil {
			admin.Use(mw)
		}
		admin.GET("", h.AdminHostels.List)
		admin.POST("", h.AdminHostels.Create)
		admin.GET("/:id", h.AdminHostels.Get)
		admin.PUT("/:id", h.AdminHostels.Update)
		admin.DELETE("/:id", h.AdminHostels.Delete)
	}
	return router
}

func guardOf(factory func(bool) gin.HandlerFunc, browser bool) gin.HandlerFunc {
	if factory == nil {
		return nil
	}
	return factory(browser)
}

func chain(mw gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{mw, handler}
}

func allowedOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
