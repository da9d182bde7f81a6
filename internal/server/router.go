// Package server wires repositories, services and handlers into the HTTP router.
package server

import (
	"net/http"

	"tubeauth/internal/media"
	"tubeauth/internal/metrics"
	"tubeauth/internal/middleware"
	"tubeauth/internal/modules/auth"
	"tubeauth/internal/modules/users"
	"tubeauth/internal/pkg/apperr"
	"tubeauth/internal/pkg/cookie"
	jwtsvc "tubeauth/internal/pkg/jwt"
	"tubeauth/internal/pkg/response"
	"tubeauth/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var errRouteNotFound = apperr.New(apperr.KindNotFound, "Route not found")

type Deps struct {
	Users       *repository.UserRepository
	Media       media.Store
	Tokens      *jwtsvc.Service
	Cookies     cookie.Policy
	CORSOrigins []string

	// Registry defaults to a fresh registry.
	Registry *prometheus.Registry

	// MetricsToken, when set, is required as a bearer token on /metrics.
	MetricsToken      string
	MetricsAllowedIPs []string

	// StaticDir is served under StaticBase when both are set (local media).
	StaticDir  string
	StaticBase string
}

func NewRouter(d Deps) *gin.Engine {
	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	collector := metrics.NewCollector(reg)

	authService := auth.NewService(d.Users, d.Media, d.Tokens, collector)
	authHandler := auth.NewHandler(authService, d.Cookies)
	usersService := users.NewService(d.Users, d.Media)
	usersHandler := users.NewHandler(usersService)
	authenticator := middleware.NewAuthenticator(d.Tokens, d.Users)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(collector.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "OK")
	})
	metricsHandlers := []gin.HandlerFunc{gin.WrapH(metrics.Handler(reg))}
	if d.MetricsToken != "" {
		metricsHandlers = append([]gin.HandlerFunc{middleware.InternalTokenAuth(d.MetricsToken, d.MetricsAllowedIPs)}, metricsHandlers...)
	}
	r.GET("/metrics", metricsHandlers...)
	if d.StaticDir != "" && d.StaticBase != "" {
		r.Static(d.StaticBase, d.StaticDir)
	}

	v1 := r.Group("/api/v1")
	{
		public := v1.Group("/users")
		authHandler.RegisterPublicRoutes(public)

		protected := v1.Group("/users")
		protected.Use(middleware.JWTAuth(authenticator, collector))
		{
			authHandler.RegisterProtectedRoutes(protected)
			usersHandler.RegisterProtectedRoutes(protected)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, errRouteNotFound)
	})

	return r
}
