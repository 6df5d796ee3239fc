package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/suiticket/internal/http/handlers"
	"github.com/geocoder89/suiticket/internal/http/middlewares"
	"github.com/geocoder89/suiticket/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "suiticket-api"

// Deps is everything the router mounts. Nil Prom/Gatherer disable /metrics.
type Deps struct {
	Env             string
	Log             *slog.Logger
	Prom            *observability.Prom
	Gatherer        prometheus.Gatherer
	Sessions        middlewares.TokenVerifier
	Health          *handlers.HealthHandler
	Network         *handlers.NetworkHandler
	Wallet          *handlers.WalletHandler
	Panels          *handlers.PanelsHandler
	Transactions    *handlers.TransactionsHandler
	CORSOrigins     []string
	RateLimitPerMin int
	MaxBodyBytes    int64
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// public
	r.GET("/healthz", d.Health.Healthz)
	r.GET("/readyz", d.Health.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/swagger", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)
	r.GET("/network", d.Network.Get)

	limit := d.RateLimitPerMin
	if limit <= 0 {
		limit = 120
	}
	connectLimiter := middlewares.NewRateLimiter(limit, time.Minute)
	sessionLimiter := middlewares.NewRateLimiter(limit, time.Minute)

	r.POST("/wallet/connect", connectLimiter.RateLimiterMiddleware(middlewares.KeyByIP), d.Wallet.Connect)

	// session required
	authMW := middlewares.NewAuthMiddleware(d.Sessions)
	s := r.Group("/")
	s.Use(authMW.RequireSession())
	s.Use(sessionLimiter.RateLimiterMiddleware(middlewares.KeyByAddressOrIP))
	{
		s.POST("/wallet/disconnect", d.Wallet.Disconnect)

		s.GET("/organizer", d.Panels.LoadOrganizer)
		s.POST("/organizer/events", d.Panels.CreateEvent)

		s.GET("/buyer", d.Panels.LoadBuyer)
		s.POST("/buyer/events/:id/tickets", d.Panels.MintTicket)

		s.DELETE("/panel/error", d.Panels.DismissError)

		s.GET("/transactions", d.Transactions.List)
	}

	return r
}
