package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/http/handlers"
	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/geocoder89/crimewatch/internal/observability"
	"github.com/geocoder89/crimewatch/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UserStore is what the auth and user-management handlers need from a
// users Record Store.
type UserStore interface {
	handlers.UserAccounts
	handlers.UserDirectory
}

// Metrics is the slice of observability.Prom the router wires in.
type Metrics interface {
	GinHandleMiddleware() gin.HandlerFunc
	middlewares.DenialRecorder
}

type Deps struct {
	Log    *slog.Logger
	Config config.Config

	Users     UserStore
	News      handlers.NewsFeed
	Incidents handlers.IncidentLog

	Sessions session.Store
	Tokens   interface {
		middlewares.TokenVerifier
		handlers.SessionIssuer
	}

	Predictor handlers.Predictor
	Ping      handlers.Pinger

	Metrics  Metrics
	Gatherer prometheus.Gatherer
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.SecurityHeaders(d.Config.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	if d.Metrics != nil {
		r.Use(d.Metrics.GinHandleMiddleware())
	}

	var denials middlewares.DenialRecorder
	if d.Metrics != nil {
		denials = d.Metrics
	}
	gate := middlewares.NewSessionGate(d.Tokens, d.Sessions, denials, d.Log)
	r.Use(gate.LoadSession())
	r.Use(middlewares.RequestLogger(d.Log))

	// health
	health := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// auth
	authLimiter := middlewares.NewRateLimiter(d.Config.LoginRateLimit, d.Config.LoginRateWindow)
	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions, d.Tokens, d.Config, d.Log)

	r.GET("/", handlers.Page("login"))
	r.GET("/login", handlers.Page("login"))
	r.GET("/signup", handlers.Page("signup"))
	r.POST("/login", authLimiter.Limit(middlewares.KeyByIP, middlewares.TooManyFlash(middlewares.LoginPath)), authHandler.Login)
	r.POST("/signup", authLimiter.Limit(middlewares.KeyByIP, middlewares.TooManyFlash("/signup")), authHandler.SignUp)
	r.GET("/logout", gate.RequireSession(), authHandler.Logout)

	// static pages
	r.GET("/about", gate.RequireSession(), handlers.Page("about"))
	r.GET("/status", gate.RequireSession(), handlers.Page("status"))

	// users (admin)
	usersHandler := handlers.NewUsersHandler(d.Users, d.Sessions, d.Log)
	admin := r.Group("", gate.RequireAdmin())
	{
		admin.GET("/manage_users", usersHandler.ManageUsers)
		admin.POST("/update_user_role", usersHandler.UpdateRole)
		admin.POST("/delete_user", usersHandler.DeleteUser)
	}

	// news
	newsHandler := handlers.NewNewsHandler(d.News)
	r.GET("/home", gate.RequireSession(), newsHandler.Home)
	r.POST("/news/", gate.RequireAdmin(), newsHandler.Create)

	// incidents
	incidentsHandler := handlers.NewIncidentsHandler(d.Incidents)
	incidents := r.Group("/incident")
	{
		incidents.GET("/report_incident", gate.RequireSession(), handlers.Page("report_incident"))
		incidents.POST("/report_incident", gate.RequireSession(), incidentsHandler.Report)
		incidents.GET("/reported_incidents", gate.RequireAdmin(), incidentsHandler.Reported)
		incidents.GET("/dashboard", gate.RequireAdmin(), incidentsHandler.Dashboard)
		incidents.POST("/update_status/:id", gate.RequireAdmin(), middlewares.RequireJSON(), incidentsHandler.UpdateStatus)
	}
	r.POST("/resolve/:id", gate.RequireAdmin(), incidentsHandler.Resolve)

	// prediction
	predictLimiter := middlewares.NewRateLimiter(d.Config.PredictRateLimit, time.Minute)
	predictHandler := handlers.NewPredictHandler(d.Predictor, d.Log)
	r.POST("/predict",
		gate.RequireSession(),
		predictLimiter.Limit(middlewares.KeyByUserOrIP, middlewares.TooManyJSON),
		middlewares.MaxBodyBytes(d.Config.MaxUploadBytes),
		predictHandler.Predict,
	)

	return r
}
