package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

var (
	config *Config
)

func init() {
	var err error

	// Load a local .env file when present
	_ = godotenv.Load()

	// Extract necessary environment variables
	appVersion = os.Getenv("APP_VERSION")

	// Outbound request timeout in seconds
	globalTimeout, err = getEnvInt("TIMEOUT", 30)
	if err != nil {
		log.Fatal(err)
	}

	// Read app configuration
	config, err = readConfig()
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	// Create new Echo object
	e := echo.New()

	// Add basic middleware to log all requests
	e.Use(middleware.Logger())

	// Configure elastic apm logging
	initAPM(e)

	// Sets CORS headers; the browser UI is served from a different origin
	allowOrigins := []string{"*"}
	if config.AllowedOrigin != "" {
		allowOrigins = []string{config.AllowedOrigin}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	// Middleware to provide more control over response status for APM transactions
	// This must go after the Elastic APM middleware
	e.Use(filterError)

	// Wire the core components: one API client, one token owner, one
	// lifecycle dispatcher
	client := newAPIClient(config.APIBase)
	store := newTokenStore(config.TokenFile)
	session := newSessionController(client, store)
	lifecycle := newLifecycleController(client)
	app := newWebApp(client, session, lifecycle)

	// Re-establish the session from a token persisted by a prior run
	session.Resume(context.Background())

	registerRoutes(e, app, session, config.LoginPerSec, config.LoginBurst)

	zapLogger.Info("Starting appointments web client",
		zap.String("version", appVersion),
		zap.String("apiBase", config.APIBase))

	// Start server
	e.Logger.Fatal(e.Start(config.ListenAddr))
}

func registerRoutes(e *echo.Echo, app *webApp, session *SessionController, loginPerSec, loginBurst int) {
	// Adds a heartbeat handler
	e.GET("/heartbeat", heartbeat)

	// Session and registration routes
	e.POST("/session/login", app.login, loginRateLimit(loginPerSec, loginBurst))
	e.POST("/session/logout", app.logout)
	e.GET("/session", app.sessionInfo)
	e.POST("/accounts/register", app.register)

	// View routes require an established session
	views := e.Group("/views", requireSession(session))

	views.GET("/doctors", app.doctors)
	views.GET("/doctors/:id/availability", app.availability)
	views.POST("/doctors/:id/book", app.book)

	views.GET("/appointments", app.appointments)
	views.POST("/appointments/:id/approve", app.appointmentAction(ActionApprove, "Appointment approved!"))
	views.POST("/appointments/:id/reject", app.appointmentAction(ActionReject, "Appointment rejected!"))
	views.POST("/appointments/:id/cancel", app.appointmentAction(ActionCancel, "Appointment cancelled!"))
	views.POST("/appointments/:id/reschedule", app.appointmentAction(ActionReschedule, "Appointment rescheduled! Doctor will need to accept again."))

	views.GET("/admin/doctors", app.adminDoctors)
	views.POST("/admin/doctors/:id/verify", app.adminDoctorAction(true))
	views.POST("/admin/doctors/:id/reject", app.adminDoctorAction(false))
}
