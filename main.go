package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brigade-attendance/attendance-backend/audit"
	"github.com/brigade-attendance/attendance-backend/pkg/monitoring"
	"github.com/brigade-attendance/attendance-backend/shared/utils"
	v1 "github.com/brigade-attendance/attendance-backend/v1"
	v1handlers "github.com/brigade-attendance/attendance-backend/v1/handlers"
	v1middleware "github.com/brigade-attendance/attendance-backend/v1/middleware"
	v1models "github.com/brigade-attendance/attendance-backend/v1/models"
	"github.com/brigade-attendance/attendance-backend/v1/sessions"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (optional - fails silently if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	slog.Info("Starting Attendance Backend initialization")

	// Initialize telemetry with the Prometheus exporter
	telemetryShutdown, err := monitoring.Setup(context.Background(), monitoring.Config{
		ServiceName: "attendance-backend",
	})
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	// Initialize GORM database connection
	dbConfig := v1.NewDatabaseConfigFromEnv()
	gormDB, err := v1.ConnectGormDB(dbConfig)
	if err != nil {
		slog.Error("Failed to connect to GORM database", "error", err)
		os.Exit(1)
	}

	// Session cookie store for the public submission gate
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		slog.Warn("SESSION_SECRET not set, generating an ephemeral secret; sessions will not survive restarts")
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			slog.Error("Failed to generate session secret", "error", err)
			os.Exit(1)
		}
		sessionSecret = string(secret)
	}
	sessionBinding := sessions.NewCookieBinding([]byte(sessionSecret))

	// Initialize V1 handlers
	v1Handler := v1handlers.NewV1Handler(gormDB, sessionBinding)

	// Admin mux: everything behind the JWT + authorization chain
	apiMux := http.NewServeMux()
	v1Handler.SetupV1Routes(apiMux)

	// Public mux: the session-gated attendance routes
	publicMux := http.NewServeMux()
	v1Handler.SetupPublicRoutes(publicMux)

	// Setup middleware chain
	corsMiddleware := v1middleware.NewCORSMiddleware()

	// Setup JWT Authentication middleware
	idpBaseURL := os.Getenv("IDP_BASE_URL")
	if idpBaseURL == "" {
		slog.Error("IDP_BASE_URL environment variable is required")
		os.Exit(1)
	}

	// Support separate client IDs for the member and admin portals
	memberPortalClientID := os.Getenv("IDP_MEMBER_PORTAL_CLIENT_ID")
	adminPortalClientID := os.Getenv("IDP_ADMIN_PORTAL_CLIENT_ID")

	if memberPortalClientID == "" && adminPortalClientID == "" {
		slog.Error("At least one of IDP_MEMBER_PORTAL_CLIENT_ID or IDP_ADMIN_PORTAL_CLIENT_ID must be set")
		os.Exit(1)
	}

	var validClientIDs []string
	if memberPortalClientID != "" {
		validClientIDs = append(validClientIDs, memberPortalClientID)
	}
	if adminPortalClientID != "" {
		validClientIDs = append(validClientIDs, adminPortalClientID)
	}

	jwtConfig := v1middleware.JWTAuthConfig{
		JWKSURL:        utils.GetEnvOrDefault("IDP_JWKS_URL", idpBaseURL+"/oauth2/jwks"),
		ExpectedIssuer: utils.GetEnvOrDefault("IDP_TOKEN_URL", idpBaseURL+"/oauth2/token"),
		ValidClientIDs: validClientIDs,
		OrgName:        utils.GetEnvOrDefault("IDP_ORG_NAME", ""),
		Timeout:        10 * time.Second,
	}

	if err := jwtConfig.Validate(); err != nil {
		slog.Error("Invalid JWT configuration", "error", err)
		os.Exit(1)
	}

	jwtAuthMiddleware := v1middleware.NewJWTAuthMiddleware(jwtConfig)

	// Setup Authorization middleware with configurable security policy
	authMode := utils.GetEnvOrDefault("AUTHORIZATION_MODE", "fail_closed")
	strictMode := utils.GetEnvOrDefault("AUTHORIZATION_STRICT_MODE", "false") == "true"

	var authConfig v1middleware.AuthorizationConfig
	switch authMode {
	case "fail_closed":
		authConfig.Mode = v1models.AuthorizationModeFailClosed
	case "fail_open_admin":
		authConfig.Mode = v1models.AuthorizationModeFailOpenAdmin
	case "fail_open_admin_system":
		authConfig.Mode = v1models.AuthorizationModeFailOpenAdminSystem
	default:
		slog.Error("Invalid authorization mode. Valid options: fail_closed, fail_open_admin, fail_open_admin_system", "mode", authMode)
		os.Exit(1)
	}
	authConfig.StrictMode = strictMode

	authorizationMiddleware := v1middleware.NewAuthorizationMiddlewareWithConfig(authConfig)

	// Initialize the audit system (creates the global instance handlers log through)
	auditServiceURL := utils.GetEnvOrDefault("AUDIT_SERVICE_URL", "")
	auditClient := audit.NewClient(auditServiceURL)
	_ = audit.NewAuditMiddleware(auditClient)

	// Apply middleware chain (CORS -> metrics -> JWT Auth -> Authorization) to the admin API mux
	protectedAPIHandler := corsMiddleware(
		monitoring.HTTPMetricsMiddleware(
			jwtAuthMiddleware.AuthenticateJWT(
				authorizationMiddleware.AuthorizeRequest(apiMux),
			),
		),
	)

	// Public attendance routes skip the JWT chain; the session binding is
	// their gate
	publicHandler := corsMiddleware(monitoring.HTTPMetricsMiddleware(publicMux))

	// Create the MAIN (top-level) mux for all incoming traffic
	topLevelMux := http.NewServeMux()

	topLevelMux.Handle("/health", utils.PanicRecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type DBHealth struct {
			Status   string `json:"status"`
			Error    string `json:"error,omitempty"`
			Database string `json:"database,omitempty"`
		}
		type HealthStatus struct {
			Status    string              `json:"status"`
			Service   string              `json:"service"`
			Databases map[string]DBHealth `json:"databases"`
		}

		status := HealthStatus{
			Status:  "healthy",
			Service: "attendance-backend",
			Databases: map[string]DBHealth{
				"v1": {Status: "unknown"},
			},
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if gormDB == nil {
			status.Databases["v1"] = DBHealth{Status: "unhealthy", Error: "GORM connection is nil"}
			status.Status = "unhealthy"
		} else {
			sqlDB, err := gormDB.DB()
			if err != nil {
				status.Databases["v1"] = DBHealth{Status: "unhealthy", Error: fmt.Sprintf("failed to get sql.DB: %v", err)}
				status.Status = "unhealthy"
			} else if err := sqlDB.PingContext(ctx); err != nil {
				status.Databases["v1"] = DBHealth{Status: "unhealthy", Error: err.Error()}
				status.Status = "unhealthy"
			} else {
				status.Databases["v1"] = DBHealth{Status: "healthy", Database: dbConfig.Database}
			}
		}

		statusCode := http.StatusOK
		if status.Status != "healthy" {
			statusCode = http.StatusServiceUnavailable
		}

		utils.RespondWithJSON(w, statusCode, status)
	})))

	topLevelMux.Handle("/metrics", monitoring.Handler())

	// Public attendance routes
	topLevelMux.Handle("/api/v1/attendance/", publicHandler)

	// All other /api/v1/ traffic passes through the full middleware chain
	topLevelMux.Handle("/api/v1/", protectedAPIHandler)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	addr := ":" + port
	server := &http.Server{
		Addr:         addr,
		Handler:      topLevelMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Attendance Backend starting", "port", port, "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start Attendance Backend", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down Attendance Backend...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := telemetryShutdown(ctx); err != nil {
		slog.Error("Failed to shut down telemetry", "error", err)
	}

	// Gracefully close database connection
	if gormDB != nil {
		if sqlDB, err := gormDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("Failed to close database connection", "error", err)
			}
		}
	}

	slog.Info("Attendance Backend exited")
}
