package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/app"
	iauth "github.com/esalinasbarros/zmartboard/internal/auth"
	"github.com/esalinasbarros/zmartboard/internal/handlers"
	"github.com/esalinasbarros/zmartboard/internal/middleware"
	"github.com/esalinasbarros/zmartboard/internal/services"
	"github.com/esalinasbarros/zmartboard/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, mailer mail.Mailer) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.NoRoute(middleware.NotFoundHandler)

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Services
	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	memberSvc, err := services.NewMembershipService(db, auditSvc)
	if err != nil {
		return nil, err
	}
	verificationSvc, err := services.NewVerificationService(db, mailer)
	if err != nil {
		return nil, err
	}
	userSvc, err := services.NewUserService(db, jwt, verificationSvc, auditSvc)
	if err != nil {
		return nil, err
	}
	projectSvc, err := services.NewProjectService(db, memberSvc, auditSvc)
	if err != nil {
		return nil, err
	}
	invitationSvc, err := services.NewInvitationService(db, memberSvc, mailer, auditSvc)
	if err != nil {
		return nil, err
	}
	boardSvc, err := services.NewBoardService(db, memberSvc, auditSvc)
	if err != nil {
		return nil, err
	}
	columnSvc, err := services.NewColumnService(db, memberSvc, auditSvc)
	if err != nil {
		return nil, err
	}
	taskSvc, err := services.NewTaskService(db, memberSvc, auditSvc)
	if err != nil {
		return nil, err
	}
	entrySvc, err := services.NewTimeEntryService(db, memberSvc, taskSvc)
	if err != nil {
		return nil, err
	}

	// Handlers
	authHandler, err := handlers.NewAuthHandler(userSvc)
	if err != nil {
		return nil, err
	}
	userHandler, err := handlers.NewUserHandler(userSvc, memberSvc)
	if err != nil {
		return nil, err
	}
	projectHandler, err := handlers.NewProjectHandler(projectSvc, memberSvc)
	if err != nil {
		return nil, err
	}
	invitationHandler, err := handlers.NewInvitationHandler(invitationSvc)
	if err != nil {
		return nil, err
	}
	boardHandler, err := handlers.NewBoardHandler(boardSvc, columnSvc)
	if err != nil {
		return nil, err
	}
	taskHandler, err := handlers.NewTaskHandler(taskSvc, entrySvc)
	if err != nil {
		return nil, err
	}
	auditHandler, err := handlers.NewAuditHandler(auditSvc, memberSvc)
	if err != nil {
		return nil, err
	}

	registerAuthRoutes(r, authHandler, jwt)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerUserRoutes(api, userHandler)
	registerProjectRoutes(api, projectHandler, invitationHandler, boardHandler)
	registerBoardRoutes(api, boardHandler, taskHandler)
	registerTaskRoutes(api, taskHandler)
	registerAuditRoutes(api, auditHandler)

	return r, nil
}
