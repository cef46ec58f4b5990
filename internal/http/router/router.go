package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/config"
	"github.com/travelportal/quote-api/internal/database"
	"github.com/travelportal/quote-api/internal/http/handler"
	"github.com/travelportal/quote-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/travelportal/quote-api/docs" // registers the swagger spec
)

const healthCheckTimeout = 3 * time.Second

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	authMiddleware      *auth.Middleware
	rateLimiter         *middleware.RateLimiter
	agencyQuoteHandler  *handler.AgencyQuoteHandler
	adminQuoteHandler   *handler.AdminQuoteHandler
	notificationHandler *handler.NotificationHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	agencyQuoteHandler *handler.AgencyQuoteHandler,
	adminQuoteHandler *handler.AdminQuoteHandler,
	notificationHandler *handler.NotificationHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		authMiddleware:      authMiddleware,
		rateLimiter:         rateLimiter,
		agencyQuoteHandler:  agencyQuoteHandler,
		adminQuoteHandler:   adminQuoteHandler,
		notificationHandler: notificationHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(middleware.CapturePrincipal)
		r.Use(rt.rateLimiter.LimitByPrincipal)

		r.Route("/agency/quotes", func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireRole(auth.RoleAgency))
			r.Get("/", rt.agencyQuoteHandler.List)
			r.Get("/{id}", rt.agencyQuoteHandler.Get)
			r.Post("/{id}/accept", rt.agencyQuoteHandler.Accept)
			r.Post("/{id}/decline", rt.agencyQuoteHandler.Decline)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireAdmin)

			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", rt.adminQuoteHandler.List)
				r.Get("/{id}", rt.adminQuoteHandler.Get)
				r.Post("/{id}/review", rt.adminQuoteHandler.StartReview)
				r.Post("/{id}/offers", rt.adminQuoteHandler.MakeOffer)
				r.Post("/{id}/revoke", rt.adminQuoteHandler.RevokeOffer)
				r.Post("/{id}/payment-details", rt.adminQuoteHandler.SendPaymentDetails)
				r.Get("/{id}/contract", rt.adminQuoteHandler.DownloadContract)
				r.Post("/{id}/confirm", rt.adminQuoteHandler.Confirm)
				r.Post("/{id}/reject", rt.adminQuoteHandler.Reject)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", rt.notificationHandler.List)
				r.Post("/{id}/retry", rt.notificationHandler.Retry)
			})
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, rt.db)
	if err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"service": "database",
			"error":   err.Error(),
		})
		return
	}
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]interface{}{}
	status := http.StatusOK
	if err := database.HealthCheck(ctx, rt.db); err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = map[string]string{"status": "unhealthy", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]string{"status": "healthy"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeHealth(w, status, map[string]interface{}{"status": overall, "checks": checks})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
