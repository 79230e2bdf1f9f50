package api

import (
	"net/http"

	"studio-api/internal/middleware"
	"studio-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Deps are the services and secrets the HTTP layer is built from
type Deps struct {
	Auth                 *services.AuthService
	Ledger               *services.LedgerService
	AdminAPIKey          string
	PaymentWebhookSecret string
	ServiceName          string
}

// Handler serves the studio API
type Handler struct {
	auth   *services.AuthService
	ledger *services.LedgerService
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, deps Deps) {
	registerValidators()

	h := &Handler{auth: deps.Auth, ledger: deps.Ledger}
	sessionAuth := middleware.SessionAuth(deps.Auth.Sessions())

	api := r.Group("/api")
	{
		// Passcode sign-in (public)
		auth := api.Group("/auth")
		{
			auth.POST("/send-code", h.SendCode)
			auth.POST("/verify-code", h.VerifyCode)
		}

		api.GET("/plans", h.ListPlans)
		api.GET("/me", sessionAuth, h.Me)

		billing := api.Group("/billing")
		billing.Use(sessionAuth)
		{
			billing.POST("/trial", h.StartTrial)
			billing.POST("/cancel", h.CancelSubscription)
			billing.POST("/purchases", h.CreatePurchase)
			billing.GET("/purchases", h.ListPurchases)
		}

		credits := api.Group("/credits")
		credits.Use(sessionAuth)
		{
			credits.POST("/spend", h.SpendCredits)
		}

		// Payment processor callbacks (signed body)
		callbacks := api.Group("/callbacks")
		callbacks.Use(middleware.SignatureAuth(deps.PaymentWebhookSecret))
		{
			callbacks.POST("/payment", h.PaymentCallback)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(deps.AdminAPIKey))
		{
			admin.GET("/purchases", h.AdminListPurchases)
			admin.GET("/revenue", h.AdminRevenue)
			admin.POST("/credits/grant", h.AdminGrantCredits)
			admin.POST("/purchases/:id/complete", h.AdminCompletePurchase)
			admin.POST("/purchases/:id/refund", h.AdminRefundPurchase)
		}
	}

	// Health check
	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "studio-api"
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
		})
	})
}
