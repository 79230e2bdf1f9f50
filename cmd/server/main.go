package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"

	"studio-api/internal/api"
	"studio-api/internal/config"
	"studio-api/internal/database"
	"studio-api/internal/services"
	"studio-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging(cfg.LogLevel)

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	secret := cfg.SessionSecret
	if secret == "" {
		secret = randomSecret()
		logging.Warnf("SESSION_SECRET is not set, using a random secret; sessions will not survive a restart")
	}
	sessions, err := services.NewSessionIssuer(secret, cfg.SessionTTL)
	if err != nil {
		log.Fatal("Failed to initialize sessions:", err)
	}

	if cfg.BrevoAPIKey == "" {
		logging.Warnf("BREVO_API_KEY is not set, sign-in codes cannot be emailed")
	}
	sender := services.NewBrevoService(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName)
	otp := services.NewOTPService(database.RedisClient, database.DB, cfg.OTPRetention)
	auth := services.NewAuthService(otp, sender, sessions, services.AuthConfig{
		ServiceName:    cfg.ServiceName,
		CodeTTL:        cfg.CodeTTL(),
		ResendCooldown: cfg.ResendCooldown(),
	})
	ledger := services.NewLedgerService(database.DB, services.NewWebhookNotifier(cfg.WebhookCallbackURL, cfg.WebhookSecret))

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, api.Deps{
		Auth:                 auth,
		Ledger:               ledger,
		AdminAPIKey:          cfg.AdminAPIKey,
		PaymentWebhookSecret: cfg.PaymentWebhookSecret,
		ServiceName:          cfg.ServiceName,
	})

	// Start server
	port := cfg.Port
	logging.Infof("Starting server on port %s", port)

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal("Failed to generate session secret:", err)
	}
	return hex.EncodeToString(buf)
}
