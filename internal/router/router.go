// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sampledhq/sampled-backend/internal/config"
	"github.com/sampledhq/sampled-backend/internal/handlers"
	"github.com/sampledhq/sampled-backend/internal/middleware"
	"github.com/sampledhq/sampled-backend/internal/services"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	eventService := services.NewEventService(db)
	storageService, _ := services.NewStorageService(cfg)
	ledgerService := services.NewLedgerService(db, eventService)
	walletService := services.NewWalletService(db, cfg, ledgerService, eventService)
	catalogService := services.NewCatalogService(db, ledgerService, eventService)
	authService := services.NewAuthService(db, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	sampleHandler := handlers.NewSampleHandler(catalogService, storageService)
	licenseHandler := handlers.NewLicenseHandler(ledgerService)
	walletHandler := handlers.NewWalletHandler(walletService)
	adminHandler := handlers.NewAdminHandler(ledgerService, catalogService)
	eventHandler := handlers.NewEventHandler(eventService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
		}
		v1.GET("/auth/me", middleware.AuthRequired(), authHandler.GetProfile)

		// Sample catalog routes
		samples := v1.Group("/samples")
		{
			samples.GET("", sampleHandler.GetSamples)
			samples.GET("/mine", middleware.AuthRequired(), sampleHandler.GetMySamples)
			samples.GET("/purchases", middleware.AuthRequired(), sampleHandler.GetMyPurchases)
			samples.GET("/stats", middleware.AuthRequired(), sampleHandler.GetMyStats)
			samples.POST("/withdraw-earnings", middleware.AuthRequired(), sampleHandler.WithdrawEarnings)
			samples.POST("/assets", middleware.AuthRequired(), middleware.UploadRateLimit(), sampleHandler.UploadAsset)
			samples.POST("", middleware.AuthRequired(), middleware.UploadRateLimit(), sampleHandler.UploadSample)

			samples.GET("/:id", sampleHandler.GetSample)
			samples.PUT("/:id/price", middleware.AuthRequired(), sampleHandler.UpdatePrice)
			samples.DELETE("/:id", middleware.AuthRequired(), sampleHandler.DeactivateSample)
			samples.POST("/:id/purchase", middleware.AuthRequired(), middleware.TransferRateLimit(), sampleHandler.PurchaseSample)
			samples.POST("/:id/licenses", middleware.AuthRequired(), middleware.TransferRateLimit(), sampleHandler.PurchaseLicense)

			samples.GET("/:id/licenses", licenseHandler.GetSampleLicenses)
			samples.GET("/:id/license-info", licenseHandler.GetSampleLicenseInfo)
			samples.GET("/:id/exclusive", licenseHandler.GetExclusiveStatus)
			samples.GET("/:id/has-license", licenseHandler.HasLicense)
			samples.GET("/:id/my-license", middleware.AuthRequired(), licenseHandler.GetMyLicenseForSample)
		}

		// License ledger routes
		licenses := v1.Group("/licenses")
		{
			licenses.GET("/count", licenseHandler.GetLicenseCount)
			licenses.GET("/mine", middleware.AuthRequired(), licenseHandler.GetMyLicenses)
			licenses.GET("/royalties", middleware.AuthRequired(), licenseHandler.GetRoyalties)
			licenses.GET("/owner/:owner_id", licenseHandler.GetLicensesByOwner)
			licenses.POST("/mint", middleware.AuthRequired(), middleware.TransferRateLimit(), licenseHandler.Mint)
			licenses.POST("/withdraw-royalties", middleware.AuthRequired(), licenseHandler.WithdrawRoyalties)

			licenses.GET("/:id", licenseHandler.GetLicense)
			licenses.POST("/:id/transfer", middleware.AuthRequired(), middleware.TransferRateLimit(), licenseHandler.Transfer)
		}

		// Wallet routes
		wallet := v1.Group("/wallet")
		wallet.Use(middleware.AuthRequired())
		{
			wallet.GET("", walletHandler.GetWallet)
			wallet.POST("/deposit", walletHandler.CreateDeposit)
			wallet.POST("/deposit/confirm", walletHandler.ConfirmDeposit)
			wallet.POST("/payout", walletHandler.RequestPayout)
		}

		// Event feed for off-chain indexers
		v1.GET("/events", eventHandler.GetEvents)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/marketplace", adminHandler.GetMarketplace)
			admin.PUT("/marketplace", adminHandler.SetMarketplace)
			admin.GET("/stats", adminHandler.GetStats)
		}
	}

	return r
}
