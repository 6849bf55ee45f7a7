package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"phlebcare-backend/internal/availability"
	"phlebcare-backend/internal/cache"
	"phlebcare-backend/internal/checkout"
	"phlebcare-backend/internal/config"
	"phlebcare-backend/internal/coupon"
	"phlebcare-backend/internal/geo"
	"phlebcare-backend/internal/handlers"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/internal/notify"
	"phlebcare-backend/internal/payment"
	"phlebcare-backend/internal/pricing"
	"phlebcare-backend/internal/routes"
	"phlebcare-backend/pkg/logging"
	"phlebcare-backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	logger := logging.Init("phlebcare-api")
	cfg := config.Load()

	db, err := config.ConnectDB(cfg.DBDSN)
	if err != nil {
		logger.Error("database startup failed", "error", err)
		os.Exit(1)
	}

	var distanceCache cache.Cache
	if cfg.RedisAddr != "" {
		distanceCache = cache.NewRedisCache(cfg.RedisAddr, "phlebcare")
	}
	resolver := geo.NewMatrixClient(cfg.DistanceAPIURL, cfg.DistanceAPIKey, distanceCache, logger)

	notifier, err := notify.NewDispatcher(cfg.FirebaseCredentials, logger)
	if err != nil {
		logger.Error("firebase startup failed", "error", err)
		os.Exit(1)
	}

	gateways := map[string]payment.Gateway{
		models.CheckoutTypeMidtrans: payment.NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransClientKey, cfg.MidtransProduction),
		models.CheckoutTypeTelr:     payment.NewTelrGateway(cfg.TelrStoreID, cfg.TelrAuthKey, cfg.TelrAPIURL, cfg.TelrTestMode),
	}

	catalog := pricing.NewCatalog(db)
	ledger := coupon.NewLedger(db)
	store := availability.NewStore(db)
	matcher := availability.NewMatcher(db, resolver, logger)
	vault := payment.NewTokenVault(db)

	orch := checkout.NewOrchestrator(db, gateways, catalog, ledger, matcher, vault, notifier,
		checkout.Options{ReleaseOnAssignFailure: cfg.ReleaseOnAssignFailure}, logger)

	r := gin.Default()

	routes.SetupRoutes(r, routes.Handlers{
		Auth:         handlers.NewAuthHandler(db),
		Catalog:      handlers.NewCatalogHandler(db, catalog),
		Checkout:     handlers.NewCheckoutHandler(orch),
		Order:        handlers.NewOrderHandler(db),
		Payment:      handlers.NewPaymentHandler(db, orch, gateways, vault, notifier, logger),
		Pleb:         handlers.NewPlebHandler(db, matcher, notifier),
		Availability: handlers.NewAvailabilityHandler(db, store),
	})

	r.GET("/ping", func(c *gin.Context) {
		utils.APIResponse(c, 200, true, "Server OK!", nil)
	})

	logger.Info("server listening", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
