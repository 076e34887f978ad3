package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/punchcard/backend/internal/config"
	"github.com/punchcard/backend/internal/crm"
	"github.com/punchcard/backend/internal/handler"
	"github.com/punchcard/backend/internal/middleware"
	"github.com/punchcard/backend/internal/passkit"
	"github.com/punchcard/backend/internal/push"
	"github.com/punchcard/backend/internal/repository"
	"github.com/punchcard/backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	// Pass builder for the wallet card
	passBuilder := &passkit.Builder{
		PassTypeIdentifier: cfg.Wallet.PassTypeIdentifier,
		TeamIdentifier:     cfg.Wallet.TeamIdentifier,
		OrganizationName:   cfg.Wallet.OrganizationName,
		WebServiceURL:      cfg.Wallet.WebServiceURL,
		Signer:             passkit.NoopSigner{},
	}

	// Create services
	pointsPolicy := service.NewPointsPolicy(repo)
	tierSvc := service.NewTierService(repo)
	promotionSvc := service.NewPromotionService(repo)
	walletSvc := service.NewWalletService(repo, passBuilder)
	outboxSvc := service.NewOutboxService(repo)
	memberSvc := service.NewMemberService(repo, walletSvc, outboxSvc)
	txSvc := service.NewTransactionService(repo, pointsPolicy, promotionSvc, tierSvc, walletSvc, outboxSvc)

	// Wake-up push transport
	var pusher push.Client = push.NopClient{}
	if cfg.APNs.Enabled {
		apnsClient, err := push.NewAPNsClient(cfg.APNs, cfg.Wallet.PassTypeIdentifier)
		if err != nil {
			log.Printf("Warning: APNs disabled, failed to create client: %v", err)
		} else {
			pusher = apnsClient
		}
	}

	// CRM sync is best-effort and optional
	var crmSyncer service.CRMSyncer
	if cfg.CRM.Enabled {
		crmSyncer = crm.NewClient(cfg.CRM.BaseURL, cfg.CRM.APIKey, crm.NewFieldCache())
	}

	outboxWorker := service.NewOutboxWorker(
		repo, pusher, crmSyncer,
		config.OutboxPollInterval, config.OutboxBatchSize, config.OutboxMaxAttempts,
	)

	// Create handlers
	h := handler.New(cfg, memberSvc, txSvc, promotionSvc, walletSvc, repo)
	walletHandler := handler.NewWalletHandler(cfg, walletSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
	}))

	// Health and metrics
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Wallet web-service protocol. The pass token is the auth; every
	// call is recorded to the audit log.
	wallet := app.Group("/wallet/v1", middleware.WalletAudit(repo))
	wallet.Post("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier/:serialNumber", walletHandler.RegisterDevice)
	wallet.Delete("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier/:serialNumber", walletHandler.UnregisterDevice)
	wallet.Get("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier", walletHandler.ListUpdatedSerials)
	wallet.Get("/passes/:passTypeIdentifier/:serialNumber", walletHandler.GetPass)
	wallet.Post("/log", walletHandler.Log)

	// Internal API behind the API key
	api := app.Group("/api", middleware.APIKey(cfg))

	api.Post("/transactions", h.RecordTransaction)

	api.Post("/members", h.CreateMember)
	api.Get("/members/:member_id", h.GetMember)
	api.Get("/members/:member_id/transactions", h.GetMemberTransactions)
	api.Get("/members/:member_id/tier-history", h.GetMemberTierHistory)
	api.Post("/members/:member_id/deactivate", h.DeactivateMember)
	api.Post("/members/:member_id/wallet-pass", h.CreateWalletPass)

	api.Get("/promotions", h.ListPromotions)
	api.Post("/promotions", h.CreatePromotion)
	api.Post("/promotions/:promotion_id/deactivate", h.DeactivatePromotion)
	api.Post("/promotions/:promotion_id/assign", h.AssignPromotion)

	api.Get("/settings", h.GetSettings)
	api.Put("/settings/:key", h.SetSetting)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go outboxWorker.Start(ctx)

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server started on port %s", cfg.Server.Port)

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
