package app

import (
	"net/http"

	"vaultyield-backend/internal/auth"
	"vaultyield-backend/internal/blockchain"
	"vaultyield-backend/internal/config"
	"vaultyield-backend/internal/database"
	"vaultyield-backend/internal/health"
	"vaultyield-backend/internal/investments"
	"vaultyield-backend/internal/middleware"
	"vaultyield-backend/internal/plans"
	"vaultyield-backend/internal/transactions"
	"vaultyield-backend/internal/user"
	"vaultyield-backend/internal/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. Returns the DB and Redis handles for startup checks.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
	}))

	// Session (Redis); the client is shared with the health marker
	sessionCfg := middleware.SessionConfig{
		Secret:       cfg.SessionSecret,
		RedisURL:     cfg.RedisURL,
		IsProduction: cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		if err := plans.Seed(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health
	healthHandlers := &health.Handlers{Rdb: rdb, EthRPCURL: cfg.EthRPCURL}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			healthHandlers.DB = sqlDB
		}
	}
	app.Get("/health/json", healthHandlers.JSON)

	// Auth + registration (no auth middleware)
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db == nil {
		return app, db, rdb, nil
	}

	// Blockchain gateway. The USDT client needs a node and the treasury key;
	// leave it nil otherwise and let deposit/withdraw surface the gap.
	var gateway blockchain.Gateway
	if cfg.EthRPCURL != "" && cfg.TreasuryPrivateKey != "" {
		client, err := blockchain.NewUSDTClient(
			cfg.EthRPCURL, cfg.USDTContractAddress, cfg.TreasuryPrivateKey,
			cfg.ChainID, cfg.SendConfirmTimeout,
		)
		if err != nil {
			return nil, nil, nil, err
		}
		gateway = client
	}

	walletService := &wallet.Service{DB: db}

	// Registration + profile
	userService := &user.Service{DB: db, Wallets: walletService}
	userHandlers := &user.Handlers{Service: userService, Rdb: rdb, Config: sessionCfg}
	authGroup.Post("/register", userHandlers.Register)
	profileGroup := app.Group("/api/v1/profile", middleware.RequireAuth())
	profileGroup.Get("/referrals", userHandlers.GetReferrals)
	profileGroup.Get("/referral-code", userHandlers.GetReferralCode)

	// Plans
	planService := &plans.Service{DB: db}
	planHandlers := &plans.Handlers{Service: planService}
	app.Get("/api/v1/plans", planHandlers.ListPlans)
	app.Post("/api/v1/plans", middleware.RequireAuth(), middleware.RequireAdmin(), planHandlers.CreatePlan)

	// Wallet
	walletHandlers := &wallet.Handlers{Service: walletService}
	app.Get("/api/v1/wallet", middleware.RequireAuth(), walletHandlers.ViewWallet)

	// Deposits + ledger listing
	txService := &transactions.Service{DB: db, Gateway: gateway, DepositAddress: cfg.DepositAddress}
	txHandlers := &transactions.Handlers{Service: txService}
	txGroup := app.Group("/api/v1/transactions", middleware.RequireAuth())
	txGroup.Post("/deposit", txHandlers.SubmitDeposit)
	txGroup.Get("/", txHandlers.ListTransactions)

	// Investments
	invService := &investments.Service{DB: db, Gateway: gateway}
	invHandlers := &investments.Handlers{Service: invService}
	invGroup := app.Group("/api/v1/investments", middleware.RequireAuth())
	invGroup.Post("/", invHandlers.CreateInvestment)
	invGroup.Get("/", invHandlers.ListInvestments)
	invGroup.Post("/withdraw", invHandlers.Withdraw)
	invGroup.Get("/:id", invHandlers.GetInvestment)
	invGroup.Get("/:id/earnings", invHandlers.GetEarnings)
	invGroup.Post("/:id/upgrade", invHandlers.UpgradeInvestment)
	invGroup.Post("/:id/cancel", invHandlers.CancelInvestment)

	return app, db, rdb, nil
}

// Handler returns an http.Handler wrapping the Fiber app.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
