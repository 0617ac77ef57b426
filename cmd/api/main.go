package main

import (
	"fmt"
	"net/http"
	"os"

	"plata/internal/config"
	"plata/internal/database"
	"plata/internal/handlers"
	"plata/internal/logger"
	"plata/internal/middleware"
	"plata/internal/services"
	"plata/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "plata/internal/docs" // Import swagger docs
)

// @title           Plata API
// @version         1.0
// @description     Plata is a personal finance backend for monthly budget boards, allocation rules, debt amortization and net worth tracking.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Custom binding validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	ruleService := services.NewRuleService(db)
	boardService := services.NewBoardService(db, ruleService)
	incomeService := services.NewIncomeService(db, boardService, ruleService)
	accountService := services.NewAccountService(db)
	debtService := services.NewDebtService(db)
	transactionService := services.NewTransactionService(db, boardService, ruleService, debtService, accountService)
	assetService := services.NewAssetService(db)
	insightsService := services.NewInsightsService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	boardHandler := handlers.NewBoardHandler(boardService, ruleService, auditService)
	ruleHandler := handlers.NewRuleHandler(ruleService, auditService)
	incomeHandler := handlers.NewIncomeHandler(incomeService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	debtHandler := handlers.NewDebtHandler(debtService, auditService)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	assetHandler := handlers.NewAssetHandler(assetService, auditService)
	insightsHandler := handlers.NewInsightsHandler(insightsService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Board routes
	boards := protected.Group("/boards")
	boards.POST("", boardHandler.CreateBoard)
	boards.GET("", boardHandler.GetBoards)
	boards.GET("/:id", boardHandler.GetBoard)
	boards.DELETE("/:id", boardHandler.DeleteBoard)
	boards.POST("/:id/rules", ruleHandler.CreateRule)
	boards.GET("/:id/rules", ruleHandler.GetRules)

	// Rule routes
	rules := protected.Group("/rules")
	rules.PUT("/:id", ruleHandler.UpdateRule)
	rules.DELETE("/:id", ruleHandler.DeleteRule)

	// Income routes
	incomes := protected.Group("/incomes")
	incomes.POST("", incomeHandler.CreateIncome)
	incomes.GET("", incomeHandler.GetIncomes)
	incomes.PUT("/:id", incomeHandler.UpdateIncome)
	incomes.PUT("/:id/assign", incomeHandler.AssignIncome)
	incomes.DELETE("/:id", incomeHandler.DeleteIncome)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Debt and payment routes
	debts := protected.Group("/debts")
	debts.POST("", debtHandler.CreateDebt)
	debts.GET("", debtHandler.GetDebts)
	debts.GET("/:id", debtHandler.GetDebt)
	debts.PUT("/:id", debtHandler.UpdateDebt)
	debts.DELETE("/:id", debtHandler.DeleteDebt)
	debts.POST("/:id/payments", debtHandler.RegisterPayment)
	debts.GET("/:id/payments", debtHandler.GetPayments)

	payments := protected.Group("/payments")
	payments.DELETE("/:id", debtHandler.DeletePayment)

	// Account routes
	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)

	// Asset routes
	assets := protected.Group("/assets")
	assets.POST("", assetHandler.CreateAsset)
	assets.GET("", assetHandler.GetAssets)
	assets.GET("/:id", assetHandler.GetAsset)
	assets.PUT("/:id", assetHandler.UpdateAsset)
	assets.DELETE("/:id", assetHandler.DeleteAsset)

	// Insight routes
	insights := protected.Group("/insights")
	insights.GET("/net-worth", insightsHandler.GetNetWorth)
	insights.GET("/score", insightsHandler.GetScore)

	log.Infof("Starting Plata backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
