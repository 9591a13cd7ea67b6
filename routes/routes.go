package routes

import (
	"os"
	"strings"

	"quotepro-backend/config"
	"quotepro-backend/controllers"
	"quotepro-backend/services"
	"quotepro-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		allowedOrigins = strings.Split(env, ",")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	sequences := services.NewSequenceService()
	catalog := services.NewCatalogService(db)
	quotes := services.NewQuoteService(db, sequences, catalog)
	consents := services.NewConsentService(db)
	receipts := services.NewReceiptService(db)
	delivery := services.NewDeliveryService(db)

	authController := &controllers.AuthController{DB: db}
	customerController := &controllers.CustomerController{DB: db}
	catalogController := &controllers.CatalogController{DB: db, Catalog: catalog}
	quoteController := &controllers.QuoteController{
		DB: db, Quotes: quotes, Consents: consents, Delivery: delivery,
	}
	consentController := &controllers.ConsentController{DB: db, Consents: consents}
	receiptController := &controllers.ReceiptController{Receipts: receipts}
	settingsController := &controllers.SettingsController{DB: db}
	dashboardController := &controllers.DashboardController{DB: db}

	auth := r.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", authController.Me)
	}

	// Public endpoints: consent links and receipt verification carry their
	// own credential, no staff JWT involved
	public := r.Group("/public")
	{
		public.GET("/consent/:token", consentController.ShowQuote)
		public.POST("/consent/:token/accept", consentController.Accept)
		public.POST("/consent/:token/reject", consentController.Reject)
		public.GET("/receipts/verify", receiptController.Verify)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Customer routes
		customers := api.Group("/customers")
		{
			customers.POST("", customerController.CreateCustomer)
			customers.GET("", customerController.GetCustomers)
			customers.GET("/:id", customerController.GetCustomer)
			customers.PUT("/:id", customerController.UpdateCustomer)
			customers.DELETE("/:id", customerController.DeleteCustomer)
		}

		// Catalog routes
		catalogGroup := api.Group("/catalog")
		{
			catalogGroup.POST("/items", catalogController.CreateItem)
			catalogGroup.GET("/items", catalogController.GetItems)
			catalogGroup.PUT("/items/:id", catalogController.UpdateItem)
			catalogGroup.DELETE("/items/:id", catalogController.DeleteItem)
			catalogGroup.POST("/categories", catalogController.CreateCategory)
			catalogGroup.GET("/categories/tree", catalogController.GetCategoryTree)
		}

		// Quote routes
		quoteGroup := api.Group("/quotes")
		{
			quoteGroup.POST("", quoteController.CreateQuote)
			quoteGroup.GET("", quoteController.GetQuotes)
			quoteGroup.GET("/:id", quoteController.GetQuote)
			quoteGroup.PUT("/:id/status", quoteController.UpdateStatus)
			quoteGroup.POST("/:id/send", quoteController.SendQuote)
			quoteGroup.POST("/:id/consent-token", quoteController.IssueConsentToken)
			quoteGroup.POST("/:id/reject", quoteController.RejectQuote)
			quoteGroup.POST("/:id/items", quoteController.AddItem)
			quoteGroup.PUT("/:id/items/:itemId", quoteController.UpdateItem)
			quoteGroup.DELETE("/:id/items/:itemId", quoteController.DeleteItem)
			quoteGroup.POST("/:id/receipt", receiptController.IssueReceipt)
			quoteGroup.GET("/:id/receipt", receiptController.GetReceipt)
		}

		// Settings routes
		settings := api.Group("/settings")
		{
			settings.GET("", settingsController.GetSettings)
			settings.PUT("", settingsController.UpdateSettings)
			settings.POST("/secrets/rotate", settingsController.RotateSecret)
		}

		// Dashboard routes
		api.GET("/dashboard", dashboardController.GetDashboardOverview)
	}

	return r
}
