package main

import (
	"fmt"
	"log"
	"os"

	"quotepro-backend/config"
	"quotepro-backend/models"
	"quotepro-backend/routes"
	"quotepro-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Customer{},
		&models.Category{},
		&models.CatalogItem{},
		&models.Quote{},
		&models.QuoteItem{},
		&models.SequenceCounter{},
		&models.ConsentToken{},
		&models.Consent{},
		&models.Receipt{},
		&models.ReceiptVerification{},
		&models.DeliveryLog{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	services.NewMaintenanceService(db).StartScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter(db)
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
