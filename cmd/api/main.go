package main

import (
	"log"
	"os"

	_ "github.com/J3ZZ3/empcare/api/swagger" // swagger docs
	"github.com/J3ZZ3/empcare/internal/database"
	"github.com/J3ZZ3/empcare/internal/handler"
	"github.com/J3ZZ3/empcare/internal/middleware"
	"github.com/J3ZZ3/empcare/internal/repository"
	"github.com/J3ZZ3/empcare/internal/service"
	"github.com/J3ZZ3/empcare/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Empcare Payroll API
// @version         1.0
// @description     Work logging, pay rate resolution and payment period management for fibre deployment field crews.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "empcare"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	labourerRepo := repository.NewLabourerRepository(db)
	employeeTypeRepo := repository.NewEmployeeTypeRepository(db)
	rateRepo := repository.NewPayRateRepository(db)
	workLogRepo := repository.NewWorkLogRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo)
	projectService := service.NewProjectService(projectRepo, auditRepo, txManager)
	labourerService := service.NewLabourerService(labourerRepo, employeeTypeRepo, projectRepo, workLogRepo, periodRepo, auditRepo, txManager)
	rateService := service.NewRateService(rateRepo, projectRepo, employeeTypeRepo, auditRepo, txManager)
	workLogService := service.NewWorkLogService(workLogRepo, labourerRepo, projectRepo, auditRepo, txManager, rateService)
	periodService := service.NewPeriodService(periodRepo, workLogRepo, projectRepo, auditRepo, txManager, wsHub)
	correctionService := service.NewCorrectionService(correctionRepo, workLogRepo, labourerRepo, projectRepo, periodRepo, auditRepo, txManager, rateService, wsHub)
	exportService := service.NewExportService(periodRepo, projectRepo)
	auditService := service.NewAuditService(auditRepo)

	userHandler := handler.NewUserHandler(userService)
	projectHandler := handler.NewProjectHandler(projectService)
	labourerHandler := handler.NewLabourerHandler(labourerService)
	rateHandler := handler.NewRateHandler(rateService)
	workLogHandler := handler.NewWorkLogHandler(workLogService)
	periodHandler := handler.NewPeriodHandler(periodService, exportService)
	correctionHandler := handler.NewCorrectionHandler(correctionService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	projectHandler.RegisterRoutes(root)
	labourerHandler.RegisterRoutes(root)
	rateHandler.RegisterRoutes(root)
	workLogHandler.RegisterRoutes(root)
	periodHandler.RegisterRoutes(root)
	correctionHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
