package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/db"
	"github.com/smart-assistant/smart-assistant-backend/internal/events"
	"github.com/smart-assistant/smart-assistant-backend/internal/handlers"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/middleware"
	"github.com/smart-assistant/smart-assistant-backend/internal/repos"
	"github.com/smart-assistant/smart-assistant-backend/internal/server"
	"github.com/smart-assistant/smart-assistant-backend/internal/services"
	"github.com/smart-assistant/smart-assistant-backend/internal/utils"
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	// Logger Setup
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Environment Variables
	log.Info("Attempting to load environment variables for Main now...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	dbDriver := utils.GetEnv("DB_DRIVER", "postgres", log)
	redisAddress := utils.GetEnv("REDIS_ADDRESS", "", log)
	redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
	memoryAPIURL := utils.GetEnv("MEMORY_API_URL", "", log)
	memoryAPIKey := utils.GetEnv("MEMORY_API_KEY", "", log)
	openaiAPIKey := utils.GetEnv("OPENAI_API_KEY", "", log)
	openaiBaseURL := utils.GetEnv("OPENAI_BASE_URL", "", log)
	openaiModel := utils.GetEnv("OPENAI_MODEL", "", log)
	contextTimeout := utils.GetEnvAsDuration("AI_CONTEXT_TIMEOUT_MS", 2*time.Second, log)
	corsOrigins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)

	// Database Setup
	log.Info("Setting Up Database from Main now...", "driver", dbDriver)
	var theDB *gorm.DB
	switch dbDriver {
	case "sqlite":
		sqliteService, err := db.NewSQLiteService(log, utils.GetEnv("SQLITE_DSN", "", log))
		if err != nil {
			log.Error("Fatal error: Cannot init SQLite", "error", err)
			os.Exit(1)
		}
		if err := sqliteService.AutoMigrateAll(); err != nil {
			log.Error("Fatal error: SQLite auto migration failed", "error", err)
			os.Exit(1)
		}
		theDB = sqliteService.DB()
	default:
		postgresService, err := db.NewPostgresService(log)
		if err != nil {
			log.Error("Fatal error: Cannot init Postgres", "error", err)
			os.Exit(1)
		}
		if err := postgresService.AutoMigrateAll(); err != nil {
			log.Error("Fatal error: Postgres auto migration failed", "error", err)
			os.Exit(1)
		}
		theDB = postgresService.DB()
	}
	log.Info("Database Setup From Main Successful :)")

	// Repositories Setup
	log.Info("Setting Up Repositories from Main now...")
	userRepo := repos.NewUserRepo(theDB, log)
	threadRepo := repos.NewThreadRepo(theDB, log)
	messageRepo := repos.NewMessageRepo(theDB, log)
	log.Info("Repositories Set Up From Main Successful :)")

	// Event Bus Setup
	log.Info("Setting Up Event Bus from Main now...")
	var (
		bus      events.Bus
		redisBus *events.RedisBus
	)
	if redisAddress != "" {
		redisBus, err = events.NewRedisBus(log, redisAddress, redisPassword, "assistant_events")
		if err != nil {
			log.Warn("Failed to init redis event bus, falling back to in-process bus", "error", err)
			bus = events.NewLocalBus(log)
		} else if err := redisBus.StartSubscriber(); err != nil {
			log.Warn("Failed to subscribe to redis event bus, falling back to in-process bus", "error", err)
			redisBus = nil
			bus = events.NewLocalBus(log)
		} else {
			bus = redisBus
			log.Info("Redis event bus is active!")
		}
	} else {
		bus = events.NewLocalBus(log)
	}
	log.Info("Event Bus Set Up From Main Successful :)")

	// Services Setup
	log.Info("Setting up Services from Main now...")
	var memoryBridge *services.MemoryBridge
	memoryService, err := services.NewMemoryService(log, memoryAPIURL, memoryAPIKey)
	if err != nil {
		log.Warn("Memory service disabled", "error", err)
	} else {
		memoryBridge = services.NewMemoryBridge(log, bus, memoryService)
		memoryBridge.Start()
	}
	var aiService services.AiService
	aiService, err = services.NewAiService(log, bus, services.AiConfig{
		APIKey:         openaiAPIKey,
		BaseURL:        openaiBaseURL,
		Model:          openaiModel,
		ContextTimeout: contextTimeout,
	})
	if err != nil {
		log.Warn("AI service disabled, conversation replies will degrade to fallback", "error", err)
		aiService = nil
	}
	userService := services.NewUserService(theDB, log, userRepo)
	threadService := services.NewThreadService(theDB, log, threadRepo, userRepo)
	messageService := services.NewMessageService(theDB, log, messageRepo, threadRepo, bus)
	conversationService := services.NewConversationService(theDB, log, threadRepo, messageRepo, messageService, aiService)
	log.Info("Services Set Up From Main Successful :)")

	// Handler Setup
	log.Info("Setting Up Handlers from Main now...")
	userHandler := handlers.NewUserHandler(userService)
	threadHandler := handlers.NewThreadHandler(threadService)
	messageHandler := handlers.NewMessageHandler(messageService)
	aiHandler := handlers.NewAiHandler(aiService, conversationService)
	log.Info("Handlers Set Up From Main Successful :)")

	// Middleware Setup
	log.Info("Setting Up Middleware from Main now...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)
	log.Info("Middleware Set Up From Main Successful :)")

	// Router Setup
	log.Info("Setting Up Router from Main now...")
	router := server.NewRouter(server.RouterConfig{
		UserHandler:    userHandler,
		ThreadHandler:  threadHandler,
		MessageHandler: messageHandler,
		AiHandler:      aiHandler,
		AuthMiddleware: authMiddleware,
		AllowOrigins:   strings.Split(corsOrigins, ","),
	})
	log.Info("Router Set Up From Main Successful :)")

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}

	// On Shutdown
	if memoryBridge != nil {
		memoryBridge.Stop()
	}
	if redisBus != nil {
		redisBus.Stop()
	}
}
