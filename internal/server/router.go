package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/smart-assistant/smart-assistant-backend/internal/handlers"
	"github.com/smart-assistant/smart-assistant-backend/internal/middleware"
)

type RouterConfig struct {
	UserHandler    *handlers.UserHandler
	ThreadHandler  *handlers.ThreadHandler
	MessageHandler *handlers.MessageHandler
	AiHandler      *handlers.AiHandler
	AuthMiddleware *middleware.AuthMiddleware
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	//-----------------------------------------
	// Cors Setup
	//-----------------------------------------
	allowOrigins := cfg.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	//-----------------------------------------
	// Health Routes
	//-----------------------------------------
	router.GET("/healthz", handlers.Healthz)

	//-----------------------------------------
	// API Routes
	//-----------------------------------------
	api := router.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.OptionalAuth())
	}

	// Users
	api.POST("/users", cfg.UserHandler.Create)
	api.GET("/users", cfg.UserHandler.FindAll)
	api.GET("/users/:id", cfg.UserHandler.FindOne)
	api.PATCH("/users/:id", cfg.UserHandler.Update)
	api.DELETE("/users/:id", cfg.UserHandler.Remove)

	// Threads
	api.POST("/threads", cfg.ThreadHandler.Create)
	api.GET("/threads", cfg.ThreadHandler.FindAll)
	api.GET("/threads/:id", cfg.ThreadHandler.FindOne)
	api.PATCH("/threads/:id", cfg.ThreadHandler.Update)
	api.DELETE("/threads/:id", cfg.ThreadHandler.Remove)

	// Messages
	api.POST("/messages", cfg.MessageHandler.Create)
	api.GET("/messages", cfg.MessageHandler.FindAll)
	api.GET("/messages/:id", cfg.MessageHandler.FindOne)
	api.PATCH("/messages/:id", cfg.MessageHandler.Update)
	api.DELETE("/messages/:id", cfg.MessageHandler.Remove)

	// AI
	api.POST("/ai/generate", cfg.AiHandler.Generate)
	api.POST("/ai/chat", cfg.AiHandler.Chat)
	api.POST("/ai/chat/stream", cfg.AiHandler.ChatStream)

	return router
}
