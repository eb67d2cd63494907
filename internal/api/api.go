package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/levra/voicebridge/internal/doccontext"
	"github.com/levra/voicebridge/internal/pdf"
	"github.com/levra/voicebridge/internal/tokens"
	"github.com/levra/voicebridge/pkg/sdk"
	"github.com/levra/voicebridge/pkg/utils"

	health_module "github.com/levra/voicebridge/internal/api/modules/health"
	live_module "github.com/levra/voicebridge/internal/api/modules/live"
	session_module "github.com/levra/voicebridge/internal/api/modules/session"
	token_module "github.com/levra/voicebridge/internal/api/modules/token"
	upload_module "github.com/levra/voicebridge/internal/api/modules/upload"

	storesession "github.com/levra/voicebridge/internal/stores/session"
)

// Dependencies holds the shared services the API modules are wired with
type Dependencies struct {
	Store     storesession.Store
	Contexts  pdf.ContextStore
	Processor *pdf.Processor
	Minter    *tokens.Minter
	Policy    doccontext.Policy
}

func Start(cfg *utils.Config, deps Dependencies) {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Route not found", nil).AsGinResponse())
	})

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	token_module.RegisterRoutes(baseGroup)
	token_module.Init(deps.Minter)

	hub := live_module.NewHub()
	live_module.RegisterRoutes(baseGroup)
	live_module.Init(deps.Store, hub)

	session_module.RegisterRoutes(baseGroup)
	session_module.Init(deps.Store, deps.Processor, deps.Contexts, hub, deps.Policy)

	// Upload routes keep their original top-level paths for compatibility
	// with existing voice pipeline agents
	upload_module.RegisterRoutes(engine)
	upload_module.Init(deps.Processor, deps.Contexts)

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}
