package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"drivebridge/backend/internal/auth"
	"drivebridge/backend/internal/config"
	"drivebridge/backend/internal/database"
	"drivebridge/backend/internal/graph"
	"drivebridge/backend/internal/handlers"
	"drivebridge/backend/internal/middleware"
	"drivebridge/backend/internal/msauth"
	"drivebridge/backend/internal/services"
	"drivebridge/backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize Database
	database.ConnectDB(cfg.MongoURI)
	db := database.Client.Database(cfg.DBName)

	ctx := context.Background()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Stores
	drives := store.NewMongoDrives(db)
	items := store.NewMongoDriveItems(db)
	settings := store.NewMongoSettings(db)
	tasks := store.NewMongoTasks(db)
	users := store.NewMongoUsers(db)
	accounts := store.NewMongoAccounts(db)

	// Token cache backend: Redis when configured, MongoDB otherwise.
	var tokenStore msauth.TokenStore
	if cfg.RedisURI != "" {
		opts, err := redis.ParseURL(cfg.RedisURI)
		if err != nil {
			log.Fatalf("Invalid REDIS_URI: %v", err)
		}
		tokenStore = msauth.NewRedisTokenStore(redis.NewClient(opts))
		log.Println("Using Redis token cache")
	} else {
		tokenStore = msauth.NewMongoTokenStore(db)
	}

	provider, err := msauth.NewProvider(cfg, accounts, tokenStore)
	if err != nil {
		log.Fatalf("Failed to initialize Microsoft auth: %v", err)
	}

	// Services
	remote := graph.NewClient()
	syncService := services.NewSyncService(drives, items, tasks, provider, remote)
	accessService := services.NewAccessService(items, settings)
	settingsService := services.NewSettingsService(drives, settings, accessService)
	shareLinkService := services.NewShareLinkService(drives, items, provider, remote)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authHandler := auth.NewHandler(users, jwtManager)
	driveHandler := handlers.NewDriveHandler(drives, syncService)
	taskHandler := handlers.NewTaskHandler(tasks)
	itemHandler := handlers.NewItemHandler(items, accessService, shareLinkService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	msAuthHandler := handlers.NewMSAuthHandler(provider)

	// Initialize Gin Router
	router := gin.Default()
	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/auth/login", authHandler.Login)
		// The identity platform redirect cannot carry a bearer token.
		api.GET("/ms/callback", msAuthHandler.Callback)

		protected := api.Group("/", middleware.RequireAuth(jwtManager))
		{
			// ITEM ROUTES
			protected.GET("/items", itemHandler.Get)
			protected.GET("/items/children", itemHandler.Children)

			admin := protected.Group("/", middleware.RequireRole(middleware.RoleAdmin))
			{
				// ACCOUNT LINKING
				admin.GET("/ms/login-url", msAuthHandler.LoginURL)

				// DRIVE ROUTES
				admin.GET("/drives", driveHandler.List)
				admin.POST("/drives/sync", driveHandler.Sync)
				admin.DELETE("/accounts/:localAccountId/drive", driveHandler.Delete)
				admin.GET("/tasks/:id", taskHandler.Get)

				// SETTINGS ROUTES
				admin.GET("/drives/:driveId/settings", settingsHandler.Get)
				admin.PATCH("/drives/:driveId/settings", settingsHandler.Update)
				admin.POST("/drives/:driveId/settings/rules", settingsHandler.AddRule)
				admin.PATCH("/drives/:driveId/settings/rules/:ruleId", settingsHandler.UpdateRule)
				admin.DELETE("/drives/:driveId/settings/rules/:ruleId", settingsHandler.DeleteRule)

				// SHARE LINK ROUTES
				admin.POST("/items/:id/share-link", itemHandler.CreateShareLink)
				admin.DELETE("/items/:id/share-link", itemHandler.DeleteShareLink)
			}
		}
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
