package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/careloop/referral-backend/internal/config"
	"github.com/careloop/referral-backend/internal/db"
	"github.com/careloop/referral-backend/internal/handlers"
	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/repos"
	"github.com/careloop/referral-backend/internal/server"
	"github.com/careloop/referral-backend/internal/services"
	"github.com/careloop/referral-backend/internal/sse"
	"github.com/careloop/referral-backend/internal/utils"

	redisclient "github.com/careloop/referral-backend/internal/clients/redis"
	"github.com/careloop/referral-backend/internal/clients/sendgrid"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env + config file
	log.Info("Loading environment variables from main...")
	configPath := utils.GetEnv("CONFIG_PATH", "configs/catalog.yaml", log)
	sessionTTLSeconds := utils.GetEnvAsInt("MATCH_SESSION_TTL_SECONDS", 7200, log)
	sessionTTL := time.Duration(sessionTTLSeconds) * time.Second
	cfg := config.Load(configPath, log)

	// Database
	dbService, err := db.NewDatabaseService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	theDB := dbService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	resourceRepo := repos.NewResourceRepo(theDB, log)
	clientRepo := repos.NewClientRepo(theDB, log)
	referralRepo := repos.NewReferralRepo(theDB, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	// Match session store: redis when configured, in-process otherwise.
	var sessionStore services.MatchSessionStore
	if os.Getenv("REDIS_ADDR") != "" {
		redisStore, err := redisclient.NewMatchStore(log, sessionTTL)
		if err != nil {
			log.Error("Could not init redis match store", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		sessionStore = redisStore
	} else {
		memStore := services.NewMemoryMatchStore(log, sessionTTL)
		memStore.StartJanitor(context.Background(), time.Minute)
		sessionStore = memStore
	}

	// Services
	log.Info("Setting up Services from main...")
	oracleClient, err := services.NewOracleClient(log, cfg.Oracle)
	if err != nil {
		log.Error("Could not init OracleClient", "error", err)
		os.Exit(1)
	}
	var mailer services.ReferralMailer
	mailClient, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Warn("Mail client not configured; referral notices disabled", "error", err)
	} else {
		mailer = services.NewReferralMailer(log, mailClient)
	}
	catalogService := services.NewCatalogService(theDB, log, resourceRepo, cfg.Categorizer())
	clientService := services.NewClientService(theDB, log, clientRepo)
	matchService := services.NewMatchService(theDB, log, clientRepo, catalogService, oracleClient, sessionStore)
	referralService := services.NewReferralService(theDB, log, referralRepo, resourceRepo, clientRepo, catalogService, sseHub, mailer)

	// Handlers
	log.Info("Setting up handlers from main...")
	resourceHandler := handlers.NewResourceHandler(log, catalogService)
	clientHandler := handlers.NewClientHandler(log, clientService)
	matchHandler := handlers.NewMatchHandler(log, matchService)
	referralHandler := handlers.NewReferralHandler(log, referralService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ResourceHandler: resourceHandler,
		ClientHandler:   clientHandler,
		MatchHandler:    matchHandler,
		ReferralHandler: referralHandler,
		SSEHandler:      sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
