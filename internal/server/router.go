package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/careloop/referral-backend/internal/handlers"
)

type RouterConfig struct {
	ResourceHandler *handlers.ResourceHandler
	ClientHandler   *handlers.ClientHandler
	MatchHandler    *handlers.MatchHandler
	ReferralHandler *handlers.ReferralHandler
	SSEHandler      *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Resource catalog
		api.POST("/resources", cfg.ResourceHandler.CreateResource)
		api.GET("/resources", cfg.ResourceHandler.ListResources)
		api.GET("/resources/search", cfg.ResourceHandler.ListResources)
		api.PATCH("/resources/:id", cfg.ResourceHandler.UpdateResource)

		// Client directory
		api.POST("/clients", cfg.ClientHandler.CreateClient)
		api.GET("/clients", cfg.ClientHandler.ListClients)
		api.GET("/clients/:id", cfg.ClientHandler.GetClient)

		// Referral ledger
		api.POST("/referrals", cfg.ReferralHandler.CommitReferral)
		api.GET("/clients/:id/referrals", cfg.ReferralHandler.ListForClient)
		api.PUT("/clients/:id/referrals/:resourceId/status", cfg.ReferralHandler.UpdateStatus)

		// Assisted matching
		api.POST("/match", cfg.MatchHandler.RequestMatch)
		api.POST("/match/followup", cfg.MatchHandler.FollowUp)
		api.POST("/match/reset", cfg.MatchHandler.ResetSession)

		// Dashboard
		api.GET("/dashboard/referrals", cfg.ReferralHandler.RecentActivity)
		api.GET("/dashboard/stream", cfg.SSEHandler.StreamDashboard)
	}

	return router
}
