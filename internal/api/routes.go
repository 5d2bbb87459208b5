package api

import (
	"excel-insights-api/internal/auth"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler, tokens *auth.TokenManager, policy *auth.Policy) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		users := api.Group("/users")
		users.POST("/signup", handler.Signup)
		users.POST("/login", handler.Login)

		authed := api.Group("")
		authed.Use(Authenticate(tokens))
		{
			authed.GET("/users/me", handler.CurrentUser)
			authed.PUT("/users/me", handler.UpdateProfile)

			authed.POST("/upload", handler.UploadFile)
			authed.GET("/files", handler.ListFiles)
			authed.GET("/files/dashboard/stats", handler.DashboardStats)
			authed.GET("/files/:id", handler.GetFile)
			authed.DELETE("/files/:id", handler.DeleteFile)
			authed.GET("/files/:id/download", handler.DownloadFile)

			admin := authed.Group("/admin")
			admin.Use(RequirePermission(policy, auth.ManageSystem))
			{
				admin.GET("/settings", handler.GetSettings)
				admin.PATCH("/settings", handler.UpdateSettings)
				admin.GET("/users", handler.ListUsers)
				admin.GET("/users/:id", handler.GetUser)
				admin.DELETE("/users/:id", handler.DeleteUser)
			}
		}
	}
}
