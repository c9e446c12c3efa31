package routes

import (
	"hr-review-api/controllers"
	"hr-review-api/middleware"
	"hr-review-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)
			public.POST("/refresh", controllers.RefreshToken)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "HR Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth management
			protected.POST("/logout", controllers.Logout)

			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Review cycles
			cycles := protected.Group("/cycles")
			{
				cycles.GET("", controllers.GetCycles)
				cycles.GET("/:id", controllers.GetCycle)

				// Cycle lifecycle belongs to admin/hr
				staff := middleware.RequireRole(models.RoleAdmin, models.RoleHR)
				cycles.POST("", staff, controllers.CreateCycle)
				cycles.POST("/:id/activate", staff, controllers.ActivateCycle)
				cycles.POST("/:id/lock", staff, controllers.LockCycle)
				cycles.POST("/:id/reopen", staff, controllers.ReopenCycle)
				cycles.POST("/:id/complete", staff, controllers.CompleteCycle)

				// Delete is admin only; the service re-checks the role
				cycles.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), controllers.DeleteCycle)
			}

			// Reviewer assignments
			assignments := protected.Group("/assignments")
			{
				assignments.GET("", controllers.GetAssignments)
				assignments.POST("", middleware.RequireRole(models.RoleAdmin, models.RoleHR), controllers.AssignReviewers)
				assignments.POST("/overdue-sweep", middleware.RequireRole(models.RoleAdmin, models.RoleHR), controllers.SweepOverdueAssignments)
			}

			// Review forms
			forms := protected.Group("/forms")
			{
				forms.GET("", controllers.GetForms)
				forms.GET("/:id", controllers.GetForm)
				forms.POST("", controllers.SaveForm)
				forms.POST("/:id/approve", middleware.RequireRole(models.RoleAdmin, models.RoleHR), controllers.ApproveForm)
				forms.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), controllers.DeleteForm)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}

			// Dashboard
			protected.GET("/stats", controllers.GetStats)
		}
	}

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Route not found"})
	})
}
