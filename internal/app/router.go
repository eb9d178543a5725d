package app

import (
	"bizbox_backend/docs"
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/middleware"
	"bizbox_backend/internal/model"
	"bizbox_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c, cfg)

	ws := router.Group("/ws")
	ws.Use(middleware.AuthMiddleware(cfg))
	{
		ws.GET("/notifications", c.ws.Notifications)
		staff := ws.Group("/whatsapp", middleware.RoleMiddleware(model.Staff), middleware.OrganizationMiddleware())
		staff.GET("/contacts", c.ws.Contacts)
		staff.GET("/contacts/:id", c.ws.Conversation)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerMemberRoutes(authGroup, c)
		a.registerStaffRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.POST("/token/refresh", c.auth.Refresh)

		public.GET("/whatsapp/webhook", c.whatsapp.VerifyWebhook)
		public.POST("/whatsapp/webhook", c.whatsapp.ReceiveWebhook)

		site := public.Group("/public/:orgSlug", middleware.TryAuthMiddleware(cfg))
		site.GET("", c.public.Organization)
		site.GET("/posts", c.public.Posts)
		site.GET("/posts/:slug", c.public.Post)
		site.POST("/customers", c.public.CaptureCustomer)
	}
}

// registerMemberRoutes covers every signed-in user, learners included.
func (a *App) registerMemberRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)
	group.PATCH("/profile", c.auth.UpdateProfile)
	group.PUT("/profile/device-token", c.auth.UpdateDeviceToken)

	group.POST("/organizations", c.organization.Create)

	cbt := group.Group("/cbt")
	{
		cbt.GET("/tests/available", c.practice.AvailableTests)
		cbt.GET("/tests/:id/session", c.practice.Session)
		cbt.POST("/submit", c.practice.Submit)
		cbt.GET("/results", c.practice.ListResults)
		cbt.GET("/results/:id", c.practice.GetResult)
	}

	notifications := group.Group("/notifications")
	{
		notifications.GET("", c.notification.List)
		notifications.PUT("/read-all", c.notification.MarkAllRead)
		notifications.PUT("/:id/read", c.notification.MarkRead)
		notifications.DELETE("/:id", c.notification.Delete)
	}

	shop := group.Group("", middleware.OrganizationMiddleware())
	{
		shop.GET("/organizations/me", c.organization.Mine)
		shop.GET("/products", c.commerce.ListProducts)
		shop.GET("/products/:id", c.commerce.GetProduct)
		shop.POST("/orders", c.commerce.Checkout)
		shop.GET("/orders", c.commerce.MyOrders)
		shop.POST("/orders/:reference/verify", c.commerce.Verify)
	}
}

func (a *App) registerStaffRoutes(group *gin.RouterGroup, c *controllers) {
	staff := group.Group("", middleware.RoleMiddleware(model.Staff), middleware.OrganizationMiddleware())

	org := staff.Group("/organizations/me")
	{
		org.PATCH("", middleware.RoleMiddleware(model.Admin), c.organization.Update)
		org.POST("/logo", middleware.RoleMiddleware(model.Admin), c.organization.UploadLogo)
		org.GET("/staff", c.organization.ListStaff)
		org.POST("/staff", middleware.RoleMiddleware(model.Admin), c.organization.AddStaff)
	}

	cbt := staff.Group("/cbt")
	{
		cbt.GET("/years", c.catalog.ListYears)
		cbt.POST("/years", c.catalog.CreateYear)
		cbt.GET("/years/:id", c.catalog.GetYear)
		cbt.PATCH("/years/:id", c.catalog.UpdateYear)
		cbt.DELETE("/years/:id", c.catalog.DeleteYear)

		cbt.GET("/test-types", c.catalog.ListTestTypes)
		cbt.POST("/test-types", c.catalog.CreateTestType)
		cbt.GET("/test-types/:id", c.catalog.GetTestType)
		cbt.PATCH("/test-types/:id", c.catalog.UpdateTestType)
		cbt.DELETE("/test-types/:id", c.catalog.DeleteTestType)

		cbt.GET("/subjects", c.catalog.ListSubjects)
		cbt.POST("/subjects", c.catalog.CreateSubject)
		cbt.GET("/subjects/:id", c.catalog.GetSubject)
		cbt.PATCH("/subjects/:id", c.catalog.UpdateSubject)
		cbt.PUT("/subjects/:id/questions", c.catalog.SetSubjectQuestions)
		cbt.DELETE("/subjects/:id", c.catalog.DeleteSubject)

		cbt.GET("/answers", c.catalog.ListAnswers)
		cbt.POST("/answers", c.catalog.CreateAnswer)
		cbt.GET("/answers/:id", c.catalog.GetAnswer)
		cbt.PATCH("/answers/:id", c.catalog.UpdateAnswer)
		cbt.DELETE("/answers/:id", c.catalog.DeleteAnswer)

		cbt.GET("/questions", c.catalog.ListQuestions)
		cbt.POST("/questions", c.catalog.CreateQuestion)
		cbt.POST("/questions/import", c.practice.ImportQuestions)
		cbt.GET("/questions/:id", c.catalog.GetQuestion)
		cbt.PATCH("/questions/:id", c.catalog.UpdateQuestion)
		cbt.PUT("/questions/:id/answers", c.catalog.SetQuestionAnswers)
		cbt.DELETE("/questions/:id", c.catalog.DeleteQuestion)

		cbt.GET("/tests", c.catalog.ListTests)
		cbt.POST("/tests", c.catalog.CreateTest)
		cbt.GET("/tests/:id", c.catalog.GetTest)
		cbt.PATCH("/tests/:id", c.catalog.UpdateTest)
		cbt.PUT("/tests/:id/subjects", c.catalog.SetTestSubjects)
		cbt.DELETE("/tests/:id", c.catalog.DeleteTest)
		cbt.GET("/tests/:id/results/export", c.practice.ExportResults)
	}

	wa := staff.Group("/whatsapp")
	{
		wa.GET("/contacts", c.whatsapp.ListContacts)
		wa.GET("/contacts/:id/messages", c.whatsapp.ListMessages)
		wa.POST("/contacts/:id/messages", c.whatsapp.SendMessage)
	}

	staff.POST("/notifications", c.notification.Create)

	products := staff.Group("/products")
	{
		products.POST("", c.commerce.CreateProduct)
		products.PATCH("/:id", c.commerce.UpdateProduct)
		products.DELETE("/:id", c.commerce.DeleteProduct)
		products.POST("/:id/image", c.commerce.UploadImage)
		products.POST("/:id/video", c.commerce.UploadVideo)
	}
	staff.GET("/orders/all", c.commerce.OrganizationOrders)

	posts := staff.Group("/posts")
	{
		posts.GET("", c.blog.List)
		posts.POST("", c.blog.Create)
		posts.GET("/:id", c.blog.Get)
		posts.PATCH("/:id", c.blog.Update)
		posts.DELETE("/:id", c.blog.Delete)
		posts.POST("/:id/cover", c.blog.UploadCover)
	}

	customers := staff.Group("/customers")
	{
		customers.GET("", c.customer.List)
		customers.DELETE("/:id", c.customer.Delete)
	}
}
