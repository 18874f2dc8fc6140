package app

import (
	"mentor_site_backend/docs"
	"mentor_site_backend/internal/config"
	"mentor_site_backend/internal/middleware"
	"mentor_site_backend/internal/model"
	"mentor_site_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/time", c.clock.ServerTime)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 目录与票数是公开只读的
		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:id", c.course.GetCourse)
		public.GET("/problems/:id", c.course.GetProblem)
		public.GET("/problems/:id/votes", middleware.TryAuthMiddleware(cfg), c.community.ProblemVotes)
		public.GET("/users/profiles", c.user.PublicProfiles)

		// 榜单公开可看，websocket 同理
		public.GET("/ranklist", c.ranklist.Ranklist)
		public.GET("/ranklist/top", c.ranklist.Top)
		public.GET("/ranklist/live", c.ranklist.Live)

		// 已知身份按设备标识查询，不要求登录
		public.GET("/progress/identities", c.progress.KnownIdentities)
		public.DELETE("/progress/identities", c.progress.ClearIdentities)
	}

	// 社区：列表公开，交互要登录
	community := router.Group("/api")
	{
		community.GET("/posts", middleware.TryAuthMiddleware(cfg), c.community.ListPosts)
		community.GET("/posts/:id", middleware.TryAuthMiddleware(cfg), c.community.GetPost)

		authorized := community.Group("")
		authorized.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
		{
			authorized.POST("/posts", c.community.CreatePost)
			authorized.POST("/posts/:id/like", c.community.LikePost)
		}
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)
		authGroup.PUT("/users/profile", c.user.UpdateProfile)
		authGroup.POST("/users/avatar", c.user.UploadAvatar)

		// 进度状态机
		authGroup.POST("/problems/:id/attempt", c.progress.Attempt)
		authGroup.POST("/problems/:id/solve", c.progress.Solve)
		authGroup.POST("/problems/:id/unlock", c.progress.Unlock)
		authGroup.GET("/problems/:id/state", c.progress.State)
		authGroup.GET("/problems/:id/solution", c.progress.Solution)
		authGroup.GET("/progress/summary", c.progress.Summary)
		authGroup.GET("/progress/cached", c.progress.CachedProgress)

		// 投票
		authGroup.POST("/problems/:id/vote", c.community.VoteProblem)

		// 本人名次
		authGroup.GET("/ranklist/me", c.ranklist.MyRank)

		// 导师/管理员：目录维护
		mentorOnly := authGroup.Group("")
		mentorOnly.Use(middleware.RoleMiddleware(model.Mentor))
		{
			mentorOnly.POST("/courses", c.course.CreateCourse)
			mentorOnly.POST("/courses/:id/problems", c.course.CreateProblem)
		}
	}
}
