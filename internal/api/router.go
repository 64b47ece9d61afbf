package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/api/handler"
	"github.com/qs3c/reflect_go_server/internal/api/middleware"
)

type Router struct {
	authHandler       *handler.AuthHandler
	userHandler       *handler.UserHandler
	preferenceHandler *handler.PreferenceHandler
	operationHandler  *handler.OperationHandler
	draftHandler      *handler.DraftHandler
	websocketHandler  *handler.WebSocketHandler
	cfg               *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	preferenceHandler *handler.PreferenceHandler,
	operationHandler *handler.OperationHandler,
	draftHandler *handler.DraftHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:       authHandler,
		userHandler:       userHandler,
		preferenceHandler: preferenceHandler,
		operationHandler:  operationHandler,
		draftHandler:      draftHandler,
		websocketHandler:  websocketHandler,
		cfg:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
			}

			// 生成偏好
			authenticated.GET("/preferences", r.preferenceHandler.Get)
			authenticated.PUT("/preferences", r.preferenceHandler.Update)

			// 生成任务
			operations := authenticated.Group("/operations")
			{
				operations.POST("", r.operationHandler.Enqueue)
				operations.GET("", r.operationHandler.List)
				operations.GET("/:id", r.operationHandler.GetStatus)
			}

			// 周报草稿
			drafts := authenticated.Group("/drafts")
			{
				drafts.GET("", r.draftHandler.List)
				drafts.GET("/:year/:week", r.draftHandler.GetByWeek)
				drafts.POST("/:year/:week/export", r.draftHandler.Export)
			}
		}
	}

	return engine
}
