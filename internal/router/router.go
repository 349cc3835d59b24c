package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/handler"
	"github.com/weiwangfds/reelfolio/internal/middleware"
	"github.com/weiwangfds/reelfolio/internal/response"
	authservice "github.com/weiwangfds/reelfolio/internal/service/auth"
	storageservice "github.com/weiwangfds/reelfolio/internal/service/storage"
	videoservice "github.com/weiwangfds/reelfolio/internal/service/video"
	"gorm.io/gorm"
)

// healthTimeout 健康检查中数据库探活的超时
const healthTimeout = 2 * time.Second

// Router 路由配置
type Router struct {
	engine *gin.Engine
}

// NewRouter 创建路由实例
func NewRouter(loggerMiddleware *middleware.LoggerMiddleware, db *gorm.DB, store storageservice.AssetStore, cfg *config.Config) *Router {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.Upload.MultipartMemory

	// 初始化服务
	authService := authservice.NewAuthService(db, cfg.Auth)
	videoService := videoservice.NewVideoService(db, store, cfg.Upload)

	// 初始化处理器
	authHandler := handler.NewAuthHandler(authService)
	videoHandler := handler.NewVideoHandler(videoService, cfg.Upload.MaxVideoSize, cfg.Upload.MaxThumbnailSize)

	// 使用中间件
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware.RequestID())
	engine.Use(loggerMiddleware.Logger())
	engine.Use(middleware.RequestLogger(middleware.DefaultRequestLoggerConfig(cfg.Server.RequestLog)))
	engine.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "degraded",
				"database": "unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"database": database.DialectName(db),
		})
	})

	// 本地存储的资源按种类以静态文件方式提供, 暂存目录不挂载
	if local, ok := store.(*storageservice.LocalStore); ok {
		for _, kind := range storageservice.Kinds {
			engine.Static(local.KindURLPrefix(kind), local.KindDir(kind))
		}
	}

	requireAdmin := middleware.RequireAdmin(authService)

	// API路由组
	api := engine.Group(cfg.Server.BasePath)
	{
		// 认证接口
		auth := api.Group("/auth")
		{
			auth.GET("/verify-path/:secretPath", authHandler.VerifyPath)
			auth.POST("/login", authHandler.Login)
			auth.POST("/verify", authHandler.Verify)
		}

		// 视频接口
		videos := api.Group("/videos")
		{
			// 公开
			videos.GET("", videoHandler.ListVideos)
			videos.GET("/:id", videoHandler.GetVideo)
			videos.GET("/:id/stream", videoHandler.StreamVideo)

			// 需要管理员令牌
			videos.GET("/stats", requireAdmin, videoHandler.GetStats)
			videos.POST("/upload", requireAdmin, videoHandler.UploadVideo)
			videos.PUT("/:id", requireAdmin, videoHandler.UpdateVideo)
			videos.DELETE("/:id", requireAdmin, videoHandler.DeleteVideo)
		}

		api.GET("/categories", videoHandler.ListCategories)
	}

	// 未匹配的路由统一返回JSON错误
	engine.NoRoute(func(c *gin.Context) {
		response.Error(c, apperrors.New(apperrors.ErrNotFound, ""))
	})

	return &Router{engine: engine}
}

// corsConfig 来源列表包含 "*" 时允许全部来源; 令牌通过请求头传递, 不需要携带Cookie
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

