package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	authhandler "bookrag/api/handlers/auth"
	"bookrag/api/handlers/books"
	"bookrag/internal/account"
	"bookrag/internal/auth"
	"bookrag/internal/config"
	"bookrag/internal/library"
	"bookrag/internal/metrics"
)

// Services 路由依赖的业务服务
type Services struct {
	DB       *gorm.DB
	Accounts *account.Service
	Catalog  *library.Catalog
	JWT      *auth.JWTService
}

// SetupRouter 构建 HTTP 路由
func SetupRouter(cfg *config.Config, svcs *Services) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), CORS(), metrics.PrometheusMiddleware())

	// 系统端点
	router.GET("/healthz", HealthCheck())
	router.GET("/ready", ReadinessCheck(svcs.DB))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := authhandler.NewAuthHandler(svcs.Accounts)
	bookHandler := books.NewBookHandler(svcs.Catalog, cfg.Server.MaxUploadMB*1024*1024)

	// 认证 API（公开）
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// 书籍 API（需要认证）
	bookGroup := router.Group("/api/books")
	bookGroup.Use(auth.AuthMiddleware(svcs.JWT))
	{
		bookGroup.POST("", bookHandler.Upload)
		bookGroup.GET("", bookHandler.List)
		bookGroup.GET("/:id", bookHandler.Get)
		bookGroup.DELETE("/:id", bookHandler.Delete)
		bookGroup.POST("/:id/ask", bookHandler.Ask)
		bookGroup.GET("/:id/stream", bookHandler.Stream)
		bookGroup.GET("/:id/cover", bookHandler.Cover)
	}

	return router
}
