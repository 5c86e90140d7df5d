package api

import (
	"ThinkSync/internal/api/config"
	"ThinkSync/internal/api/middleware"
	"ThinkSync/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupRouter revoked 为 Token 黑名单所在的 Redis，可为 nil
func SetupRouter(group *HandlersGroup, cfg *config.Config, revoked redis.Cmdable) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	logger.SetupGin(r, cfg.Logstash)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		imGroup := apiGroup.Group("/im")
		{
			imGroup.GET("/ws", middleware.QueryTokenAuth(revoked), group.WSHandler.Connect)

			authGroup := imGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware(revoked))
			{
				authGroup.POST("/send", group.IMHandler.SendMessage)
				authGroup.GET("/recent", group.IMHandler.GetRecentConversations)
				authGroup.GET("/unread-count", group.IMHandler.GetUnreadCount)
				authGroup.GET("/contacts", group.IMHandler.GetContacts)
				authGroup.GET("/messages/:user_id", group.IMHandler.GetMessages)
				authGroup.POST("/messages/:user_id/read", group.IMHandler.MarkRead)
			}
		}
	}

	return r
}
