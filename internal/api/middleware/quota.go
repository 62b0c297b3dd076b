package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/service"
)

// FeatureCheck 功能可用性检查中间件，配额耗尽或计划被冻结时拦截
func FeatureCheck(subService *service.SubscriptionService, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		allowed, msg, err := subService.CanAccessFeature(userID, feature)
		if err != nil {
			response.ServerError(c, "配额检查失败")
			c.Abort()
			return
		}

		if !allowed {
			response.QuotaError(c, msg)
			c.Abort()
			return
		}

		c.Next()
	}
}
