package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// 跨域策略：allowList 为空（开发部署）放行任意来源；非空（生产）
// 只认白名单里的来源，并允许携带 cookie。

// AllowedOrigin 判断来源是否放行
func AllowedOrigin(origin string, allowList []string) bool {
	if len(allowList) == 0 {
		return true
	}
	if origin == "" {
		return false
	}
	for _, a := range allowList {
		if strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(origin, "/")) {
			return true
		}
	}
	return false
}

// Cors gin 中间件
func Cors(allowList []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if !AllowedOrigin(origin, allowList) {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			// 回显来源而不是 *，带 cookie 的请求浏览器才收
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// WSCheckOrigin 给 websocket upgrader 用的同一套白名单
func WSCheckOrigin(allowList []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		return AllowedOrigin(r.Header.Get("Origin"), allowList)
	}
}
