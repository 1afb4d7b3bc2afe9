package middleware

import "github.com/gin-gonic/gin"

// setSecurityHeaders はセキュリティ関連ヘッダーを付与する。
// cspが空の場合はContent-Security-Policyを付与しない。
func setSecurityHeaders(c *gin.Context, csp string) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	if csp != "" {
		c.Header("Content-Security-Policy", csp)
	}
}
