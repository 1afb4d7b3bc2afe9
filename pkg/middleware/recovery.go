package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にリクエストIDとスタックトレースを標準ロガーに出力し、500エラーを返す。
func Recovery() gin.HandlerFunc {
	return RecoveryWithLogger(log.Default())
}

// RecoveryWithLogger は出力先のロガーを指定したRecoveryを返す。
// レスポンスの書き込みが始まった後のパニックではステータスを変更できないため、
// ログ出力と中断のみ行う。
func RecoveryWithLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("[PANIC] %s %s request_id=%s: %v\n%s",
					c.Request.Method, c.Request.URL.Path, GetRequestID(c), r, debug.Stack())
				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "内部サーバーエラーが発生しました",
				})
			}
		}()
		c.Next()
	}
}
