package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nao1215/tidders/internal/api"
	"github.com/nao1215/tidders/internal/config"
	"github.com/nao1215/tidders/internal/page"
	"github.com/nao1215/tidders/pkg/httpclient"
	"github.com/nao1215/tidders/pkg/middleware"
	"github.com/nao1215/tidders/pkg/pubkey"
)

// routes はルートID（ginのFullPath）ごとの保護区分。
// ここに存在しないルートは公開ルートとして扱われる。
var routes = middleware.RouteTable{
	"/":                                 {Protected: false},
	"/s/:category_id":                   {Protected: false},
	"/s/:category_id/:post_id":          {Protected: false},
	"/search":                           {Protected: false},
	"/login":                            {Protected: false},
	"/register":                         {Protected: false},
	"/logout":                           {Protected: false},
	"/health":                           {Protected: false},
	"/metrics":                          {Protected: false},
	"/account":                          {Protected: true},
	"/account/avatar":                   {Protected: true},
	"/submit":                           {Protected: true},
	"/s/:category_id/:post_id/comments": {Protected: true},
	"/posts/:post_id":                   {Protected: true},
	"/posts/:post_id/publish":           {Protected: true},
	"/comments/:comment_id":             {Protected: true},
}

// Server はtidders webのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// api はtidders APIのクライアント。
	api *api.Client
	// pages はページデータのローダー。
	pages *page.Loader
	// authLimiter はログイン・登録のレートリミッタ。
	authLimiter *middleware.RateLimiter
}

// NewServer は新しいサーバーを生成する。
// 公開鍵はAPIから最初に必要になった時点で1度だけ取得する。
func NewServer(cfg *config.Config) *Server {
	client := api.New(cfg.APIURL)
	provider := pubkey.NewProvider(client)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))
	router.Use(middleware.Gate(middleware.GateConfig{
		Verifier:              middleware.NewVerifier(provider),
		Routes:                routes,
		ContentSecurityPolicy: cfg.ContentSecurityPolicy,
		Debug:                 cfg.GateDebug,
	}))

	s := &Server{
		router:      router,
		port:        cfg.Port,
		api:         client,
		pages:       page.NewLoader(client),
		authLimiter: middleware.NewRateLimiter(rate.Limit(cfg.LoginRatePerSec), cfg.LoginBurst),
	}
	s.setupRoutes()

	return s
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はルーティングを設定する。
// 保護区分はroutesで宣言し、Gateミドルウェアが判定する。
func (s *Server) setupRoutes() {
	// ページ
	s.router.GET("/", s.handleHome())
	s.router.GET("/s/:category_id", s.handleCategory())
	s.router.GET("/s/:category_id/:post_id", s.handlePostDetail())
	s.router.GET("/search", s.handleSearch())
	s.router.GET("/account", s.handleAccount())
	s.router.GET("/submit", s.handleSubmitPage())

	// 認証（総当たり対策としてIPごとにレート制限する）
	s.router.POST("/login", s.authLimiter.Middleware(), s.handleLogin())
	s.router.POST("/register", s.authLimiter.Middleware(), s.handleRegister())
	s.router.POST("/logout", s.handleLogout())

	// フォームアクション
	s.router.POST("/submit", s.handleCreatePost())
	s.router.POST("/s/:category_id/:post_id/comments", s.handleCreateComment())
	s.router.POST("/posts/:post_id/publish", s.handlePublishPost())
	s.router.DELETE("/posts/:post_id", s.handleDeletePost())
	s.router.DELETE("/comments/:comment_id", s.handleDeleteComment())
	s.router.POST("/account/avatar", s.handleUploadAvatar())

	// メトリクス
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tidders-web"})
	})
}

// apiContext はAPI呼び出し用のコンテキストを返す。
// ブラウザのセッションCookieとリクエストIDを引き継ぐ。
func apiContext(c *gin.Context) context.Context {
	ctx := httpclient.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))
	if token, err := c.Cookie(middleware.SessionCookie); err == nil && token != "" {
		ctx = httpclient.WithCookies(ctx, &http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	return ctx
}

// showAll はクエリにshow_allが含まれているかどうかを返す。値は問わない。
func showAll(c *gin.Context) bool {
	_, ok := c.GetQuery("show_all")
	return ok
}

// respondPage はローダーの結果をJSONで返す。ErrNotFoundは404とする。
func respondPage(c *gin.Context, data any, err error) {
	if err != nil {
		if errors.Is(err, page.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
			return
		}
		log.Printf("[Page] ページデータの取得に失敗: %s: %v", c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ページデータの取得に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, data)
}
