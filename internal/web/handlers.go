package web

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/tidders/internal/api"
	"github.com/nao1215/tidders/pkg/middleware"
)

// maxAvatarSize はアバター画像の最大サイズ。
const maxAvatarSize = 5 << 20

// handleHome はトップページのデータを返すハンドラを返す。
func (s *Server) handleHome() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.pages.Home(apiContext(c), showAll(c)))
	}
}

// handleCategory はカテゴリページのデータを返すハンドラを返す。
func (s *Server) handleCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := s.pages.Category(apiContext(c), c.Param("category_id"), showAll(c))
		respondPage(c, data, err)
	}
}

// handlePostDetail は投稿詳細ページのデータを返すハンドラを返す。
func (s *Server) handlePostDetail() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := s.pages.PostDetail(apiContext(c), c.Param("post_id"), showAll(c))
		respondPage(c, data, err)
	}
}

// handleSearch は検索結果ページのデータを返すハンドラを返す。
func (s *Server) handleSearch() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.pages.Search(apiContext(c), strings.TrimSpace(c.Query("q"))))
	}
}

// handleAccount はアカウントページのデータを返すハンドラを返す。
func (s *Server) handleAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 保護ルートのためGateによりIdentityが設定済み
		c.JSON(http.StatusOK, s.pages.Account(apiContext(c), middleware.GetIdentity(c)))
	}
}

// handleSubmitPage は投稿作成ページのデータを返すハンドラを返す。
func (s *Server) handleSubmitPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := s.pages.Submit(apiContext(c), c.Query("subtidder"))
		respondPage(c, data, err)
	}
}

// credentialsForm はログイン・登録フォーム。
type credentialsForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// handleLogin はログインをAPIへ中継するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var form credentialsForm
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名とパスワードは必須です"})
			return
		}
		result, err := s.api.Login(apiContext(c), form.Username, form.Password)
		relay(c, result, err, "/")
	}
}

// handleRegister はユーザー登録をAPIへ中継するハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var form credentialsForm
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名とパスワードは必須です"})
			return
		}
		result, err := s.api.Register(apiContext(c), form.Username, form.Password)
		relay(c, result, err, "/")
	}
}

// handleLogout はログアウトをAPIへ中継するハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.api.Logout(apiContext(c))
		relay(c, result, err, "/")
	}
}

// createPostForm は投稿作成フォーム。
type createPostForm struct {
	Title       string `form:"title" binding:"required"`
	Body        string `form:"body"`
	CategoryID  string `form:"category_id"`
	NewCategory string `form:"new_category"`
	// Draft はチェックボックスの値（"on"）または "true"。
	Draft string `form:"draft"`
}

// handleCreatePost は投稿作成をAPIへ中継するハンドラを返す。
// 作成後は投稿詳細ページへ遷移する。
func (s *Server) handleCreatePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		var form createPostForm
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "タイトルは必須です"})
			return
		}
		if form.CategoryID == "" && strings.TrimSpace(form.NewCategory) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "カテゴリを指定してください"})
			return
		}

		result, err := s.api.CreatePost(apiContext(c), api.CreatePostForm{
			Title:       form.Title,
			Body:        form.Body,
			CategoryID:  form.CategoryID,
			NewCategory: strings.TrimSpace(form.NewCategory),
			Draft:       form.Draft == "on" || form.Draft == "true",
		})
		next := "/"
		if err == nil && result.OK() {
			var created api.CreatedPost
			if json.Unmarshal(result.Body, &created) == nil && created.CategoryID != "" && created.PostID != "" {
				next = "/s/" + url.PathEscape(created.CategoryID) + "/" + url.PathEscape(created.PostID)
			}
		}
		relay(c, result, err, next)
	}
}

// handleCreateComment はコメント投稿をAPIへ中継するハンドラを返す。
func (s *Server) handleCreateComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := strings.TrimSpace(c.PostForm("body"))
		if body == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "コメントを入力してください"})
			return
		}
		postID := c.Param("post_id")
		result, err := s.api.CreateComment(apiContext(c), postID, body)
		relay(c, result, err, "/s/"+url.PathEscape(c.Param("category_id"))+"/"+url.PathEscape(postID))
	}
}

// handlePublishPost は下書きの公開をAPIへ中継するハンドラを返す。
func (s *Server) handlePublishPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.api.PublishPost(apiContext(c), c.Param("post_id"))
		relay(c, result, err, "/account")
	}
}

// handleDeletePost は投稿の削除をAPIへ中継するハンドラを返す。
func (s *Server) handleDeletePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.api.DeletePost(apiContext(c), c.Param("post_id"))
		relay(c, result, err, "/account")
	}
}

// handleDeleteComment はコメントの削除をAPIへ中継するハンドラを返す。
func (s *Server) handleDeleteComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.api.DeleteComment(apiContext(c), c.Param("comment_id"))
		relay(c, result, err, "/")
	}
}

// handleUploadAvatar はアバター画像のアップロードをAPIへ中継するハンドラを返す。
func (s *Server) handleUploadAvatar() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarSize)

		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "画像ファイルを指定してください"})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "画像ファイルを読み取れません"})
			return
		}
		defer file.Close()

		result, err := s.api.UploadAvatar(apiContext(c), header.Filename, file)
		relay(c, result, err, "/account")
	}
}

// relay はAPIの応答をブラウザへ中継する。
//
// APIのSet-Cookieはそのまま転送する。成功時にクライアントがHTMLを要求していれば
// nextへ303で遷移させ、それ以外はAPIのステータスとボディをそのまま返す。
func relay(c *gin.Context, result *api.ActionResult, err error, next string) {
	if err != nil {
		log.Printf("[Action] APIの呼び出しに失敗: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "APIに接続できません"})
		return
	}

	for _, ck := range result.Cookies {
		http.SetCookie(c.Writer, ck)
	}

	if result.OK() && wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, next)
		return
	}
	if len(result.Body) == 0 {
		c.Status(result.StatusCode)
		return
	}
	c.Data(result.StatusCode, "application/json; charset=utf-8", result.Body)
}

// wantsHTML はクライアントがHTMLを要求しているかどうかを返す。
func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
