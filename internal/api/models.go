package api

import "net/http"

// User はtiddersのユーザー。
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Post は投稿。
type Post struct {
	ID           string `json:"id,omitempty"`
	AuthorID     string `json:"author_id"`
	AuthorName   string `json:"author_name"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Upvotes      int    `json:"upvotes"`
	Downvotes    int    `json:"downvotes"`
	Published    bool   `json:"published"`
	Deleted      bool   `json:"deleted"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Category はカテゴリ（subtidder）。
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Posts はカテゴリ内の投稿数。APIが集計しない場合はnil。
	Posts *int64 `json:"posts,omitempty"`
}

// Comment は投稿へのコメント。
type Comment struct {
	ID         string `json:"id,omitempty"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	PostID     string `json:"post_id"`
	Body       string `json:"body"`
	Deleted    bool   `json:"deleted"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// PostWithCategory は投稿と所属カテゴリの組。GET /api/post/{id} の応答。
type PostWithCategory struct {
	Category Category `json:"category"`
	Post     Post     `json:"post"`
}

// AvatarURL はユーザーIDとアバター画像URLの組。
type AvatarURL struct {
	UserID string `json:"user_id"`
	// AvatarURL はアバター未設定の場合nil。
	AvatarURL *string `json:"avatar_url"`
}

// SearchResult は検索結果。
type SearchResult struct {
	Categories []Category `json:"categories"`
	Posts      []Post     `json:"posts"`
}

// CreatePostForm は投稿作成フォームの内容。
// CategoryIDとNewCategoryの両方が指定された場合はCategoryIDを優先する。
type CreatePostForm struct {
	Title       string
	Body        string
	CategoryID  string
	NewCategory string
	// Draft がtrueの場合は下書きとして保存する。
	Draft bool
}

// ActionResult は状態を変更するAPI呼び出しの生の結果。
// ステータスコードは検査しない。Set-Cookieをブラウザへ中継するためにCookiesを保持する。
type ActionResult struct {
	// StatusCode はAPIが返したHTTPステータスコード。
	StatusCode int
	// Cookies はAPIが返したSet-Cookie。
	Cookies []*http.Cookie
	// Body はAPIが返したレスポンスボディ。
	Body []byte
}

// OK はAPIが2xxを返したかどうかを返す。
func (r *ActionResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CreatedPost はPOST /api/post の応答。
type CreatedPost struct {
	CategoryID string `json:"category_id"`
	PostID     string `json:"post_id"`
}

type postsEnvelope struct {
	Posts []Post `json:"posts"`
}

type categoriesEnvelope struct {
	Categories []Category `json:"categories"`
}

type categoryEnvelope struct {
	Category Category `json:"category"`
}

type commentsEnvelope struct {
	Comments []Comment `json:"comments"`
}

type avatarsEnvelope struct {
	URLs []AvatarURL `json:"urls"`
}
