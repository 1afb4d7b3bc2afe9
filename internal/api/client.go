package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/tidders/pkg/httpclient"
)

// Client はtidders REST APIのクライアント。
// ブラウザのセッションCookieはhttpclient.WithCookiesでコンテキストに設定して引き継ぐ。
type Client struct {
	hc *httpclient.Client
}

// New はbaseURL（PUBLIC_API_URL）を接続先とするクライアントを生成する。
func New(baseURL string) *Client {
	return &Client{hc: httpclient.New(baseURL)}
}

// FetchPublicKey はAPIのトークン署名検証用公開鍵（PEM）をテキストのまま取得する。
// pubkey.Fetcherを実装する。
func (c *Client) FetchPublicKey(ctx context.Context) (string, error) {
	key, err := c.hc.GetText(ctx, "/api/pubkey")
	if err != nil {
		return "", fmt.Errorf("公開鍵の取得に失敗: %w", err)
	}
	return key, nil
}

// Register はユーザー登録を行う。
func (c *Client) Register(ctx context.Context, username, password string) (*ActionResult, error) {
	return wrap(c.hc.PostForm(ctx, "/api/register", credentials(username, password)))
}

// Login はログインを行う。成功時はセッションCookieがActionResult.Cookiesに含まれる。
func (c *Client) Login(ctx context.Context, username, password string) (*ActionResult, error) {
	return wrap(c.hc.PostForm(ctx, "/api/login", credentials(username, password)))
}

// Logout はログアウトを行う。
func (c *Client) Logout(ctx context.Context) (*ActionResult, error) {
	return wrap(c.hc.Post(ctx, "/api/logout"))
}

// PopularPosts は人気の投稿一覧を取得する。
func (c *Client) PopularPosts(ctx context.Context, showAll bool) ([]Post, error) {
	var env postsEnvelope
	if err := c.hc.GetJSON(ctx, "/api/post/popular"+showAllQuery(showAll), &env); err != nil {
		return nil, fmt.Errorf("人気の投稿の取得に失敗: %w", err)
	}
	return env.Posts, nil
}

// OwnPosts はログイン中のユーザー自身の投稿一覧を取得する。
func (c *Client) OwnPosts(ctx context.Context) ([]Post, error) {
	var env postsEnvelope
	if err := c.hc.GetJSON(ctx, "/api/post/me", &env); err != nil {
		return nil, fmt.Errorf("自分の投稿の取得に失敗: %w", err)
	}
	return env.Posts, nil
}

// Post は投稿と所属カテゴリを取得する。
func (c *Client) Post(ctx context.Context, postID string, showAll bool) (*PostWithCategory, error) {
	var result PostWithCategory
	if err := c.hc.GetJSON(ctx, "/api/post/"+url.PathEscape(postID)+showAllQuery(showAll), &result); err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗: post_id=%s: %w", postID, err)
	}
	return &result, nil
}

// CreatePost は投稿を作成する。form.Draftがtrueの場合は下書きとして作成する。
func (c *Client) CreatePost(ctx context.Context, form CreatePostForm) (*ActionResult, error) {
	values := url.Values{}
	values.Set("title", form.Title)
	values.Set("body", form.Body)
	switch {
	case form.CategoryID != "":
		values.Set("category_id", form.CategoryID)
	case form.NewCategory != "":
		values.Set("new_category", form.NewCategory)
	}

	path := "/api/post"
	if form.Draft {
		path += "?draft=true"
	}
	return wrap(c.hc.PostForm(ctx, path, values))
}

// PublishPost は下書きの投稿を公開する。
func (c *Client) PublishPost(ctx context.Context, postID string) (*ActionResult, error) {
	return wrap(c.hc.Post(ctx, "/api/post/"+url.PathEscape(postID)+"/publish"))
}

// DeletePost は投稿を削除する。
func (c *Client) DeletePost(ctx context.Context, postID string) (*ActionResult, error) {
	return wrap(c.hc.Delete(ctx, "/api/post/"+url.PathEscape(postID)))
}

// Comments は投稿のコメント一覧を取得する。
func (c *Client) Comments(ctx context.Context, postID string, showAll bool) ([]Comment, error) {
	var env commentsEnvelope
	if err := c.hc.GetJSON(ctx, "/api/post/"+url.PathEscape(postID)+"/comment"+showAllQuery(showAll), &env); err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗: post_id=%s: %w", postID, err)
	}
	return env.Comments, nil
}

// CreateComment は投稿にコメントする。
func (c *Client) CreateComment(ctx context.Context, postID, body string) (*ActionResult, error) {
	return wrap(c.hc.PostForm(ctx, "/api/post/"+url.PathEscape(postID)+"/comment", url.Values{"body": {body}}))
}

// DeleteComment はコメントを削除する。
func (c *Client) DeleteComment(ctx context.Context, commentID string) (*ActionResult, error) {
	return wrap(c.hc.Delete(ctx, "/api/comment/"+url.PathEscape(commentID)))
}

// Categories はカテゴリ一覧を取得する。
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var env categoriesEnvelope
	if err := c.hc.GetJSON(ctx, "/api/category", &env); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗: %w", err)
	}
	return env.Categories, nil
}

// Category はカテゴリを1件取得する。
func (c *Client) Category(ctx context.Context, categoryID string) (*Category, error) {
	var env categoryEnvelope
	if err := c.hc.GetJSON(ctx, "/api/category/"+url.PathEscape(categoryID), &env); err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗: category_id=%s: %w", categoryID, err)
	}
	return &env.Category, nil
}

// CategoryPosts はカテゴリ内の投稿一覧を取得する。
func (c *Client) CategoryPosts(ctx context.Context, categoryID string, showAll bool) ([]Post, error) {
	var env postsEnvelope
	if err := c.hc.GetJSON(ctx, "/api/category/"+url.PathEscape(categoryID)+"/posts"+showAllQuery(showAll), &env); err != nil {
		return nil, fmt.Errorf("カテゴリの投稿の取得に失敗: category_id=%s: %w", categoryID, err)
	}
	return env.Posts, nil
}

// Search はカテゴリと投稿を検索する。
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	var result SearchResult
	if err := c.hc.GetJSON(ctx, "/api/search?"+url.Values{"q": {query}}.Encode(), &result); err != nil {
		return nil, fmt.Errorf("検索に失敗: %w", err)
	}
	return &result, nil
}

// AvatarURLs は複数ユーザーのアバター画像URLを取得する。
func (c *Client) AvatarURLs(ctx context.Context, userIDs []string) ([]AvatarURL, error) {
	query := url.Values{"user_ids": {strings.Join(userIDs, ",")}}.Encode()

	var env avatarsEnvelope
	if err := c.hc.GetJSON(ctx, "/api/avatar?"+query, &env); err != nil {
		return nil, fmt.Errorf("アバターURLの取得に失敗: %w", err)
	}
	return env.URLs, nil
}

// UploadAvatar はログイン中のユーザーのアバター画像をアップロードする。
func (c *Client) UploadAvatar(ctx context.Context, filename string, file io.Reader) (*ActionResult, error) {
	return wrap(c.hc.PostMultipart(ctx, "/api/upload/avatar", "file", filename, file))
}

// wrap はステータスを検査せずにレスポンスをActionResultへ変換する。
// エラーになるのは通信自体に失敗した場合のみ。
func wrap(resp *httpclient.Response, err error) (*ActionResult, error) {
	if err != nil {
		return nil, fmt.Errorf("APIの呼び出しに失敗: %w", err)
	}
	return &ActionResult{
		StatusCode: resp.StatusCode,
		Cookies:    resp.Cookies(),
		Body:       resp.Body,
	}, nil
}

func credentials(username, password string) url.Values {
	return url.Values{
		"username": {username},
		"password": {password},
	}
}

func showAllQuery(showAll bool) string {
	return "?show_all=" + strconv.FormatBool(showAll)
}
