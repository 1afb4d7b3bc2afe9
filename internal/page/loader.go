package page

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/tidders/internal/api"
	"github.com/nao1215/tidders/pkg/metrics"
	"github.com/nao1215/tidders/pkg/middleware"
)

// ErrNotFound はページの主となるデータを取得できなかったことを表す。
var ErrNotFound = errors.New("ページが見つかりません")

// Source はローダーが使用するtidders APIの読み取り操作。
type Source interface {
	PopularPosts(ctx context.Context, showAll bool) ([]api.Post, error)
	OwnPosts(ctx context.Context) ([]api.Post, error)
	Post(ctx context.Context, postID string, showAll bool) (*api.PostWithCategory, error)
	Comments(ctx context.Context, postID string, showAll bool) ([]api.Comment, error)
	Categories(ctx context.Context) ([]api.Category, error)
	Category(ctx context.Context, categoryID string) (*api.Category, error)
	CategoryPosts(ctx context.Context, categoryID string, showAll bool) ([]api.Post, error)
	Search(ctx context.Context, query string) (*api.SearchResult, error)
	AvatarURLs(ctx context.Context, userIDs []string) ([]api.AvatarURL, error)
}

// Loader はページごとの表示データを組み立てる。
type Loader struct {
	source Source
}

// NewLoader は新しいLoaderを生成する。
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// HomeData はトップページのデータ。
type HomeData struct {
	Posts      []api.Post     `json:"posts"`
	Categories []api.Category `json:"categories"`
}

// Home はトップページのデータを取得する。
// どちらの取得に失敗しても空の一覧として扱う。
func (l *Loader) Home(ctx context.Context, showAll bool) *HomeData {
	defer observe("home", time.Now())

	data := &HomeData{Posts: []api.Post{}, Categories: []api.Category{}}

	var g errgroup.Group
	g.Go(func() error {
		posts, err := l.source.PopularPosts(ctx, showAll)
		if err != nil {
			log.Printf("[Page] 人気の投稿を取得できません: %v", err)
			return nil
		}
		data.Posts = nonNil(posts)
		return nil
	})
	g.Go(func() error {
		categories, err := l.source.Categories(ctx)
		if err != nil {
			log.Printf("[Page] カテゴリ一覧を取得できません: %v", err)
			return nil
		}
		data.Categories = nonNil(categories)
		return nil
	})
	_ = g.Wait()

	return data
}

// CategoryData はカテゴリページのデータ。
type CategoryData struct {
	Category *api.Category `json:"category"`
	Posts    []api.Post    `json:"posts"`
}

// Category はカテゴリページのデータを取得する。
// カテゴリを取得できない場合はErrNotFoundを返す。投稿の取得失敗は空の一覧として扱う。
func (l *Loader) Category(ctx context.Context, categoryID string, showAll bool) (*CategoryData, error) {
	defer observe("category", time.Now())

	data := &CategoryData{Posts: []api.Post{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		category, err := l.source.Category(gctx, categoryID)
		if err != nil {
			return errors.Join(ErrNotFound, err)
		}
		data.Category = category
		return nil
	})
	g.Go(func() error {
		posts, err := l.source.CategoryPosts(gctx, categoryID, showAll)
		if err != nil {
			log.Printf("[Page] カテゴリの投稿を取得できません: category_id=%s: %v", categoryID, err)
			return nil
		}
		data.Posts = nonNil(posts)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return data, nil
}

// Avatar はアバター画像URL。未設定の場合AvatarURLはnil。
type Avatar struct {
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// PostDetailData は投稿詳細ページのデータ。
type PostDetailData struct {
	PostData *api.PostWithCategory `json:"post_data"`
	Comments []api.Comment         `json:"comments"`
	// AvatarURLs はコメント投稿者のユーザーIDをキーとするアバター。取得に失敗した場合はnil。
	AvatarURLs map[string]Avatar `json:"avatar_urls"`
}

// PostDetail は投稿詳細ページのデータを取得する。
// 投稿を取得できない場合はErrNotFoundを返す。コメントの取得失敗は空の一覧として扱う。
// アバターはコメント取得後に投稿者の重複を除いて取得する。
func (l *Loader) PostDetail(ctx context.Context, postID string, showAll bool) (*PostDetailData, error) {
	defer observe("post_detail", time.Now())

	data := &PostDetailData{Comments: []api.Comment{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		post, err := l.source.Post(gctx, postID, showAll)
		if err != nil {
			return errors.Join(ErrNotFound, err)
		}
		data.PostData = post
		return nil
	})
	g.Go(func() error {
		comments, err := l.source.Comments(gctx, postID, showAll)
		if err != nil {
			log.Printf("[Page] コメントを取得できません: post_id=%s: %v", postID, err)
		} else {
			data.Comments = nonNil(comments)
		}
		data.AvatarURLs = l.commentAvatars(gctx, data.Comments)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return data, nil
}

// commentAvatars はコメント投稿者のアバターをユーザーIDで引けるように取得する。
func (l *Loader) commentAvatars(ctx context.Context, comments []api.Comment) map[string]Avatar {
	seen := make(map[string]struct{}, len(comments))
	userIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.AuthorID]; ok {
			continue
		}
		seen[c.AuthorID] = struct{}{}
		userIDs = append(userIDs, c.AuthorID)
	}
	if len(userIDs) == 0 {
		return map[string]Avatar{}
	}

	urls, err := l.source.AvatarURLs(ctx, userIDs)
	if err != nil {
		log.Printf("[Page] アバターを取得できません: %v", err)
		return nil
	}
	avatars := make(map[string]Avatar, len(urls))
	for _, u := range urls {
		avatars[u.UserID] = Avatar{AvatarURL: u.AvatarURL}
	}
	return avatars
}

// AccountData はアカウントページのデータ。
type AccountData struct {
	User *middleware.Identity `json:"user"`
	// AvatarURL は取得に失敗した場合や未設定の場合nil。
	AvatarURL *string    `json:"avatar_url"`
	Posts     []api.Post `json:"posts"`
}

// Account はログイン中のユーザーのアカウントページのデータを取得する。
func (l *Loader) Account(ctx context.Context, user *middleware.Identity) *AccountData {
	defer observe("account", time.Now())

	data := &AccountData{User: user, Posts: []api.Post{}}

	var g errgroup.Group
	g.Go(func() error {
		urls, err := l.source.AvatarURLs(ctx, []string{user.Subject})
		if err != nil {
			log.Printf("[Page] アバターを取得できません: user_id=%s: %v", user.Subject, err)
			return nil
		}
		if len(urls) > 0 {
			data.AvatarURL = urls[0].AvatarURL
		}
		return nil
	})
	g.Go(func() error {
		posts, err := l.source.OwnPosts(ctx)
		if err != nil {
			log.Printf("[Page] 自分の投稿を取得できません: user_id=%s: %v", user.Subject, err)
			return nil
		}
		data.Posts = nonNil(posts)
		return nil
	})
	_ = g.Wait()

	return data
}

// SubmitData は投稿作成ページのデータ。
type SubmitData struct {
	Categories []api.Category `json:"categories"`
}

// Submit は投稿作成ページのデータを取得する。
// subtidderが指定された場合はそのカテゴリのみを返す。取得に失敗した場合はErrNotFoundを返す。
func (l *Loader) Submit(ctx context.Context, subtidder string) (*SubmitData, error) {
	defer observe("submit", time.Now())

	if subtidder != "" {
		category, err := l.source.Category(ctx, subtidder)
		if err != nil {
			return nil, errors.Join(ErrNotFound, err)
		}
		return &SubmitData{Categories: []api.Category{*category}}, nil
	}

	categories, err := l.source.Categories(ctx)
	if err != nil {
		return nil, errors.Join(ErrNotFound, err)
	}
	return &SubmitData{Categories: nonNil(categories)}, nil
}

// Search は検索結果ページのデータを取得する。
// クエリが空の場合や検索に失敗した場合は空の結果を返す。
func (l *Loader) Search(ctx context.Context, query string) *api.SearchResult {
	defer observe("search", time.Now())

	empty := &api.SearchResult{Categories: []api.Category{}, Posts: []api.Post{}}
	if query == "" {
		return empty
	}

	result, err := l.source.Search(ctx, query)
	if err != nil {
		log.Printf("[Page] 検索に失敗: %v", err)
		return empty
	}
	result.Categories = nonNil(result.Categories)
	result.Posts = nonNil(result.Posts)
	return result
}

// observe はページの読み込み時間を記録する。
func observe(page string, start time.Time) {
	metrics.PageLoadDuration.WithLabelValues(page).Observe(time.Since(start).Seconds())
}

// nonNil はJSONでnullではなく[]になるようにnilスライスを空スライスに置き換える。
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
