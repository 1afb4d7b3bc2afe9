package page

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/nao1215/tidders/internal/api"
	"github.com/nao1215/tidders/pkg/middleware"
)

var errUnavailable = errors.New("api unavailable")

// fakeSource はテスト用のSource。未設定のフィールドはerrUnavailableを返す。
type fakeSource struct {
	popular       []api.Post
	own           []api.Post
	post          *api.PostWithCategory
	comments      []api.Comment
	commentsErr   bool
	categories    []api.Category
	category      *api.Category
	categoryPosts []api.Post
	search        *api.SearchResult
	avatars       []api.AvatarURL

	avatarCalls  atomic.Int32
	searchCalls  atomic.Int32
	avatarUserID atomic.Value
}

func (f *fakeSource) PopularPosts(_ context.Context, _ bool) ([]api.Post, error) {
	if f.popular == nil {
		return nil, errUnavailable
	}
	return f.popular, nil
}

func (f *fakeSource) OwnPosts(_ context.Context) ([]api.Post, error) {
	if f.own == nil {
		return nil, errUnavailable
	}
	return f.own, nil
}

func (f *fakeSource) Post(_ context.Context, _ string, _ bool) (*api.PostWithCategory, error) {
	if f.post == nil {
		return nil, errUnavailable
	}
	return f.post, nil
}

func (f *fakeSource) Comments(_ context.Context, _ string, _ bool) ([]api.Comment, error) {
	if f.commentsErr {
		return nil, errUnavailable
	}
	return f.comments, nil
}

func (f *fakeSource) Categories(_ context.Context) ([]api.Category, error) {
	if f.categories == nil {
		return nil, errUnavailable
	}
	return f.categories, nil
}

func (f *fakeSource) Category(_ context.Context, _ string) (*api.Category, error) {
	if f.category == nil {
		return nil, errUnavailable
	}
	return f.category, nil
}

func (f *fakeSource) CategoryPosts(_ context.Context, _ string, _ bool) ([]api.Post, error) {
	if f.categoryPosts == nil {
		return nil, errUnavailable
	}
	return f.categoryPosts, nil
}

func (f *fakeSource) Search(_ context.Context, _ string) (*api.SearchResult, error) {
	f.searchCalls.Add(1)
	if f.search == nil {
		return nil, errUnavailable
	}
	return f.search, nil
}

func (f *fakeSource) AvatarURLs(_ context.Context, userIDs []string) ([]api.AvatarURL, error) {
	f.avatarCalls.Add(1)
	f.avatarUserID.Store(userIDs)
	if f.avatars == nil {
		return nil, errUnavailable
	}
	return f.avatars, nil
}

func strPtr(s string) *string { return &s }

// TestHome はHomeローダーを検証する。
func TestHome(t *testing.T) {
	t.Parallel()

	t.Run("投稿とカテゴリを返すこと", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{
			popular:    []api.Post{{ID: "p1"}},
			categories: []api.Category{{ID: "c1"}, {ID: "c2"}},
		}

		data := NewLoader(source).Home(context.Background(), false)
		if len(data.Posts) != 1 || len(data.Categories) != 2 {
			t.Errorf("Home() = %+v", data)
		}
	})

	t.Run("取得に失敗した場合は空の一覧になること", func(t *testing.T) {
		t.Parallel()

		data := NewLoader(&fakeSource{}).Home(context.Background(), true)
		if data.Posts == nil || len(data.Posts) != 0 {
			t.Errorf("Posts = %#v, want empty slice", data.Posts)
		}
		if data.Categories == nil || len(data.Categories) != 0 {
			t.Errorf("Categories = %#v, want empty slice", data.Categories)
		}
	})
}

// TestCategory はCategoryローダーを検証する。
func TestCategory(t *testing.T) {
	t.Parallel()

	t.Run("カテゴリと投稿を返すこと", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{
			category:      &api.Category{ID: "c1", Name: "golang"},
			categoryPosts: []api.Post{{ID: "p1"}},
		}

		data, err := NewLoader(source).Category(context.Background(), "c1", false)
		if err != nil {
			t.Fatalf("Category()でエラーが発生: %v", err)
		}
		if data.Category.Name != "golang" || len(data.Posts) != 1 {
			t.Errorf("Category() = %+v", data)
		}
	})

	t.Run("カテゴリを取得できない場合はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		_, err := NewLoader(&fakeSource{categoryPosts: []api.Post{}}).Category(context.Background(), "missing", false)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("投稿の取得に失敗しても空の一覧で返ること", func(t *testing.T) {
		t.Parallel()

		data, err := NewLoader(&fakeSource{category: &api.Category{ID: "c1"}}).Category(context.Background(), "c1", false)
		if err != nil {
			t.Fatalf("Category()でエラーが発生: %v", err)
		}
		if data.Posts == nil || len(data.Posts) != 0 {
			t.Errorf("Posts = %#v, want empty slice", data.Posts)
		}
	})
}

// TestPostDetail はPostDetailローダーを検証する。
func TestPostDetail(t *testing.T) {
	t.Parallel()

	post := &api.PostWithCategory{
		Category: api.Category{ID: "c1"},
		Post:     api.Post{ID: "p1", Title: "hello"},
	}

	t.Run("投稿・コメント・アバターを返すこと", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{
			post: post,
			comments: []api.Comment{
				{ID: "m1", AuthorID: "u1"},
				{ID: "m2", AuthorID: "u2"},
				{ID: "m3", AuthorID: "u1"},
			},
			avatars: []api.AvatarURL{
				{UserID: "u1", AvatarURL: strPtr("/public/avatar/u1.png")},
				{UserID: "u2"},
			},
		}

		data, err := NewLoader(source).PostDetail(context.Background(), "p1", false)
		if err != nil {
			t.Fatalf("PostDetail()でエラーが発生: %v", err)
		}
		if data.PostData.Post.Title != "hello" {
			t.Errorf("PostData = %+v", data.PostData)
		}
		if len(data.Comments) != 3 {
			t.Errorf("len(Comments) = %d, want 3", len(data.Comments))
		}
		if got := data.AvatarURLs["u1"].AvatarURL; got == nil || *got != "/public/avatar/u1.png" {
			t.Errorf("AvatarURLs[u1] = %v", got)
		}
		if _, ok := data.AvatarURLs["u2"]; !ok {
			t.Error("AvatarURLs[u2] が存在しない")
		}

		// 投稿者の重複が除かれていること
		ids, _ := source.avatarUserID.Load().([]string)
		if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
			t.Errorf("user_ids = %v, want [u1 u2]", ids)
		}
	})

	t.Run("投稿を取得できない場合はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		_, err := NewLoader(&fakeSource{}).PostDetail(context.Background(), "missing", false)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("コメントの取得に失敗した場合は空の一覧でアバターを取得しないこと", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{post: post, commentsErr: true}

		data, err := NewLoader(source).PostDetail(context.Background(), "p1", false)
		if err != nil {
			t.Fatalf("PostDetail()でエラーが発生: %v", err)
		}
		if data.Comments == nil || len(data.Comments) != 0 {
			t.Errorf("Comments = %#v, want empty slice", data.Comments)
		}
		if n := source.avatarCalls.Load(); n != 0 {
			t.Errorf("アバター取得回数 = %d, want 0", n)
		}
	})

	t.Run("アバターの取得に失敗した場合はnilになること", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{post: post, comments: []api.Comment{{ID: "m1", AuthorID: "u1"}}}

		data, err := NewLoader(source).PostDetail(context.Background(), "p1", false)
		if err != nil {
			t.Fatalf("PostDetail()でエラーが発生: %v", err)
		}
		if data.AvatarURLs != nil {
			t.Errorf("AvatarURLs = %v, want nil", data.AvatarURLs)
		}
	})
}

// TestAccount はAccountローダーを検証する。
func TestAccount(t *testing.T) {
	t.Parallel()

	user := &middleware.Identity{Subject: "42", Username: "alice", Role: "user"}

	t.Run("アバターと自分の投稿を返すこと", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{
			own:     []api.Post{{ID: "p1"}, {ID: "p2"}},
			avatars: []api.AvatarURL{{UserID: "42", AvatarURL: strPtr("/public/avatar/42.png")}},
		}

		data := NewLoader(source).Account(context.Background(), user)
		if data.User != user {
			t.Errorf("User = %+v, want %+v", data.User, user)
		}
		if data.AvatarURL == nil || *data.AvatarURL != "/public/avatar/42.png" {
			t.Errorf("AvatarURL = %v", data.AvatarURL)
		}
		if len(data.Posts) != 2 {
			t.Errorf("len(Posts) = %d, want 2", len(data.Posts))
		}
		ids, _ := source.avatarUserID.Load().([]string)
		if len(ids) != 1 || ids[0] != "42" {
			t.Errorf("user_ids = %v, want [42]", ids)
		}
	})

	t.Run("取得に失敗した場合はnilと空の一覧になること", func(t *testing.T) {
		t.Parallel()

		data := NewLoader(&fakeSource{}).Account(context.Background(), user)
		if data.AvatarURL != nil {
			t.Errorf("AvatarURL = %v, want nil", *data.AvatarURL)
		}
		if data.Posts == nil || len(data.Posts) != 0 {
			t.Errorf("Posts = %#v, want empty slice", data.Posts)
		}
	})
}

// TestSubmit はSubmitローダーを検証する。
func TestSubmit(t *testing.T) {
	t.Parallel()

	t.Run("カテゴリ一覧を返すこと", func(t *testing.T) {
		t.Parallel()

		data, err := NewLoader(&fakeSource{categories: []api.Category{{ID: "c1"}, {ID: "c2"}}}).Submit(context.Background(), "")
		if err != nil {
			t.Fatalf("Submit()でエラーが発生: %v", err)
		}
		if len(data.Categories) != 2 {
			t.Errorf("len(Categories) = %d, want 2", len(data.Categories))
		}
	})

	t.Run("subtidder指定時はそのカテゴリのみを返すこと", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{
			categories: []api.Category{{ID: "c1"}, {ID: "c2"}},
			category:   &api.Category{ID: "c2", Name: "rust"},
		}

		data, err := NewLoader(source).Submit(context.Background(), "c2")
		if err != nil {
			t.Fatalf("Submit()でエラーが発生: %v", err)
		}
		if len(data.Categories) != 1 || data.Categories[0].Name != "rust" {
			t.Errorf("Categories = %+v", data.Categories)
		}
	})

	t.Run("取得に失敗した場合はErrNotFoundになること", func(t *testing.T) {
		t.Parallel()

		loader := NewLoader(&fakeSource{})
		if _, err := loader.Submit(context.Background(), ""); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		if _, err := loader.Submit(context.Background(), "c9"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

// TestSearch はSearchローダーを検証する。
func TestSearch(t *testing.T) {
	t.Parallel()

	t.Run("空のクエリではAPIを呼ばないこと", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{}
		result := NewLoader(source).Search(context.Background(), "")
		if len(result.Posts) != 0 || len(result.Categories) != 0 {
			t.Errorf("Search() = %+v, want empty", result)
		}
		if n := source.searchCalls.Load(); n != 0 {
			t.Errorf("検索回数 = %d, want 0", n)
		}
	})

	t.Run("検索結果を返すこと", func(t *testing.T) {
		t.Parallel()

		source := &fakeSource{search: &api.SearchResult{Posts: []api.Post{{ID: "p1"}}}}
		result := NewLoader(source).Search(context.Background(), "go")
		if len(result.Posts) != 1 {
			t.Errorf("len(Posts) = %d, want 1", len(result.Posts))
		}
		if result.Categories == nil {
			t.Error("Categoriesがnil")
		}
	})

	t.Run("検索に失敗した場合は空の結果になること", func(t *testing.T) {
		t.Parallel()

		result := NewLoader(&fakeSource{}).Search(context.Background(), "go")
		if result.Posts == nil || len(result.Posts) != 0 {
			t.Errorf("Posts = %#v, want empty slice", result.Posts)
		}
	})
}
