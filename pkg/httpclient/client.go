package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client はtidders APIとの通信用HTTPクライアント。
// タイムアウトとベースURLの設定を持つ。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先APIのベースURL。
	baseURL string
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先APIのベースURL（例: "https://api.tidders.example"）を指定する。
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// StatusError はAPIが2xx以外のステータスを返したことを表すエラー。
type StatusError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, e.Body)
}

// Response はステータス検査を行わない生のレスポンス。
// フォームアクションのように、APIのステータスとSet-Cookieをブラウザへ中継する場合に使用する。
type Response struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Header はレスポンスヘッダー。
	Header http.Header
	// Body はレスポンスボディ。
	Body []byte
}

// Cookies はレスポンスのSet-Cookieヘッダーをパースして返す。
func (r *Response) Cookies() []*http.Cookie {
	return (&http.Response{Header: r.Header}).Cookies()
}

// GetJSON は指定パスにGETリクエストを送信する。
// 2xx以外は*StatusErrorとして返し、レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}

// GetText は指定パスにGETリクエストを送信し、レスポンスボディを文字列のまま返す。
func (c *Client) GetText(ctx context.Context, path string) (string, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return "", err
	}
	if err := checkStatus(resp); err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// Post はボディなしのPOSTリクエストを送信する。ステータスは検査しない。
func (c *Client) Post(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, "", nil)
}

// Delete は指定パスにDELETEリクエストを送信する。ステータスは検査しない。
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, "", nil)
}

// PostForm は指定パスにapplication/x-www-form-urlencoded形式でPOSTリクエストを送信する。
// ステータスは検査しない。
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// PostMultipart は指定パスにmultipart/form-data形式でファイルを1つ送信する。
// ステータスは検査しない。
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, file io.Reader) (*Response, error) {
	contentType, body, err := multipartBody(field, filename, file)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, http.MethodPost, path, contentType, body)
}

// multipartBody はファイルを1つ含むmultipart/form-dataのボディを組み立てる。
// 戻り値のcontentTypeにはバウンダリが含まれる。
func multipartBody(field, filename string, file io.Reader) (contentType string, body *bytes.Buffer, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return "", nil, fmt.Errorf("マルチパートの作成に失敗: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", nil, fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("マルチパートの終端処理に失敗: %w", err)
	}
	return w.FormDataContentType(), &buf, nil
}

// Do はリクエストを送信し、ステータスを検査せずにレスポンスを返す。
// contentTypeが空の場合はContent-Typeヘッダーを設定しない。
func (c *Client) Do(ctx context.Context, method, path, contentType string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	propagate(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// checkStatus は2xx以外のステータスを*StatusErrorに変換する。
func checkStatus(resp *Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return nil
}

// propagate はコンテキストに格納されたCookieとリクエストIDをリクエストに付与する。
func propagate(ctx context.Context, req *http.Request) {
	if cookies, ok := ctx.Value(contextKeyCookies).([]*http.Cookie); ok {
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
	}
	if requestID, ok := ctx.Value(contextKeyRequestID).(string); ok {
		req.Header.Set("X-Request-ID", requestID)
	}
}

// contextKey はコンテキストキーの型。
type contextKey string

const (
	// contextKeyCookies はAPIへ転送するCookieを格納するためのキー。
	contextKeyCookies contextKey = "cookies"
	// contextKeyRequestID はリクエストIDを格納するためのキー。
	contextKeyRequestID contextKey = "request_id"
)

// WithCookies はAPIへ転送するCookieをコンテキストに追加する。
// ブラウザのセッションCookieをAPI呼び出しに引き継ぐために使用する。
func WithCookies(ctx context.Context, cookies ...*http.Cookie) context.Context {
	existing, _ := ctx.Value(contextKeyCookies).([]*http.Cookie)
	merged := make([]*http.Cookie, 0, len(existing)+len(cookies))
	merged = append(merged, existing...)
	merged = append(merged, cookies...)
	return context.WithValue(ctx, contextKeyCookies, merged)
}

// WithRequestID はコンテキストにリクエストIDを設定する。
// API側のログとリクエストを突き合わせるために使用する。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
