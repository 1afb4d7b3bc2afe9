// Package httpclient はtidders APIとのHTTP通信を行うクライアントを提供する。
//
// JSON、フォーム、マルチパート、プレーンテキストの各形式に対応し、
// ブラウザから受け取ったセッションCookieとリクエストIDをAPI呼び出しに引き継ぐ。
// 2xx以外のレスポンスは*StatusErrorとして返す。
package httpclient
