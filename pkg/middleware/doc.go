// Package middleware はtidders webで使用するGinミドルウェアを提供する。
//
// 中心となるのはリクエストゲート（Gate）で、identity Cookieのセッショントークンを
// APIの公開鍵で検証し、認証済みユーザーをコンテキストに設定したうえで、
// 保護ルートへの未認証アクセスを "/" へリダイレクトする。
// ほかにパニックリカバリ、CORS、リクエストID、レート制限を含む。
package middleware
