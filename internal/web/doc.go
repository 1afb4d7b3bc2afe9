// Package web はtidders webのHTTPサーバーを提供する。
//
// すべてのリクエストはリクエストゲート（middleware.Gate）を通過する。
// ゲートはidentity Cookieのセッショントークンを検証してIdentityを設定し、
// 未認証で保護ルートにアクセスした場合は "/" へリダイレクトする。
// ページルートはローダーが組み立てたデータをJSONで返し、
// フォームアクションはtidders APIへ中継してSet-Cookieをブラウザへ返す。
package web
