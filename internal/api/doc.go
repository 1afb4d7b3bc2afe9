// Package api はtidders REST APIのクライアントを提供する。
//
// 読み取り系の呼び出しは型付きの結果を返し、2xx以外の応答は
// *httpclient.StatusErrorとして返す。ログインや投稿作成のような
// 状態を変更する呼び出しはステータスを検査せずActionResultを返し、
// APIの応答（Set-Cookieを含む）をそのままブラウザへ中継できるようにする。
package api
