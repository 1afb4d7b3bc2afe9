// Package pubkey はセッショントークンの署名検証に使う公開鍵を提供する。
//
// 公開鍵はtidders APIのGET /api/pubkeyから最初に必要になった時点で一度だけ取得し、
// 以後はプロセス終了まで同じ値を返す。APIの鍵がローテーションされた場合は
// プロセスを再起動するまで古い鍵を使い続ける。
package pubkey
