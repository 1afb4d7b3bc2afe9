// Package page はルートごとの表示データを組み立てるローダーを提供する。
//
// 各ローダーはtidders APIから必要なデータを並行して取得し、
// ページの主となるデータ以外の取得失敗は空の一覧やnilとして扱う。
// 主となるデータを取得できない場合はErrNotFoundを返す。
package page
