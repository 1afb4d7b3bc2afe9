// tidders webのエントリポイント。
// ブラウザとtidders APIの間に立ち、すべてのリクエストでセッショントークンを検証する。
// ページデータの組み立てとフォームアクションのAPIへの中継を担当する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/tidders/internal/config"
	"github.com/nao1215/tidders/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(cfg)

	log.Printf("tidders webを起動します: :%s (API: %s)", cfg.Port, cfg.APIURL)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("tidders webの起動に失敗: %v", err)
	}
	log.Printf("tidders webを停止しました")
}
