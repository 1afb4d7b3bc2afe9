// tidders-devkeysはローカル開発用のRSA鍵ペアを生成する。
// 生成した公開鍵をスタブAPIの /api/pubkey から返せば、
// -tokenで出力したセッショントークンをidentity Cookieとして使用できる。
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/tidders/pkg/middleware"
)

func main() {
	dir := flag.String("out", ".", "鍵ファイルの出力先ディレクトリ")
	bits := flag.Int("bits", 2048, "RSA鍵のビット数")
	token := flag.Bool("token", false, "生成した秘密鍵で署名したセッショントークンを標準出力に出力する")
	subject := flag.String("sub", "1", "トークンのsub（ユーザーID）")
	username := flag.String("username", "dev", "トークンのusername")
	role := flag.String("role", "user", "トークンのrole")
	ttl := flag.Duration("ttl", 365*24*time.Hour, "トークンの有効期間")
	flag.Parse()

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalf("RSA鍵の生成に失敗: %v", err)
	}

	if err := writeKeys(*dir, key); err != nil {
		log.Fatalf("鍵ファイルの書き込みに失敗: %v", err)
	}
	log.Printf("鍵ペアを出力しました: %s", *dir)

	if *token {
		signed, err := middleware.SignSessionToken(key, *subject, *username, *role, *ttl)
		if err != nil {
			log.Fatalf("トークンの署名に失敗: %v", err)
		}
		fmt.Println(signed)
	}
}

// writeKeys は秘密鍵（PKCS#8）と公開鍵（PKIX）をPEM形式でdirに書き込む。
func writeKeys(dir string, key *rsa.PrivateKey) error {
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("秘密鍵のエンコードに失敗: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("公開鍵のエンコードに失敗: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ディレクトリの作成に失敗: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	if err := os.WriteFile(filepath.Join(dir, "private.pem"), privPEM, 0o600); err != nil {
		return fmt.Errorf("private.pemの書き込みに失敗: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(filepath.Join(dir, "public.pem"), pubPEM, 0o644); err != nil {
		return fmt.Errorf("public.pemの書き込みに失敗: %w", err)
	}
	return nil
}
