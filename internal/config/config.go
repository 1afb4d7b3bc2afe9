// Package config はtidders webの設定を環境変数から読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はtidders webの設定。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string `env:"PORT" envDefault:"8080"`
	// APIURL はtidders APIのベースURL。
	APIURL string `env:"PUBLIC_API_URL,required"`
	// FrontendURL はCORSで許可するオリジン。
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	// ContentSecurityPolicy が空でなければすべての応答にContent-Security-Policyを付与する。
	ContentSecurityPolicy string `env:"CSP"`
	// GateDebug が有効な場合、トークン検証に失敗した理由をログに出力する。
	GateDebug bool `env:"GATE_DEBUG" envDefault:"false"`
	// LoginRatePerSec はログイン・登録のIPごとの秒間許可数。
	LoginRatePerSec float64 `env:"LOGIN_RATE_PER_SEC" envDefault:"1"`
	// LoginBurst はログイン・登録のIPごとのバースト数。
	LoginBurst int `env:"LOGIN_BURST" envDefault:"5"`
}

// Load はカレントディレクトリの.envを読み込んだうえで環境変数から設定を生成する。
// .envが存在しない場合は環境変数のみを使用する。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}
	return parse(env.Options{})
}

// FromMap は与えられた変数から設定を生成する。プロセスの環境変数は参照しない。
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("環境変数の解析に失敗: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate は設定値の整合性を検査する。
func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PUBLIC_API_URLが不正です: %q", c.APIURL)
	}
	if c.LoginRatePerSec <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_SECは正の値である必要があります: %v", c.LoginRatePerSec)
	}
	if c.LoginBurst <= 0 {
		return fmt.Errorf("LOGIN_BURSTは正の値である必要があります: %d", c.LoginBurst)
	}
	return nil
}
