package config

import "testing"

// TestFromMap はFromMapを検証する。
func TestFromMap(t *testing.T) {
	t.Parallel()

	t.Run("未指定の項目にデフォルト値が設定されること", func(t *testing.T) {
		t.Parallel()

		cfg, err := FromMap(map[string]string{"PUBLIC_API_URL": "http://localhost:8000"})
		if err != nil {
			t.Fatalf("FromMap()でエラーが発生: %v", err)
		}
		want := Config{
			Port:            "8080",
			APIURL:          "http://localhost:8000",
			FrontendURL:     "http://localhost:5173",
			GateDebug:       false,
			LoginRatePerSec: 1,
			LoginBurst:      5,
		}
		if *cfg != want {
			t.Errorf("FromMap() = %+v, want %+v", *cfg, want)
		}
	})

	t.Run("指定した値が反映されること", func(t *testing.T) {
		t.Parallel()

		cfg, err := FromMap(map[string]string{
			"PORT":               "3000",
			"PUBLIC_API_URL":     "https://api.tidders.example",
			"FRONTEND_URL":       "https://tidders.example",
			"CSP":                "default-src 'self'",
			"GATE_DEBUG":         "true",
			"LOGIN_RATE_PER_SEC": "0.5",
			"LOGIN_BURST":        "3",
		})
		if err != nil {
			t.Fatalf("FromMap()でエラーが発生: %v", err)
		}
		if cfg.Port != "3000" || cfg.FrontendURL != "https://tidders.example" {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.ContentSecurityPolicy != "default-src 'self'" || !cfg.GateDebug {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.LoginRatePerSec != 0.5 || cfg.LoginBurst != 3 {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	errorCases := []struct {
		name string
		vars map[string]string
	}{
		{
			name: "PUBLIC_API_URLが未設定の場合はエラーになること",
			vars: map[string]string{},
		},
		{
			name: "PUBLIC_API_URLがURLでない場合はエラーになること",
			vars: map[string]string{"PUBLIC_API_URL": "not a url"},
		},
		{
			name: "PUBLIC_API_URLのスキームが不正な場合はエラーになること",
			vars: map[string]string{"PUBLIC_API_URL": "ftp://api.tidders.example"},
		},
		{
			name: "LOGIN_BURSTが0の場合はエラーになること",
			vars: map[string]string{"PUBLIC_API_URL": "http://localhost:8000", "LOGIN_BURST": "0"},
		},
		{
			name: "LOGIN_RATE_PER_SECが負の場合はエラーになること",
			vars: map[string]string{"PUBLIC_API_URL": "http://localhost:8000", "LOGIN_RATE_PER_SEC": "-1"},
		},
		{
			name: "GATE_DEBUGが真偽値でない場合はエラーになること",
			vars: map[string]string{"PUBLIC_API_URL": "http://localhost:8000", "GATE_DEBUG": "maybe"},
		},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := FromMap(tc.vars); err == nil {
				t.Error("エラーが返されなかった")
			}
		})
	}
}
