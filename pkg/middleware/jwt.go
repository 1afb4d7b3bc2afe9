package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookie はセッショントークンを格納するCookie名。
	SessionCookie = "identity"
	// Issuer はtidders APIが発行するトークンのissクレーム。
	Issuer = "tidders"
	// signingAlgorithm は受け入れる唯一の署名アルゴリズム。
	signingAlgorithm = "RS256"
)

// errEmptySubject はsubクレームが空のトークンを表す。
var errEmptySubject = errors.New("subクレームが空です")

// SessionClaims はセッショントークンのクレーム（ペイロード）を表す。
type SessionClaims struct {
	jwt.RegisteredClaims
	// Username はユーザーの表示名。
	Username string `json:"username"`
	// Role はユーザーの権限ロール。
	Role string `json:"role"`
}

// Identity は検証済みトークンから得た、リクエスト単位の認証済みユーザー。
// 永続化はしない。
type Identity struct {
	// Subject はユーザーの一意識別子（subクレーム）。
	Subject string `json:"id"`
	// Username はユーザーの表示名。
	Username string `json:"username"`
	// Role はユーザーの権限ロール。
	Role string `json:"role"`
}

// SignSessionToken はRS256で署名したセッショントークンを生成する。
// 本番のトークン発行はtidders APIが行う。テストと開発用ツールから使用する。
func SignSessionToken(priv *rsa.PrivateKey, subject, username, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: username,
		Role:     role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("セッショントークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// KeySource は検証に使うRSA公開鍵を提供する。pubkey.Providerが実装する。
type KeySource interface {
	PublicKey(ctx context.Context) (*rsa.PublicKey, error)
}

// TokenVerifier はセッショントークンを検証する。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (VerifyResult, error)
}

// VerifyResult はトークン検証の結果。
// Identityが設定されていれば検証成功、nilならReasonに失敗理由が入る。
type VerifyResult struct {
	// Identity は検証に成功した場合のユーザー。
	Identity *Identity
	// Reason は検証に失敗した理由。
	Reason error
}

// Verified は検証に成功したかどうかを返す。
func (r VerifyResult) Verified() bool {
	return r.Identity != nil
}

// Verifier はRS256・issuer固定でセッショントークンを検証する。
type Verifier struct {
	// keys は公開鍵の取得元。
	keys KeySource
}

// NewVerifier は新しいVerifierを生成する。
func NewVerifier(keys KeySource) *Verifier {
	return &Verifier{keys: keys}
}

// Verify はトークンを検証する。
// 署名不正・issuer不一致・アルゴリズム不一致・期限切れ・形式不正はすべて
// エラーではなく未検証の結果として返す。errorを返すのは公開鍵を取得できない場合だけ。
func (v *Verifier) Verify(ctx context.Context, token string) (VerifyResult, error) {
	key, err := v.keys.PublicKey(ctx)
	if err != nil {
		return VerifyResult{}, err
	}

	claims := &SessionClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{signingAlgorithm}),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return VerifyResult{Reason: err}, nil
	}
	if claims.Subject == "" {
		return VerifyResult{Reason: errEmptySubject}, nil
	}

	return VerifyResult{Identity: &Identity{
		Subject:  claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}}, nil
}
