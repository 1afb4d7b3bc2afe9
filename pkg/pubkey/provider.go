package pubkey

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/tidders/pkg/metrics"
)

// ErrKeyFetch は公開鍵の取得または解釈に失敗したことを表す。
// トークン不正とは異なり、運用上の障害として呼び出し元に伝播する。
var ErrKeyFetch = errors.New("公開鍵の取得に失敗")

// Fetcher は公開鍵の生データ（PEM文字列）を取得する。
// api.ClientがGET /api/pubkeyで実装する。
type Fetcher interface {
	FetchPublicKey(ctx context.Context) (string, error)
}

// fetchTimeout は公開鍵の取得1回あたりの上限時間。
const fetchTimeout = 15 * time.Second

// Provider はセッショントークン検証用の公開鍵を提供する。
// 初回呼び出し時に一度だけ取得し、プロセスの生存期間中キャッシュする。
// 有効期限と再取得は持たない。
type Provider struct {
	// fetcher は公開鍵の取得元。
	fetcher Fetcher
	// cached は取得とパースに成功した公開鍵。未取得の間はnil。
	cached atomic.Pointer[cachedKey]
	// group は同時に発生した初回取得を1回にまとめる。
	group singleflight.Group
}

// cachedKey は取得した公開鍵の文字列とパース結果。
type cachedKey struct {
	raw    string
	parsed *rsa.PublicKey
}

// NewProvider は新しいProviderを生成する。この時点では通信しない。
func NewProvider(fetcher Fetcher) *Provider {
	return &Provider{fetcher: fetcher}
}

// Key はキャッシュ済みの公開鍵文字列を返す。
// 未取得の場合のみAPIから取得する。取得失敗とPEMとして解釈できない鍵はキャッシュしない。
func (p *Provider) Key(ctx context.Context) (string, error) {
	k, err := p.load(ctx)
	if err != nil {
		return "", err
	}
	return k.raw, nil
}

// PublicKey はキャッシュ済みの公開鍵をRSA公開鍵として返す。
// PEMとして解釈できない鍵は取得失敗と同じく扱う。
func (p *Provider) PublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	k, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return k.parsed, nil
}

// load はキャッシュ済みの鍵を返し、なければ取得する。
// 取得は呼び出し元のキャンセルから切り離して行い、待っている呼び出し元は
// それぞれ自分のctxが終了した時点で待機をやめる。
func (p *Provider) load(ctx context.Context) (*cachedKey, error) {
	if k := p.cached.Load(); k != nil {
		return k, nil
	}

	ch := p.group.DoChan("pubkey", func() (any, error) {
		if k := p.cached.Load(); k != nil {
			return k, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return p.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrKeyFetch, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyFetch, res.Err)
		}
		return res.Val.(*cachedKey), nil
	}
}

// fetch はAPIから公開鍵を取得してパースし、成功した場合のみキャッシュする。
func (p *Provider) fetch(ctx context.Context) (*cachedKey, error) {
	raw, err := p.fetcher.FetchPublicKey(ctx)
	if err != nil {
		metrics.PubkeyFetchTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	parsed, err := jwt.ParseRSAPublicKeyFromPEM([]byte(raw))
	if err != nil {
		metrics.PubkeyFetchTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("PEMの解釈に失敗: %w", err)
	}
	metrics.PubkeyFetchTotal.WithLabelValues("ok").Inc()

	k := &cachedKey{raw: raw, parsed: parsed}
	p.cached.Store(k)
	log.Printf("[Pubkey] 公開鍵を取得しました (%d bytes)", len(raw))
	return k, nil
}
