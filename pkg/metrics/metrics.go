// Package metrics はtidders webのPrometheusメトリクスを定義する。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PubkeyFetchTotal は公開鍵取得の回数を結果別に数える。
	PubkeyFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tidders",
			Name:      "pubkey_fetch_total",
			Help:      "Total number of public key fetches from the API",
		},
		[]string{"result"},
	)

	// GateDecisionsTotal はリクエストゲートの終端状態を数える。
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tidders",
			Name:      "gate_decisions_total",
			Help:      "Total number of request gate decisions by terminal state",
		},
		[]string{"state"},
	)

	// TokenVerificationsTotal はセッショントークン検証の結果を数える。
	TokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tidders",
			Name:      "token_verifications_total",
			Help:      "Total number of session token verifications by outcome",
		},
		[]string{"outcome"},
	)

	// PageLoadDuration はページローダーの処理時間を計測する。
	PageLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tidders",
			Name:      "page_load_duration_seconds",
			Help:      "Duration of page data loads in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"page"},
	)
)
