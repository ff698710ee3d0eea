package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tribehub", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tribehub", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tribehub", Name: "content_mutations_total", Help: "Committed content mutations by kind and type."},
		[]string{"kind", "mutation"},
	)
	AssetsReclaimed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tribehub", Name: "assets_reclaimed_total", Help: "Orphaned asset keys removed from the object store."},
		[]string{"kind"},
	)
	AssetReclaimFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tribehub", Name: "asset_reclaim_failures_total", Help: "Orphaned asset keys that could not be removed."},
		[]string{"kind"},
	)
	AuditFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "tribehub", Name: "audit_write_failures_total", Help: "Audit records that could not be appended."},
	)
	QuotaRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tribehub", Name: "feature_quota_rejected_total", Help: "Promotions refused because the bucket was full."},
		[]string{"kind", "bucket"},
	)
	SweepRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tribehub", Name: "orphan_sweep_removed_total", Help: "Unreferenced objects removed by the orphan sweep."},
		[]string{"kind"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Mutations)
	reg.MustRegister(AssetsReclaimed)
	reg.MustRegister(AssetReclaimFailures)
	reg.MustRegister(AuditFailures)
	reg.MustRegister(QuotaRejected)
	reg.MustRegister(SweepRemoved)
}
