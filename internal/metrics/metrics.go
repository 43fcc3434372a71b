package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_registrations_total",
			Help: "Users registered, by assigned role",
		},
		[]string{"role"},
	)
	AffiliateCredit = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_affiliate_credit_total",
			Help: "Total affiliate income credited to uplines",
		},
	)
	ProofDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_proof_decisions_total",
			Help: "Proof workflow transitions, by decision",
		},
		[]string{"decision"},
	)
	Withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_withdrawals_total",
			Help: "Withdrawal requests and settlements, by resulting status",
		},
		[]string{"status"},
	)
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RateLimitBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(Registrations)
	prometheus.MustRegister(AffiliateCredit)
	prometheus.MustRegister(ProofDecisions)
	prometheus.MustRegister(Withdrawals)
	prometheus.MustRegister(RateLimitRequests)
	prometheus.MustRegister(RateLimitBlocked)
}
