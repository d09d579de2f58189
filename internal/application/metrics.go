package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emailsSentCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldrm",
			Name:      "emails_sent_total",
			Help:      "Total messages accepted by the SMTP relay.",
		},
		[]string{"kind"}, // "outreach" or "enrollment"
	)

	emailsFailedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldrm",
			Name:      "emails_failed_total",
			Help:      "Total dispatch attempts rejected or failed.",
		},
		[]string{"reason"}, // SMTP error code, "rate_limited", "quota", "decrypt", ...
	)

	sendLogWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coldrm",
			Name:      "send_log_write_failures_total",
			Help:      "Sends accepted by the relay whose log entry could not be written.",
		},
	)

	referralsRedeemedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coldrm",
			Name:      "referrals_redeemed_total",
			Help:      "Total referral codes redeemed.",
		},
	)
)
