// Package metrics defines and registers all custom Prometheus metrics for
// the identity system. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry via promauto at
// package load; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// RegistrationsTotal counts created principals.
// Labels:
//   - kind: "ADMIN" (self-registered, pending confirmation) or "USER"
//     (admin-provisioned)
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of principals registered, by kind.",
	},
	[]string{"kind"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or "failed" (all failure kinds collapse into one value
//     so the metric cannot be used for account enumeration either)
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ConfirmationTokensTotal counts confirmation-token ledger activity.
// Labels:
//   - purpose: "ACCOUNT_CONFIRMATION" or "PASSWORD_RESET"
//   - event: "issued" or "consumed"
var ConfirmationTokensTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmation_tokens_total",
		Help:      "Total number of confirmation tokens issued and consumed, by purpose.",
	},
	[]string{"purpose", "event"},
)

// EmailsSentTotal counts outbound email deliveries attempted by the
// dispatcher workers.
// Label:
//   - result: "ok" or "error"
var EmailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Total number of outbound emails attempted, by result.",
	},
	[]string{"result"},
)

// EmailQueueDepth tracks the number of emails waiting in each dispatcher
// worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EmailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "email_queue_depth",
		Help:      "Current number of emails pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
