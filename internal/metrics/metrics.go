// Package metrics exposes Prometheus instruments for the ledger, the escrow
// state machine, reconciliation runs and the HTTP layer. All methods are safe
// on a nil *Metrics so tests can run without a registry.
package metrics

import (
	"errors"
	"time"

	"gigwallet/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry *prometheus.Registry

	ledgerOps       *prometheus.CounterVec
	ledgerDurations *prometheus.HistogramVec
	payments        *prometheus.CounterVec
	reconcileRuns   *prometheus.CounterVec
	discrepancies   prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDurations   *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gigwallet"
	}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Wallet mutations by operation and outcome.",
		}, []string{"op", "result"}),
		ledgerDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger atomic units in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "payment_transitions_total",
			Help:      "Escrow payments entering each status.",
		}, []string{"status"}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Reconciliation runs by outcome.",
		}, []string{"result"}),
		discrepancies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "discrepancies_total",
			Help:      "Wallets whose balances disagree with their transaction log.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"route", "method", "status"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	m.Registry.MustRegister(
		m.ledgerOps, m.ledgerDurations, m.payments,
		m.reconcileRuns, m.discrepancies,
		m.httpRequests, m.httpDurations,
	)
	return m
}

// ObserveLedgerOp records one atomic unit started at start.
func (m *Metrics) ObserveLedgerOp(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, ResultLabel(err)).Inc()
	m.ledgerDurations.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) PaymentTransition(status string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(status).Inc()
}

func (m *Metrics) ReconcileRun(discrepancies int, err error) {
	if m == nil {
		return
	}
	m.reconcileRuns.WithLabelValues(ResultLabel(err)).Inc()
	m.discrepancies.Add(float64(discrepancies))
}

func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDurations.WithLabelValues(route, method).Observe(d.Seconds())
}

// ResultLabel maps an error onto a low-cardinality label value.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflictingPayment):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return "invalid_state"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	default:
		return "rejected"
	}
}
