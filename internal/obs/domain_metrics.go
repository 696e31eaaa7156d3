package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCommittedTotal counts per-store commit outcomes.
	OrdersCommittedTotal *prometheus.CounterVec
	// CouponRedemptionsTotal counts coupon settlement outcomes.
	CouponRedemptionsTotal *prometheus.CounterVec
	// StockReservationFailures counts commits rejected for insufficient stock.
	StockReservationFailures prometheus.Counter
	// CheckoutRetriesTotal counts transaction retries after serialization conflicts.
	CheckoutRetriesTotal prometheus.Counter
	// LowStockEventsTotal counts emitted low-stock alerts.
	LowStockEventsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCommittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_committed_total",
			Help:      "Count of per-store order commit outcomes.",
		}, []string{"result"})
		CouponRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Count of coupon settlement outcomes at commit time.",
		}, []string{"result"})
		StockReservationFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservation_failures_total",
			Help:      "Number of store commits rejected because stock ran out.",
		})
		CheckoutRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_retries_total",
			Help:      "Number of checkout transaction retries after serialization conflicts.",
		})
		LowStockEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_events_total",
			Help:      "Number of low-stock alerts emitted after reservations.",
		})

		mustRegisterCollector(reg, OrdersCommittedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersCommittedTotal = v
			}
		})
		mustRegisterCollector(reg, CouponRedemptionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponRedemptionsTotal = v
			}
		})
		mustRegisterCollector(reg, StockReservationFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockReservationFailures = v
			}
		})
		mustRegisterCollector(reg, CheckoutRetriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CheckoutRetriesTotal = v
			}
		})
		mustRegisterCollector(reg, LowStockEventsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				LowStockEventsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
