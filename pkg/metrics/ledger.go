package metrics

import (
	"sync"

	"lending/core"
	"lending/pkg/number"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	operations   *prometheus.CounterVec
	liquidations *prometheus.CounterVec
	badDebt      *prometheus.CounterVec
	supplyAssets *prometheus.GaugeVec
	borrowAssets *prometheus.GaugeVec
	utilization  *prometheus.GaugeVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger calls by action and result code.",
			}, []string{"action", "result"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_liquidations_total",
				Help: "Committed liquidations per market.",
			}, []string{"market"}),
			badDebt: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_bad_debt_assets_total",
				Help: "Loan assets socialized across suppliers per market.",
			}, []string{"market"}),
			supplyAssets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "ledger_market_supply_assets",
				Help: "Total supply assets of a market after its last commit.",
			}, []string{"market"}),
			borrowAssets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "ledger_market_borrow_assets",
				Help: "Total borrow assets of a market after its last commit.",
			}, []string{"market"}),
			utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "ledger_market_utilization",
				Help: "Borrowed over supplied assets of a market.",
			}, []string{"market"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.liquidations,
			ledgerRegistry.badDebt,
			ledgerRegistry.supplyAssets,
			ledgerRegistry.borrowAssets,
			ledgerRegistry.utilization,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveOperation(action core.ActionType, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = core.CodeOf(err).Name()
	}
	m.operations.WithLabelValues(action.String(), result).Inc()
}

func (m *LedgerMetrics) ObserveLiquidation(market core.ID, result *core.LiquidationResult) {
	if m == nil || result == nil {
		return
	}
	m.liquidations.WithLabelValues(market.String()).Inc()
	if result.BadDebtAssets != nil && !result.BadDebtAssets.IsZero() {
		v, _ := number.ToDecimal(result.BadDebtAssets, 0).Float64()
		m.badDebt.WithLabelValues(market.String()).Add(v)
	}
}

func (m *LedgerMetrics) ObserveMarket(market *core.Market) {
	if m == nil || !market.Created() {
		return
	}
	id := market.ID.String()
	supply, _ := number.ToDecimal(market.TotalSupplyAssets, 0).Float64()
	borrow, _ := number.ToDecimal(market.TotalBorrowAssets, 0).Float64()
	utilization, _ := number.ToDecimal(market.Utilization(), number.WadDecimals).Float64()
	m.supplyAssets.WithLabelValues(id).Set(supply)
	m.borrowAssets.WithLabelValues(id).Set(borrow)
	m.utilization.WithLabelValues(id).Set(utilization)
}
