package metrics

import (
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elys-network/reservevault/internal/utils"
)

const namespace = "reservevault"

var (
	// Chains counts top-level instruction chains by operation and outcome
	// (committed or reverted).
	Chains = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chains_total",
		Help:      "Top-level instruction chains executed by the host.",
	}, []string{"operation", "outcome"})

	// Instructions counts executed instructions by type.
	Instructions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "instructions_total",
		Help:      "Instructions executed inside committed or reverted chains.",
	}, []string{"type"})

	// Errors counts chain failures by error class.
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Chain failures by error class.",
	}, []string{"class"})

	// FlashLoans counts flash-loan lifecycle events.
	FlashLoans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flashloans_total",
		Help:      "Flash loans requested, repaid and rejected for imbalance.",
	}, []string{"outcome"})

	// TotalValueLocked is the last observed TVL in display units.
	TotalValueLocked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "total_value_locked",
		Help:      "Last observed total value locked, in stable display units.",
	})

	// StableReserve is the last observed liquid stable balance in display units.
	StableReserve = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stable_reserve",
		Help:      "Last observed liquid stable balance of the vault, in stable display units.",
	})

	// Samples counts monitor cycles by outcome (ok, drift or failed).
	Samples = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "monitor_samples_total",
		Help:      "Monitor cycles by outcome.",
	}, []string{"outcome"})
)

// ObserveTVL records tvl, given in base units with the stable asset's
// decimals.
func ObserveTVL(tvl sdkmath.Int, decimals int) error {
	v, err := utils.SDKIntToFloat64(tvl, decimals)
	if err != nil {
		return err
	}
	TotalValueLocked.Set(v)
	return nil
}

// ObserveReserve records the liquid stable balance, given in base units.
func ObserveReserve(stable sdkmath.Int, decimals int) error {
	v, err := utils.SDKIntToFloat64(stable, decimals)
	if err != nil {
		return err
	}
	StableReserve.Set(v)
	return nil
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
