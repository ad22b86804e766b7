package metrics

import (
	"math"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
)

// co2FactorKgPerKWh is the grid emission factor used for the CO2 saving
// estimate (German grid mix).
const co2FactorKgPerKWh = 0.42

// WithDerived returns a snapshot extended with the derived keys
// co2_saving_today, own_consumption_rate and autarky_today.
//
// Export to grid is the negative part of grid_power, so own consumption is
// production minus export. Rates are percentages clamped to [0,100] and are
// 0 whenever their denominator is not positive.
func WithDerived(snapshot domain.MetricSnapshot) domain.MetricSnapshot {
	power := snapshot.Value(domain.METRIC_POWER)
	gridPower := snapshot.Value(domain.METRIC_GRID_POWER)
	homePower := snapshot.Value(domain.METRIC_HOME_POWER)
	energyToday := snapshot.Value(domain.METRIC_ENERGY_TODAY)

	exportPower := math.Max(0, -gridPower)
	ownConsumption := math.Max(0, power-exportPower)

	var ownRate, autarky float64
	if power > 0 {
		ownRate = clampPercent(ownConsumption / power * 100)
	}
	if homePower > 0 {
		autarky = clampPercent(ownConsumption / homePower * 100)
	}

	snapshot.Values[domain.METRIC_CO2_SAVING_TODAY] = round1(math.Max(0, energyToday) * co2FactorKgPerKWh)
	snapshot.Values[domain.METRIC_OWN_CONSUMPTION_RATE] = round1(ownRate)
	snapshot.Values[domain.METRIC_AUTARKY_TODAY] = round1(autarky)
	return snapshot
}

func clampPercent(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
