package telemetry

import (
	"context"
	"math"
	"time"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
)

// Daylight window of the simulated production curve. Outside of it every
// production metric is zero.
const (
	daylightStartHour = 6.0
	daylightEndHour   = 18.0
)

// SimulatedGenerator produces a plausible telemetry snapshot as a
// deterministic function of the wall clock: a sinusoidal daylight curve for
// power and a matching cumulative daily energy ramp. It never fails, which
// makes it both the per-cycle fallback when the real source is unreachable
// and a standalone dev mode.
type SimulatedGenerator struct {
	stringCount     int
	maxPowerWatt    float64
	maxEnergyPerDay float64
	now             func() time.Time
}

func NewSimulatedGenerator(stringCount int, maxPowerWatt, maxEnergyPerDay float64) *SimulatedGenerator {
	return &SimulatedGenerator{
		stringCount:     stringCount,
		maxPowerWatt:    maxPowerWatt,
		maxEnergyPerDay: maxEnergyPerDay,
		now:             time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (g *SimulatedGenerator) WithClock(now func() time.Time) *SimulatedGenerator {
	g.now = now
	return g
}

func (g *SimulatedGenerator) Fetch(_ context.Context) (*domain.MetricSnapshot, error) {
	now := g.now()
	snapshot := domain.NewMetricSnapshot(g.valuesAt(now), g.stringCount, now)
	snapshot.Simulated = true
	return &snapshot, nil
}

func (g *SimulatedGenerator) valuesAt(now time.Time) map[string]float64 {
	values := make(map[string]float64)

	h := float64(now.Hour()) + float64(now.Minute())/60
	if h < daylightStartHour || h >= daylightEndHour {
		return values
	}

	// phase runs 0..1 over the daylight window; power follows sin(pi*phase),
	// energy its integral shape.
	phase := (h - daylightStartHour) / (daylightEndHour - daylightStartHour)
	power := g.maxPowerWatt * math.Sin(math.Pi*phase)
	energyToday := g.maxEnergyPerDay * (1 - math.Cos(math.Pi*phase)) / 2

	values[domain.METRIC_POWER] = power
	values[domain.METRIC_AC_POWER] = power
	values[domain.METRIC_ENERGY_TODAY] = energyToday
	values[domain.METRIC_TEMPERATURE] = 25 + 10*math.Sin(math.Pi*phase)
	values[domain.METRIC_VOLTAGE_AC] = 230
	values[domain.METRIC_FREQUENCY] = 50
	if power > 0 {
		values[domain.METRIC_STATUS] = 1
	}

	// home draws a constant base load; the rest is exported (negative by
	// the grid sign convention).
	homePower := math.Min(power, 500)
	values[domain.METRIC_HOME_POWER] = homePower
	values[domain.METRIC_GRID_POWER] = -(power - homePower)

	if g.stringCount > 0 {
		perString := power / float64(g.stringCount)
		for n := 1; n <= g.stringCount; n++ {
			values[domain.MetricPowerDC(n)] = perString
			values[domain.MetricVoltageDC(n)] = 380
			values[domain.MetricCurrentDC(n)] = perString / 380
		}
	}
	return values
}
