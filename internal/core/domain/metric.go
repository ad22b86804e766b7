package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	METRIC_POWER                = "power"
	METRIC_AC_POWER             = "ac_power"
	METRIC_GRID_POWER           = "grid_power"
	METRIC_HOME_POWER           = "home_power"
	METRIC_ENERGY_TODAY         = "energy_today"
	METRIC_ENERGY_TOTAL         = "energy_total"
	METRIC_TEMPERATURE          = "temperature"
	METRIC_VOLTAGE_AC           = "voltage_ac"
	METRIC_FREQUENCY            = "frequency"
	METRIC_STATUS               = "status"
	METRIC_CO2_SAVING_TODAY     = "co2_saving_today"
	METRIC_AUTARKY_TODAY        = "autarky_today"
	METRIC_OWN_CONSUMPTION_RATE = "own_consumption_rate"
)

func MetricVoltageDC(n int) string {
	return fmt.Sprintf("voltage_dc%d", n)
}

func MetricCurrentDC(n int) string {
	return fmt.Sprintf("current_dc%d", n)
}

func MetricPowerDC(n int) string {
	return fmt.Sprintf("power_dc%d", n)
}

// MetricKeys is the full metric vocabulary for a given DC string count.
func MetricKeys(stringCount int) []string {
	keys := []string{
		METRIC_POWER, METRIC_AC_POWER, METRIC_GRID_POWER, METRIC_HOME_POWER,
		METRIC_ENERGY_TODAY, METRIC_ENERGY_TOTAL, METRIC_TEMPERATURE,
		METRIC_VOLTAGE_AC, METRIC_FREQUENCY, METRIC_STATUS,
		METRIC_CO2_SAVING_TODAY, METRIC_AUTARKY_TODAY, METRIC_OWN_CONSUMPTION_RATE,
	}
	for n := 1; n <= stringCount; n++ {
		keys = append(keys, MetricVoltageDC(n), MetricCurrentDC(n), MetricPowerDC(n))
	}
	return keys
}

// MetricSnapshot is one complete set of inverter readings taken at a point
// in time. A normalized snapshot carries every vocabulary key, so consumers
// never have to distinguish missing from zero.
type MetricSnapshot struct {
	Values     map[string]float64 `json:"values"`
	ObservedAt time.Time          `json:"observed_at"`
	Simulated  bool               `json:"simulated"`
}

// NewMetricSnapshot normalizes raw values into a snapshot: every key of the
// vocabulary is present, absent or non-finite inputs default to 0.
func NewMetricSnapshot(raw map[string]float64, stringCount int, at time.Time) MetricSnapshot {
	values := make(map[string]float64)
	for _, key := range MetricKeys(stringCount) {
		v, ok := raw[key]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		values[key] = v
	}
	return MetricSnapshot{
		Values:     values,
		ObservedAt: at,
	}
}

func (s MetricSnapshot) Value(key string) float64 {
	return s.Values[key]
}

func (s MetricSnapshot) Has(key string) bool {
	_, ok := s.Values[key]
	return ok
}
