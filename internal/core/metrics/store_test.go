package metrics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/chr-braun/kostalbridge/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func snapshotAt(at time.Time, values map[string]float64) domain.MetricSnapshot {
	return domain.MetricSnapshot{
		Values:     values,
		ObservedAt: at,
	}
}

func TestStoreMergeAndLatest(t *testing.T) {

	assert := assert.New(t)

	store := NewMetricStore()
	now := time.Now()

	store.Merge(snapshotAt(now, map[string]float64{
		domain.METRIC_POWER:      1200,
		domain.METRIC_GRID_POWER: -800,
	}))
	store.Merge(snapshotAt(now.Add(30*time.Second), map[string]float64{
		domain.METRIC_POWER: 1350,
	}))

	power, ok := store.Value(domain.METRIC_POWER)
	assert.True(ok)
	assert.Equal(1350.0, power, "latest merge wins")

	grid, ok := store.Value(domain.METRIC_GRID_POWER)
	assert.True(ok)
	assert.Equal(-800.0, grid, "untouched key survives merge")

	_, ok = store.Value("bogus")
	assert.False(ok)
}

func TestStoreSkipsNonFiniteValues(t *testing.T) {

	assert := assert.New(t)

	store := NewMetricStore()
	store.Merge(snapshotAt(time.Now(), map[string]float64{
		domain.METRIC_POWER:       500,
		domain.METRIC_TEMPERATURE: math.NaN(),
		domain.METRIC_FREQUENCY:   math.Inf(1),
	}))

	_, ok := store.Value(domain.METRIC_TEMPERATURE)
	assert.False(ok, "NaN never reaches the store")
	_, ok = store.Value(domain.METRIC_FREQUENCY)
	assert.False(ok, "Inf never reaches the store")

	power, ok := store.Value(domain.METRIC_POWER)
	assert.True(ok)
	assert.Equal(500.0, power)
}

func TestStoreHistoryCap(t *testing.T) {

	assert := assert.New(t)

	store := NewMetricStore()
	start := time.Now()
	for i := 0; i < snapshotLogCapacity+10; i++ {
		store.Merge(snapshotAt(start.Add(time.Duration(i)*time.Second), map[string]float64{
			domain.METRIC_POWER: float64(i),
		}))
	}

	history := store.History()
	assert.Len(history, snapshotLogCapacity, "oldest entries evicted")
	assert.Equal(10.0, history[0].Value(domain.METRIC_POWER), "first survivor is entry 10")
	assert.Equal(float64(snapshotLogCapacity+9), history[len(history)-1].Value(domain.METRIC_POWER))
}

func TestStoreLatestReturnsCopy(t *testing.T) {

	assert := assert.New(t)

	store := NewMetricStore()
	store.Merge(snapshotAt(time.Now(), map[string]float64{domain.METRIC_POWER: 100}))

	latest := store.Latest()
	latest[domain.METRIC_POWER] = 0

	power, _ := store.Value(domain.METRIC_POWER)
	assert.Equal(100.0, power, "caller mutation does not leak into the store")
}

func TestLedgerLastWriteWins(t *testing.T) {

	assert := assert.New(t)

	ledger := NewDailyEnergyLedger()
	day := time.Date(2024, 6, 12, 9, 0, 0, 0, time.Local)

	ledger.Record(day, 3.0)
	ledger.Record(day.Add(8*time.Hour), 7.5)

	energy, ok := ledger.Energy(day)
	assert.True(ok)
	assert.Equal(7.5, energy, "later record replaces earlier")
	assert.Equal(1, ledger.Len())
}

func TestLedgerSeparatesDays(t *testing.T) {

	assert := assert.New(t)

	ledger := NewDailyEnergyLedger()
	day1 := time.Date(2024, 6, 12, 20, 0, 0, 0, time.Local)
	day2 := day1.Add(24 * time.Hour)

	ledger.Record(day1, 12.4)
	ledger.Record(day2, 0.3)

	e1, ok := ledger.Energy(day1)
	assert.True(ok)
	assert.Equal(12.4, e1)

	e2, ok := ledger.Energy(day2)
	assert.True(ok)
	assert.Equal(0.3, e2)

	_, ok = ledger.Energy(day2.Add(24 * time.Hour))
	assert.False(ok, "unrecorded day has no energy")
}

func TestWithDerivedExportingDay(t *testing.T) {

	assert := assert.New(t)

	// producing 2000W, exporting 1500W, home draws 800W total
	snapshot := domain.NewMetricSnapshot(map[string]float64{
		domain.METRIC_POWER:        2000,
		domain.METRIC_GRID_POWER:   -1500,
		domain.METRIC_HOME_POWER:   800,
		domain.METRIC_ENERGY_TODAY: 10,
	}, 1, time.Now())

	derived := WithDerived(snapshot)

	assert.Equal(25.0, derived.Value(domain.METRIC_OWN_CONSUMPTION_RATE), "500W of 2000W consumed locally")
	assert.Equal(62.5, derived.Value(domain.METRIC_AUTARKY_TODAY), "500W of 800W home draw covered")
	assert.Equal(4.2, derived.Value(domain.METRIC_CO2_SAVING_TODAY))
}

func TestWithDerivedNightIsZero(t *testing.T) {

	assert := assert.New(t)

	snapshot := domain.NewMetricSnapshot(map[string]float64{
		domain.METRIC_POWER:      0,
		domain.METRIC_GRID_POWER: 350,
		domain.METRIC_HOME_POWER: 350,
	}, 1, time.Now())

	derived := WithDerived(snapshot)

	assert.Equal(0.0, derived.Value(domain.METRIC_OWN_CONSUMPTION_RATE))
	assert.Equal(0.0, derived.Value(domain.METRIC_AUTARKY_TODAY))
	assert.Equal(0.0, derived.Value(domain.METRIC_CO2_SAVING_TODAY))
}

func TestNormalizedSnapshotCoversVocabulary(t *testing.T) {

	assert := assert.New(t)

	snapshot := domain.NewMetricSnapshot(map[string]float64{
		domain.METRIC_POWER: 100,
	}, 2, time.Now())

	for _, key := range domain.MetricKeys(2) {
		assert.True(snapshot.Has(key), fmt.Sprintf("key %s present", key))
	}
	assert.Equal(0.0, snapshot.Value(domain.MetricPowerDC(2)), "absent key defaults to zero")
}
