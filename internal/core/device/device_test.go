package device

import (
	"math"
	"testing"
	"time"

	"github.com/chr-braun/kostalbridge/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestDevice(t *testing.T, host *recorderHost, descriptor domain.DeviceDescriptor) *VirtualDevice {
	t.Helper()
	registry := NewRegistry(host, zap.NewNop())
	dev, err := registry.Reconcile(descriptor)
	assert.NoError(t, err)
	return dev
}

// snapshotWith builds a snapshot with exactly the given keys, bypassing the
// constructor's normalization so tests control key presence and finiteness.
func snapshotWith(values map[string]float64) domain.MetricSnapshot {
	return domain.MetricSnapshot{Values: values, ObservedAt: time.Now()}
}

func TestMainDevicePushesOnAndInUse(t *testing.T) {

	assert := assert.New(t)

	host := &recorderHost{}
	dev := newTestDevice(t, host, mainDescriptor("SN1"))

	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_POWER: 1500}))

	on := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_ON)
	inUse := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_IN_USE)
	assert.Len(on, 1)
	assert.Len(inUse, 1)
	assert.True(on[0].boolVal)
	assert.True(inUse[0].boolVal)

	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_POWER: 0}))
	on = host.callsFor(dev.Identity(), domain.CHARACTERISTIC_ON)
	assert.Len(on, 2)
	assert.False(on[1].boolVal)
}

func TestGridDeviceExportingFlag(t *testing.T) {

	assert := assert.New(t)

	desc := mainDescriptor("SN1-GRID")
	desc.Kind = domain.DEVICE_KIND_GRID_POWER

	host := &recorderHost{}
	dev := newTestDevice(t, host, desc)

	// exporting: surplus flows to the grid
	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_GRID_POWER: -500}))
	exporting := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_EXPORTING)
	on := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_ON)
	assert.True(on[0].boolVal)
	assert.True(exporting[0].boolVal)

	// importing: drawing from the grid
	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_GRID_POWER: 300}))
	exporting = host.callsFor(dev.Identity(), domain.CHARACTERISTIC_EXPORTING)
	assert.False(exporting[1].boolVal)

	// idle
	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_GRID_POWER: 0}))
	on = host.callsFor(dev.Identity(), domain.CHARACTERISTIC_ON)
	assert.False(on[2].boolVal)
}

func TestDailyEnergyDeviceClampsLevel(t *testing.T) {

	assert := assert.New(t)

	desc := mainDescriptor("SN1-ENERGY")
	desc.Kind = domain.DEVICE_KIND_DAILY_ENERGY
	desc.MaxEnergyPerDay = 20

	host := &recorderHost{}
	dev := newTestDevice(t, host, desc)

	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_ENERGY_TODAY: 12.44}))
	levels := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_LEVEL)
	assert.Len(levels, 1)
	assert.Equal(62.2, levels[0].floatVal)

	// above the configured maximum the level saturates
	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_ENERGY_TODAY: 25}))
	levels = host.callsFor(dev.Identity(), domain.CHARACTERISTIC_LEVEL)
	assert.Equal(100.0, levels[1].floatVal)
}

func TestTemperatureDeviceDefault(t *testing.T) {

	assert := assert.New(t)

	desc := mainDescriptor("SN1-TEMP")
	desc.Kind = domain.DEVICE_KIND_TEMPERATURE

	host := &recorderHost{}
	dev := newTestDevice(t, host, desc)

	assert.Equal(20.0, dev.ReadCurrent(domain.METRIC_TEMPERATURE), "unobserved temperature falls back to 20")

	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_TEMPERATURE: 31.7}))
	assert.Equal(31.7, dev.ReadCurrent(domain.METRIC_TEMPERATURE))
}

func TestUpdateDataIgnoresNonFiniteValues(t *testing.T) {

	assert := assert.New(t)

	host := &recorderHost{}
	dev := newTestDevice(t, host, mainDescriptor("SN1"))

	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_POWER: 2000}))
	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_POWER: math.NaN()}))
	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_POWER: math.Inf(1)}))

	assert.Equal(2000.0, dev.ReadCurrent(domain.METRIC_POWER), "non-finite samples keep last-seen state")
}

func TestStringDeviceReadsOwnKeysOnly(t *testing.T) {

	assert := assert.New(t)

	desc := mainDescriptor("SN1-S2")
	desc.Kind = domain.DEVICE_KIND_STRING
	desc.StringNumber = 2

	host := &recorderHost{}
	dev := newTestDevice(t, host, desc)

	assert.ElementsMatch([]string{
		domain.MetricVoltageDC(2),
		domain.MetricCurrentDC(2),
		domain.MetricPowerDC(2),
	}, dev.ReadKeys())

	dev.UpdateData(snapshotWith(map[string]float64{
		domain.MetricPowerDC(1):   9999,
		domain.MetricPowerDC(2):   1234.5,
		domain.MetricVoltageDC(2): 380.2,
		domain.MetricCurrentDC(2): 3.25,
	}))

	assert.Equal(0.0, dev.ReadCurrent(domain.MetricPowerDC(1)), "other string's metrics are not tracked")
	assert.Equal(1234.5, dev.ReadCurrent(domain.MetricPowerDC(2)))

	power := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_POWER)
	current := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_CURRENT)
	assert.Equal(1234.5, power[0].floatVal)
	assert.Equal(3.25, current[0].floatVal)
	on := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_ON)
	assert.True(on[0].boolVal)
}

func TestStatusDeviceContact(t *testing.T) {

	assert := assert.New(t)

	desc := mainDescriptor("SN1-STATUS")
	desc.Kind = domain.DEVICE_KIND_STATUS

	host := &recorderHost{}
	dev := newTestDevice(t, host, desc)

	dev.UpdateData(snapshotWith(map[string]float64{domain.METRIC_STATUS: 1}))
	contact := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_CONTACT)
	assert.Len(contact, 1)
	assert.True(contact[0].boolVal)
}
