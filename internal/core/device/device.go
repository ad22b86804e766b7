package device

import (
	"math"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/port"
)

// VirtualDevice is one independently addressable representation of a
// physical quantity, bound to a persisted host identity. It keeps last-seen
// values only for the metric keys its kind declares.
type VirtualDevice struct {
	identity   string
	descriptor domain.DeviceDescriptor
	fromCache  bool
	writer     port.CharacteristicWriter
	lastSeen   map[string]float64
}

func (d *VirtualDevice) Identity() string {
	return d.identity
}

func (d *VirtualDevice) Descriptor() domain.DeviceDescriptor {
	return d.descriptor
}

func (d *VirtualDevice) FromCache() bool {
	return d.fromCache
}

// ReadKeys is the set of metric keys this device reacts to.
func (d *VirtualDevice) ReadKeys() []string {
	return kindPolicies[d.descriptor.Kind].readKeys(d.descriptor)
}

// UpdateData applies one snapshot: for every declared key present in the
// snapshot with a finite value, last-seen state is updated and the mapped
// characteristics are pushed to the host. Without a host binding the call is
// a safe no-op. Keys outside the read set are never touched.
func (d *VirtualDevice) UpdateData(snapshot domain.MetricSnapshot) {
	policy := kindPolicies[d.descriptor.Kind]
	for _, key := range policy.readKeys(d.descriptor) {
		value, ok := snapshot.Values[key]
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		d.lastSeen[key] = value
	}
	if d.writer == nil || policy.push == nil {
		return
	}
	policy.push(d)
}

// ReadCurrent returns the last-seen value for a metric key, or the
// documented per-kind default when the key was never observed.
func (d *VirtualDevice) ReadCurrent(key string) float64 {
	if v, ok := d.lastSeen[key]; ok {
		return v
	}
	if d.descriptor.Kind == domain.DEVICE_KIND_TEMPERATURE && key == domain.METRIC_TEMPERATURE {
		return 20
	}
	return 0
}

type kindPolicy struct {
	readKeys func(domain.DeviceDescriptor) []string
	push     func(*VirtualDevice)
}

// kindPolicies is the single dispatch table over the closed device kind set:
// declared read keys plus the push mapping to host characteristics.
var kindPolicies = map[domain.DeviceKind]kindPolicy{
	domain.DEVICE_KIND_MAIN: {
		readKeys: fixedKeys(domain.METRIC_POWER),
		push: func(d *VirtualDevice) {
			on := d.ReadCurrent(domain.METRIC_POWER) > 0
			d.writer.SetBoolCharacteristic(d.identity, domain.CHARACTERISTIC_ON, on)
			d.writer.SetBoolCharacteristic(d.identity, domain.CHARACTERISTIC_IN_USE, on)
		},
	},
	domain.DEVICE_KIND_HOME_POWER: {
		readKeys: fixedKeys(domain.METRIC_HOME_POWER),
		push: func(d *VirtualDevice) {
			on := d.ReadCurrent(domain.METRIC_HOME_POWER) > 0
			d.writer.SetBoolCharacteristic(d.identity, domain.CHARACTERISTIC_ON, on)
			d.writer.SetBoolCharacteristic(d.identity, domain.CHARACTERISTIC_IN_USE, on)
		},
	},
	domain.DEVICE_KIND_GRID_POWER: {
		readKeys: fixedKeys(domain.METRIC_GRID_POWER),
		push: func(d *VirtualDevice) {
			// negative = export to grid, positive = import from grid
			value := d.ReadCurrent(domain.METRIC_GRID_POWER)
			d.writer.SetBoolCharacteristic(d.identity, domain.CHARACTERISTIC_ON, value != 0)
			d.writer.SetBoolCharacteristic(d.identity, domain.CHARACTERISTIC_EXPORTING, value < 0)
		},
	},
	domain.DEVICE_KIND_TEMPERATURE: {
		readKeys: fixedKeys(domain.METRIC_TEMPERATURE),
		push: func(d *VirtualDevice) {
			d.writer.SetFloatCharacteristic(d.identity, domain.CHARACTERISTIC_TEMPERATURE,
				d.ReadCurrent(domain.METRIC_TEMPERATURE), 1)
		},
	},
	domain.DEVICE_KIND_DAILY_ENERGY: {
		readKeys: fixedKeys(domain.METRIC_ENERGY_TODAY),
		push: func(d *VirtualDevice) {
			pct := dailyEnergyPercent(d.ReadCurrent(domain.METRIC_ENERGY_TODAY), d.descriptor.MaxEnergyPerDay)
			d.writer.SetFloatCharacteristic(d.identity, domain.CHARACTERISTIC_LEVEL, pct, 1)
		},
	},
	domain.DEVICE_KIND_STATUS: {
		readKeys: fixedKeys(domain.METRIC_STATUS),
		push: func(d *VirtualDevice) {
			d.writer.SetBoolCharacteristic(d.identity, domain.CHARACTERISTIC_CONTACT,
				d.ReadCurrent(domain.METRIC_STATUS) > 0)
		},
	},
	domain.DEVICE_KIND_STRING: {
		readKeys: func(desc domain.DeviceDescriptor) []string {
			n := desc.StringNumber
			return []string{domain.MetricVoltageDC(n), domain.MetricCurrentDC(n), domain.MetricPowerDC(n)}
		},
		push: func(d *VirtualDevice) {
			n := d.descriptor.StringNumber
			d.writer.SetFloatCharacteristic(d.identity, domain.CHARACTERISTIC_VOLTAGE,
				d.ReadCurrent(domain.MetricVoltageDC(n)), 1)
			d.writer.SetFloatCharacteristic(d.identity, domain.CHARACTERISTIC_CURRENT,
				d.ReadCurrent(domain.MetricCurrentDC(n)), 2)
			power := d.ReadCurrent(domain.MetricPowerDC(n))
			d.writer.SetFloatCharacteristic(d.identity, domain.CHARACTERISTIC_POWER, power, 1)
			d.writer.SetBoolCharacteristic(d.identity, domain.CHARACTERISTIC_ON, power > 0)
		},
	},
	domain.DEVICE_KIND_NOTIFICATION: {
		// pulse-only target, no metric read set
		readKeys: fixedKeys(),
	},
}

func fixedKeys(keys ...string) func(domain.DeviceDescriptor) []string {
	return func(domain.DeviceDescriptor) []string {
		return keys
	}
}

// dailyEnergyPercent maps energy_today onto a percentage of the configured
// daily maximum: clamped to [0,100], rounded to one decimal.
func dailyEnergyPercent(energyKWh, maxEnergyPerDay float64) float64 {
	if maxEnergyPerDay <= 0 {
		return 0
	}
	pct := energyKWh / maxEnergyPerDay * 100
	pct = math.Min(100, math.Max(0, pct))
	return math.Round(pct*10) / 10
}
