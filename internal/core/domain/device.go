package domain

// DeviceKind is the closed set of virtual device variants.
type DeviceKind string

const (
	DEVICE_KIND_MAIN         DeviceKind = "main"
	DEVICE_KIND_HOME_POWER   DeviceKind = "home_power"
	DEVICE_KIND_GRID_POWER   DeviceKind = "grid_power"
	DEVICE_KIND_TEMPERATURE  DeviceKind = "temperature"
	DEVICE_KIND_DAILY_ENERGY DeviceKind = "daily_energy"
	DEVICE_KIND_STATUS       DeviceKind = "status"
	DEVICE_KIND_STRING       DeviceKind = "string"
	DEVICE_KIND_NOTIFICATION DeviceKind = "notification"
)

func DeviceKinds() []DeviceKind {
	return []DeviceKind{
		DEVICE_KIND_MAIN, DEVICE_KIND_HOME_POWER, DEVICE_KIND_GRID_POWER,
		DEVICE_KIND_TEMPERATURE, DEVICE_KIND_DAILY_ENERGY, DEVICE_KIND_STATUS,
		DEVICE_KIND_STRING, DEVICE_KIND_NOTIFICATION,
	}
}

func (k DeviceKind) Valid() bool {
	for _, kind := range DeviceKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// DeviceDescriptor describes one virtual device. SerialNumber is the durable
// identity; the persisted host identity derives deterministically from it.
type DeviceDescriptor struct {
	Name         string     `json:"name"`
	Model        string     `json:"model"`
	SerialNumber string     `json:"serial_number"`
	Kind         DeviceKind `json:"kind"`
	// StringNumber is only meaningful for DEVICE_KIND_STRING.
	StringNumber    int     `json:"string_number,omitempty"`
	MaxPower        float64 `json:"max_power,omitempty"`
	MaxEnergyPerDay float64 `json:"max_energy_per_day,omitempty"`
}

// CachedDevice is one entry restored from the host's accessory cache.
type CachedDevice struct {
	Identity   string
	Descriptor DeviceDescriptor
}

// CharacteristicKind is the closed set of externally exposed characteristics.
// The mapping of device kinds to characteristics is cosmetic; the semantic
// derivations live with the device variants.
type CharacteristicKind string

const (
	CHARACTERISTIC_ON          CharacteristicKind = "on"
	CHARACTERISTIC_IN_USE      CharacteristicKind = "in_use"
	CHARACTERISTIC_EXPORTING   CharacteristicKind = "exporting"
	CHARACTERISTIC_TEMPERATURE CharacteristicKind = "temperature"
	CHARACTERISTIC_LEVEL       CharacteristicKind = "level"
	CHARACTERISTIC_CONTACT     CharacteristicKind = "contact"
	CHARACTERISTIC_VOLTAGE     CharacteristicKind = "voltage"
	CHARACTERISTIC_CURRENT     CharacteristicKind = "current"
	CHARACTERISTIC_POWER       CharacteristicKind = "power"
	CHARACTERISTIC_PULSE       CharacteristicKind = "pulse"
)
