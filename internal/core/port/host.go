package port

import (
	"github.com/chr-braun/kostalbridge/internal/core/domain"
)

// CharacteristicWriter is the narrow capability a virtual device needs to
// push state to the automation host. Implementations must be safe to call
// from the devices actor goroutine.
type CharacteristicWriter interface {
	SetBoolCharacteristic(identity string, kind domain.CharacteristicKind, value bool)
	SetFloatCharacteristic(identity string, kind domain.CharacteristicKind, value float64, decimals uint)
	PulseCharacteristic(identity string, kind domain.CharacteristicKind)
}

// AccessoryHost is the host surface the device registry reconciles against.
// Identity is a deterministic function of the device serial number: the same
// serial maps to the same identity on every run.
type AccessoryHost interface {
	CharacteristicWriter
	RegisterNewDevice(identity string, descriptor domain.DeviceDescriptor) error
	UpdateExistingDevice(identity string, descriptor domain.DeviceDescriptor) error
}
