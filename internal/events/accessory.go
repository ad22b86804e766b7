package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	COMPONENT_OUTLET             = "outlet"
	COMPONENT_TEMPERATURE_SENSOR = "temperature_sensor"
	COMPONENT_LIGHT_SENSOR       = "light_sensor"
	COMPONENT_CONTACT_SENSOR     = "contact_sensor"
	COMPONENT_SWITCH             = "switch"
)

type Device struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Version      string `json:"version,omitempty"`
	ViaDevice    string `json:"via_device,omitempty"`
}

// GenericAccessory is the discovery-facing view of a virtual device. The
// component type is purely cosmetic: it mirrors the HomeKit category choices
// of the original plugin and carries no invariant.
type GenericAccessory struct {
	Device          Device                      `json:"device"`
	Identity        string                      `json:"identity"`
	Name            string                      `json:"name"`
	Kind            domain.DeviceKind           `json:"kind"`
	Component       string                      `json:"component"`
	Characteristics []domain.CharacteristicKind `json:"characteristics"`
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("kostalbridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "Kostal",
		Model:        "kostalbridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Kostal Bridge %s", md5HashShort(baseTopic)),
	}
}

// ConfiguredDescriptors derives the full set of virtual devices from the
// inverter configuration: one device per physical quantity, per-string
// devices for each configured DC string, plus the notification carrier.
// Serial numbers extend the inverter serial with a stable suffix.
func ConfiguredDescriptors(cfg config.Config) []domain.DeviceDescriptor {
	inv := cfg.Inverter
	name := inv.Name
	if name == "" {
		name = "Kostal Inverter"
	}
	model := inv.Model
	if model == "" {
		model = "Plenticore"
	}
	serial := inv.SerialNumber
	if serial == "" {
		serial = "123456789"
	}
	maxEnergy := inv.MaxEnergyPerDay
	if maxEnergy <= 0 {
		maxEnergy = 20
	}

	descriptors := []domain.DeviceDescriptor{
		{
			Name:            name,
			Model:           model,
			SerialNumber:    serial,
			Kind:            domain.DEVICE_KIND_MAIN,
			MaxPower:        inv.MaxPower,
			MaxEnergyPerDay: maxEnergy,
		},
		{
			Name:         fmt.Sprintf("%s Home Consumption", name),
			Model:        model,
			SerialNumber: fmt.Sprintf("%s-HOME", serial),
			Kind:         domain.DEVICE_KIND_HOME_POWER,
		},
		{
			Name:         fmt.Sprintf("%s Grid Flow", name),
			Model:        model,
			SerialNumber: fmt.Sprintf("%s-GRID", serial),
			Kind:         domain.DEVICE_KIND_GRID_POWER,
		},
		{
			Name:         fmt.Sprintf("%s Temperature", name),
			Model:        model,
			SerialNumber: fmt.Sprintf("%s-TEMP", serial),
			Kind:         domain.DEVICE_KIND_TEMPERATURE,
		},
		{
			Name:            fmt.Sprintf("%s Daily Energy", name),
			Model:           model,
			SerialNumber:    fmt.Sprintf("%s-ENERGY", serial),
			Kind:            domain.DEVICE_KIND_DAILY_ENERGY,
			MaxEnergyPerDay: maxEnergy,
		},
		{
			Name:         fmt.Sprintf("%s Status", name),
			Model:        model,
			SerialNumber: fmt.Sprintf("%s-STATUS", serial),
			Kind:         domain.DEVICE_KIND_STATUS,
		},
	}

	for n := 1; n <= inv.Strings; n++ {
		descriptors = append(descriptors, domain.DeviceDescriptor{
			Name:         fmt.Sprintf("String %d", n),
			Model:        fmt.Sprintf("%s String %d", model, n),
			SerialNumber: fmt.Sprintf("%s-S%d", serial, n),
			Kind:         domain.DEVICE_KIND_STRING,
			StringNumber: n,
		})
	}

	descriptors = append(descriptors, domain.DeviceDescriptor{
		Name:         fmt.Sprintf("%s Daily Report", name),
		Model:        model,
		SerialNumber: fmt.Sprintf("%s-NOTIFY", serial),
		Kind:         domain.DEVICE_KIND_NOTIFICATION,
	})

	return descriptors
}

// componentByKind is the cosmetic kind→component table (original plugin:
// outlets for power, light sensor for energy levels, contact sensor for
// status).
var componentByKind = map[domain.DeviceKind]string{
	domain.DEVICE_KIND_MAIN:         COMPONENT_OUTLET,
	domain.DEVICE_KIND_HOME_POWER:   COMPONENT_OUTLET,
	domain.DEVICE_KIND_GRID_POWER:   COMPONENT_OUTLET,
	domain.DEVICE_KIND_TEMPERATURE:  COMPONENT_TEMPERATURE_SENSOR,
	domain.DEVICE_KIND_DAILY_ENERGY: COMPONENT_LIGHT_SENSOR,
	domain.DEVICE_KIND_STATUS:       COMPONENT_CONTACT_SENSOR,
	domain.DEVICE_KIND_STRING:       COMPONENT_OUTLET,
	domain.DEVICE_KIND_NOTIFICATION: COMPONENT_SWITCH,
}

var characteristicsByKind = map[domain.DeviceKind][]domain.CharacteristicKind{
	domain.DEVICE_KIND_MAIN:         {domain.CHARACTERISTIC_ON, domain.CHARACTERISTIC_IN_USE},
	domain.DEVICE_KIND_HOME_POWER:   {domain.CHARACTERISTIC_ON, domain.CHARACTERISTIC_IN_USE},
	domain.DEVICE_KIND_GRID_POWER:   {domain.CHARACTERISTIC_ON, domain.CHARACTERISTIC_EXPORTING},
	domain.DEVICE_KIND_TEMPERATURE:  {domain.CHARACTERISTIC_TEMPERATURE},
	domain.DEVICE_KIND_DAILY_ENERGY: {domain.CHARACTERISTIC_LEVEL},
	domain.DEVICE_KIND_STATUS:       {domain.CHARACTERISTIC_CONTACT},
	domain.DEVICE_KIND_STRING: {
		domain.CHARACTERISTIC_VOLTAGE, domain.CHARACTERISTIC_CURRENT,
		domain.CHARACTERISTIC_POWER, domain.CHARACTERISTIC_ON,
	},
	domain.DEVICE_KIND_NOTIFICATION: {domain.CHARACTERISTIC_PULSE},
}

// ToGenericAccessory renders the discovery view for a registered device.
func ToGenericAccessory(bridge Device, identity string, descriptor domain.DeviceDescriptor) GenericAccessory {
	return GenericAccessory{
		Device: Device{
			Id:           fmt.Sprintf("kostal_%s", md5HashShort(descriptor.SerialNumber)),
			Name:         descriptor.Name,
			Model:        descriptor.Model,
			Manufacturer: "Kostal",
			Version:      versioninfo.Short(),
			ViaDevice:    bridge.Id,
		},
		Identity:        identity,
		Name:            descriptor.Name,
		Kind:            descriptor.Kind,
		Component:       componentByKind[descriptor.Kind],
		Characteristics: characteristicsByKind[descriptor.Kind],
	}
}

func md5HashShort(str string) string {
	hash := md5.Sum([]byte(str))
	return hex.EncodeToString(hash[:])[:8]
}
