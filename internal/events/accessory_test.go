package events

import (
	"testing"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/util"

	"github.com/stretchr/testify/assert"
)

func TestConfiguredDescriptors(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	descriptors := ConfiguredDescriptors(cfg)

	// 6 fixed devices, one per configured string, plus the notification carrier
	assert.Len(descriptors, 6+cfg.Inverter.Strings+1)

	bySerial := map[string]domain.DeviceDescriptor{}
	for _, d := range descriptors {
		assert.True(d.Kind.Valid(), d.SerialNumber)
		assert.NotEmpty(d.SerialNumber)
		_, dup := bySerial[d.SerialNumber]
		assert.False(dup, "serial numbers are unique")
		bySerial[d.SerialNumber] = d
	}

	main := bySerial["90342.1561"]
	assert.Equal(domain.DEVICE_KIND_MAIN, main.Kind)
	assert.Equal("Test Inverter", main.Name)
	assert.Equal(5500.0, main.MaxPower)

	grid := bySerial["90342.1561-GRID"]
	assert.Equal(domain.DEVICE_KIND_GRID_POWER, grid.Kind)

	s2 := bySerial["90342.1561-S2"]
	assert.Equal(domain.DEVICE_KIND_STRING, s2.Kind)
	assert.Equal(2, s2.StringNumber)

	notify := bySerial["90342.1561-NOTIFY"]
	assert.Equal(domain.DEVICE_KIND_NOTIFICATION, notify.Kind)
}

func TestConfiguredDescriptorsDefaults(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Inverter.Name = ""
	cfg.Inverter.Model = ""
	cfg.Inverter.SerialNumber = ""
	cfg.Inverter.MaxEnergyPerDay = 0

	descriptors := ConfiguredDescriptors(cfg)
	main := descriptors[0]
	assert.Equal("Kostal Inverter", main.Name)
	assert.Equal("Plenticore", main.Model)
	assert.Equal("123456789", main.SerialNumber)
	assert.Equal(20.0, main.MaxEnergyPerDay)
}

func TestToGenericAccessory(t *testing.T) {

	assert := assert.New(t)

	bridge := BridgeDevice("kostalbridge")
	assert.NotEmpty(bridge.Id)

	descriptor := domain.DeviceDescriptor{
		Name:         "Test Inverter Grid Flow",
		Model:        "Piko 5.5",
		SerialNumber: "SN1-GRID",
		Kind:         domain.DEVICE_KIND_GRID_POWER,
	}
	acc := ToGenericAccessory(bridge, "some-identity", descriptor)

	assert.Equal("some-identity", acc.Identity)
	assert.Equal(COMPONENT_OUTLET, acc.Component)
	assert.Equal(bridge.Id, acc.Device.ViaDevice)
	assert.ElementsMatch([]domain.CharacteristicKind{
		domain.CHARACTERISTIC_ON, domain.CHARACTERISTIC_EXPORTING,
	}, acc.Characteristics)
}
