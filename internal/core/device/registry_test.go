package device

import (
	"fmt"
	"testing"
	"time"

	"github.com/chr-braun/kostalbridge/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type hostCall struct {
	op       string
	identity string
	kind     domain.CharacteristicKind
	boolVal  bool
	floatVal float64
}

// recorderHost captures every host interaction for assertions.
type recorderHost struct {
	calls       []hostCall
	registered  []string
	updated     []string
	panicOnPush bool
}

func (h *recorderHost) SetBoolCharacteristic(identity string, kind domain.CharacteristicKind, value bool) {
	if h.panicOnPush {
		panic("host unavailable")
	}
	h.calls = append(h.calls, hostCall{op: "bool", identity: identity, kind: kind, boolVal: value})
}

func (h *recorderHost) SetFloatCharacteristic(identity string, kind domain.CharacteristicKind, value float64, decimals uint) {
	if h.panicOnPush {
		panic("host unavailable")
	}
	h.calls = append(h.calls, hostCall{op: "float", identity: identity, kind: kind, floatVal: value})
}

func (h *recorderHost) PulseCharacteristic(identity string, kind domain.CharacteristicKind) {
	h.calls = append(h.calls, hostCall{op: "pulse", identity: identity, kind: kind})
}

func (h *recorderHost) RegisterNewDevice(identity string, descriptor domain.DeviceDescriptor) error {
	h.registered = append(h.registered, descriptor.SerialNumber)
	return nil
}

func (h *recorderHost) UpdateExistingDevice(identity string, descriptor domain.DeviceDescriptor) error {
	h.updated = append(h.updated, descriptor.SerialNumber)
	return nil
}

func (h *recorderHost) callsFor(identity string, kind domain.CharacteristicKind) []hostCall {
	var out []hostCall
	for _, c := range h.calls {
		if c.identity == identity && c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func mainDescriptor(serial string) domain.DeviceDescriptor {
	return domain.DeviceDescriptor{
		Name:            "Kostal Inverter",
		Model:           "Piko 5.5",
		SerialNumber:    serial,
		Kind:            domain.DEVICE_KIND_MAIN,
		MaxPower:        5500,
		MaxEnergyPerDay: 20,
	}
}

func TestDeviceIdentityIsStable(t *testing.T) {

	assert := assert.New(t)

	id1 := DeviceIdentity("90342.1561")
	id2 := DeviceIdentity("90342.1561")
	other := DeviceIdentity("90342.1562")

	assert.Equal(id1, id2, "same serial derives same identity")
	assert.NotEqual(id1, other, "different serial derives different identity")
	assert.Len(id1, 36, "identity is a uuid string")
}

func TestReconcileNewAndExisting(t *testing.T) {

	assert := assert.New(t)

	host := &recorderHost{}
	registry := NewRegistry(host, zap.NewNop())

	dev1, err := registry.Reconcile(mainDescriptor("SN1"))
	assert.NoError(err)
	assert.False(dev1.FromCache())
	assert.Equal([]string{"SN1"}, host.registered)

	// same serial again: same instance, metadata refreshed, no re-register
	desc := mainDescriptor("SN1")
	desc.Name = "Renamed Inverter"
	dev2, err := registry.Reconcile(desc)
	assert.NoError(err)
	assert.Same(dev1, dev2, "one device per serial")
	assert.Equal("Renamed Inverter", dev2.Descriptor().Name)
	assert.Equal([]string{"SN1"}, host.registered, "no duplicate registration")
	assert.Equal([]string{"SN1"}, host.updated)
	assert.Equal(1, registry.Count())
}

func TestReconcileAdoptsCachedIdentity(t *testing.T) {

	assert := assert.New(t)

	host := &recorderHost{}
	registry := NewRegistry(host, zap.NewNop())

	identity := DeviceIdentity("SN1")
	registry.AdoptFromCache(identity, mainDescriptor("SN1"))

	dev, err := registry.Reconcile(mainDescriptor("SN1"))
	assert.NoError(err)
	assert.True(dev.FromCache(), "cache hit adopts persisted identity")
	assert.Equal(identity, dev.Identity())
	assert.Empty(host.registered, "adopted device is not re-registered")
	assert.Equal([]string{"SN1"}, host.updated)
}

func TestReconcileRejectsInvalidDescriptors(t *testing.T) {

	assert := assert.New(t)

	registry := NewRegistry(&recorderHost{}, zap.NewNop())

	_, err := registry.Reconcile(domain.DeviceDescriptor{
		Name:         "broken",
		SerialNumber: "SN1",
		Kind:         domain.DeviceKind("toaster"),
	})
	assert.Error(err)

	_, err = registry.Reconcile(domain.DeviceDescriptor{
		Name: "no serial",
		Kind: domain.DEVICE_KIND_MAIN,
	})
	assert.Error(err)

	assert.Equal(0, registry.Count())
}

func TestBroadcastIsolatesFailingDevices(t *testing.T) {

	assert := assert.New(t)

	host := &recorderHost{}
	registry := NewRegistry(host, zap.NewNop())

	dev, err := registry.Reconcile(mainDescriptor("SN1"))
	assert.NoError(err)

	snapshot := domain.NewMetricSnapshot(map[string]float64{
		domain.METRIC_POWER: 1500,
	}, 1, time.Now())

	host.panicOnPush = true
	registry.Broadcast(snapshot)

	// the panic is contained; last-seen state was still updated
	assert.Equal(1500.0, dev.ReadCurrent(domain.METRIC_POWER))

	host.panicOnPush = false
	registry.Broadcast(snapshot)
	onCalls := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_ON)
	assert.NotEmpty(onCalls, "recovered broadcast reaches the host")
	assert.True(onCalls[0].boolVal)
}

func TestPulseNotification(t *testing.T) {

	assert := assert.New(t)

	host := &recorderHost{}
	registry := NewRegistry(host, zap.NewNop())

	assert.False(registry.PulseNotification(), "no notification device yet")

	notif := domain.DeviceDescriptor{
		Name:         "Daily Report",
		SerialNumber: "SN1-NOTIFY",
		Kind:         domain.DEVICE_KIND_NOTIFICATION,
	}
	dev, err := registry.Reconcile(notif)
	assert.NoError(err)

	assert.True(registry.PulseNotification())
	pulses := host.callsFor(dev.Identity(), domain.CHARACTERISTIC_PULSE)
	assert.Len(pulses, 1)
	assert.Equal("pulse", pulses[0].op)
}

func TestRegistryIndexes(t *testing.T) {

	assert := assert.New(t)

	registry := NewRegistry(&recorderHost{}, zap.NewNop())

	for i := 1; i <= 3; i++ {
		desc := mainDescriptor(fmt.Sprintf("SN%d", i))
		_, err := registry.Reconcile(desc)
		assert.NoError(err)
	}

	assert.Equal(3, registry.Count())
	assert.Len(registry.Devices(), 3)

	dev, ok := registry.BySerial("SN2")
	assert.True(ok)
	assert.Equal("SN2", dev.Descriptor().SerialNumber)

	_, ok = registry.BySerial("SN9")
	assert.False(ok)
}
