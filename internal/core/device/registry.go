package device

import (
	"fmt"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// identityNamespace seeds the deterministic serial→identity derivation.
// Changing it would orphan every cached accessory, so it never changes.
var identityNamespace = uuid.MustParse("7d7cca1f-24ea-4c55-bd0c-6b9e02f6a6a5")

// DeviceIdentity derives the persisted host identity for a serial number.
// Same serial, same identity, every run.
func DeviceIdentity(serialNumber string) string {
	return uuid.NewSHA1(identityNamespace, []byte(serialNumber)).String()
}

// Registry owns every VirtualDevice of the process and the identity index.
// It guarantees at most one device per serial number and reconciles
// configured descriptors against the host's accessory cache so restarts
// never register duplicates.
type Registry struct {
	host       port.AccessoryHost
	logger     *zap.Logger
	bySerial   map[string]*VirtualDevice
	byIdentity map[string]*VirtualDevice
	cached     map[string]domain.DeviceDescriptor
}

func NewRegistry(host port.AccessoryHost, logger *zap.Logger) *Registry {
	return &Registry{
		host:       host,
		logger:     logger,
		bySerial:   make(map[string]*VirtualDevice),
		byIdentity: make(map[string]*VirtualDevice),
		cached:     make(map[string]domain.DeviceDescriptor),
	}
}

// AdoptFromCache registers a cached host accessory so a later Reconcile for
// the same serial adopts it instead of creating a duplicate. Must be called
// before the first Reconcile.
func (r *Registry) AdoptFromCache(identity string, descriptor domain.DeviceDescriptor) {
	r.cached[identity] = descriptor
	r.logger.Info("adopted cached device",
		zap.String("identity", identity),
		zap.String("name", descriptor.Name))
}

// Reconcile resolves a descriptor to its VirtualDevice. An already
// reconciled serial returns the existing instance with the descriptor
// refreshed; a cache hit adopts the persisted identity; anything else
// registers a new device with the host. The returned device always carries
// the freshly supplied descriptor.
func (r *Registry) Reconcile(descriptor domain.DeviceDescriptor) (*VirtualDevice, error) {
	if !descriptor.Kind.Valid() {
		return nil, fmt.Errorf("unknown device kind %q", descriptor.Kind)
	}
	if descriptor.SerialNumber == "" {
		return nil, fmt.Errorf("device %q has no serial number", descriptor.Name)
	}

	if existing, ok := r.bySerial[descriptor.SerialNumber]; ok {
		existing.descriptor = descriptor
		if err := r.host.UpdateExistingDevice(existing.identity, descriptor); err != nil {
			r.logger.Warn("device metadata update failed", zap.String("serial", descriptor.SerialNumber), zap.Error(err))
		}
		return existing, nil
	}

	identity := DeviceIdentity(descriptor.SerialNumber)
	dev := &VirtualDevice{
		identity:   identity,
		descriptor: descriptor,
		writer:     r.host,
		lastSeen:   make(map[string]float64),
	}

	if _, ok := r.cached[identity]; ok {
		dev.fromCache = true
		delete(r.cached, identity)
		r.logger.Info("device restored from cache", zap.String("name", descriptor.Name), zap.String("identity", identity))
		if err := r.host.UpdateExistingDevice(identity, descriptor); err != nil {
			r.logger.Warn("device metadata update failed", zap.String("serial", descriptor.SerialNumber), zap.Error(err))
		}
	} else {
		r.logger.Info("new device registered", zap.String("name", descriptor.Name), zap.String("identity", identity))
		if err := r.host.RegisterNewDevice(identity, descriptor); err != nil {
			r.logger.Warn("device registration failed", zap.String("serial", descriptor.SerialNumber), zap.Error(err))
		}
	}

	r.bySerial[descriptor.SerialNumber] = dev
	r.byIdentity[identity] = dev
	return dev, nil
}

// Broadcast pushes a snapshot to every device. Device order is unspecified
// and each update is isolated: one failing device never affects siblings.
func (r *Registry) Broadcast(snapshot domain.MetricSnapshot) {
	for _, dev := range r.bySerial {
		r.updateOne(dev, snapshot)
	}
}

func (r *Registry) updateOne(dev *VirtualDevice, snapshot domain.MetricSnapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("device update failed",
				zap.String("serial", dev.descriptor.SerialNumber),
				zap.Any("reason", rec))
		}
	}()
	dev.UpdateData(snapshot)
}

// PulseNotification fires the momentary trigger on the notification device,
// if one is registered. The host surface auto-reverts the characteristic.
func (r *Registry) PulseNotification() bool {
	for _, dev := range r.bySerial {
		if dev.descriptor.Kind == domain.DEVICE_KIND_NOTIFICATION {
			r.host.PulseCharacteristic(dev.identity, domain.CHARACTERISTIC_PULSE)
			return true
		}
	}
	return false
}

func (r *Registry) BySerial(serialNumber string) (*VirtualDevice, bool) {
	dev, ok := r.bySerial[serialNumber]
	return dev, ok
}

func (r *Registry) Devices() []*VirtualDevice {
	out := make([]*VirtualDevice, 0, len(r.bySerial))
	for _, dev := range r.bySerial {
		out = append(out, dev)
	}
	return out
}

func (r *Registry) Count() int {
	return len(r.bySerial)
}
