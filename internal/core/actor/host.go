package actor

import (
	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/port"

	"github.com/asynkron/protoactor-go/eventstream"
)

// EventStreamHost bridges the device registry to the MQTT surface.
// Characteristic writes become events on the shared stream; registrations are
// collected so the devices actor can flush them as retained config messages
// in one batch.
type EventStreamHost struct {
	stream  *eventstream.EventStream
	pending []domain.RegisteredAccessory
}

var _ port.AccessoryHost = (*EventStreamHost)(nil)

func NewEventStreamHost(stream *eventstream.EventStream) *EventStreamHost {
	return &EventStreamHost{
		stream: stream,
	}
}

func (h *EventStreamHost) SetBoolCharacteristic(identity string, kind domain.CharacteristicKind, value bool) {
	h.stream.Publish(domain.BoolCharacteristicUpdateEvent{
		CharacteristicUpdateEventMixIn: domain.CharacteristicUpdateEventMixIn{
			Identity: identity,
			Kind:     kind,
		},
		Value: value,
	})
}

func (h *EventStreamHost) SetFloatCharacteristic(identity string, kind domain.CharacteristicKind, value float64, decimals uint) {
	h.stream.Publish(domain.FloatCharacteristicUpdateEvent{
		CharacteristicUpdateEventMixIn: domain.CharacteristicUpdateEventMixIn{
			Identity: identity,
			Kind:     kind,
		},
		Value:    value,
		Decimals: decimals,
	})
}

func (h *EventStreamHost) PulseCharacteristic(identity string, kind domain.CharacteristicKind) {
	h.stream.Publish(domain.PulseCharacteristicEvent{
		CharacteristicUpdateEventMixIn: domain.CharacteristicUpdateEventMixIn{
			Identity: identity,
			Kind:     kind,
		},
	})
}

func (h *EventStreamHost) RegisterNewDevice(identity string, descriptor domain.DeviceDescriptor) error {
	h.pending = append(h.pending, domain.RegisteredAccessory{
		Identity:   identity,
		Descriptor: descriptor,
	})
	return nil
}

func (h *EventStreamHost) UpdateExistingDevice(identity string, descriptor domain.DeviceDescriptor) error {
	h.pending = append(h.pending, domain.RegisteredAccessory{
		Identity:   identity,
		Descriptor: descriptor,
		FromCache:  true,
	})
	return nil
}

// DrainRegistrations returns the registrations collected since the last call.
func (h *EventStreamHost) DrainRegistrations() []domain.RegisteredAccessory {
	pending := h.pending
	h.pending = nil
	return pending
}
