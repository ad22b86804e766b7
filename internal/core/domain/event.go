package domain

import "fmt"

type CharacteristicUpdateEventMixIn struct {
	Identity string
	Kind     CharacteristicKind
}

type CharacteristicUpdateEvent interface {
	CharacteristicUpdateEvent() string
	DeviceIdentity() string
	Characteristic() CharacteristicKind
}

func (e CharacteristicUpdateEventMixIn) CharacteristicUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e CharacteristicUpdateEventMixIn) DeviceIdentity() string {
	return e.Identity
}

func (e CharacteristicUpdateEventMixIn) Characteristic() CharacteristicKind {
	return e.Kind
}

type BoolCharacteristicUpdateEvent struct {
	CharacteristicUpdateEventMixIn
	Value bool
}

type FloatCharacteristicUpdateEvent struct {
	CharacteristicUpdateEventMixIn
	Value    float64
	Decimals uint
}

// PulseCharacteristicEvent is a momentary trigger: the host surface sets the
// characteristic active and auto-reverts it shortly after.
type PulseCharacteristicEvent struct {
	CharacteristicUpdateEventMixIn
}

type BridgeStateUpdateEvent struct {
	Value bool
}
