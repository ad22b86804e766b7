package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

const (
	ACTOR_ID_MASTER    = "master"
	ACTOR_ID_TELEMETRY = "telemetry"
	ACTOR_ID_MQTT      = "mqtt"
	ACTOR_ID_DEVICES   = "devices"
	ACTOR_ID_POLLER    = "poller"
	ACTOR_ID_REPORT    = "report"
)

type ActorRef actor.PID

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

// Telemetry actor

type FetchTelemetryRequest struct {
	ActorRequestMixIn
}

type FetchTelemetryResponse struct {
	ActorResponseMixIn
	Snapshot *MetricSnapshot
}

// Devices actor

type AdoptCachedDevicesRequest struct {
	ActorRequestMixIn
	Devices []CachedDevice
}

type BroadcastSnapshotRequest struct {
	ActorRequestMixIn
	Snapshot MetricSnapshot
}

type PulseNotificationRequest struct {
	ActorRequestMixIn
}

// MQTT actor

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishAccessoryConfigRequest struct {
	ActorRequestMixIn
	Accessories []RegisteredAccessory
}

type PublishAccessoryConfigResponse struct {
	ActorResponseMixIn
}

// RegisteredAccessory pairs a reconciled device with its persisted identity.
type RegisteredAccessory struct {
	Identity   string
	Descriptor DeviceDescriptor
	FromCache  bool
}

// Report actor

type TriggerDailyReportRequest struct {
	ActorRequestMixIn
}

type ConfigureReportRequest struct {
	ActorRequestMixIn
	TimeSpec string
}

// Health checks

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
