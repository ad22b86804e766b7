package actor

import (
	"fmt"

	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/device"
	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/events"
	. "github.com/chr-braun/kostalbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// DevicesActor owns the virtual device registry. It stays in the starting
// state until the cached accessory set arrives from the MQTT surface, then
// reconciles the configured devices against it and flushes the resulting
// registrations back as retained config.
type DevicesActor struct {
	behavior actor.Behavior
	stash    *Stash

	config    *config.Config
	mqttActor *actor.PID
	host      *EventStreamHost
	registry  *device.Registry

	logger *zap.Logger
}

func NewDevicesActor(config *config.Config, mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *DevicesActor {
	host := NewEventStreamHost(eventStream)
	act := &DevicesActor{
		config:    config,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &Stash{},
		host:      host,
		registry:  device.NewRegistry(host, logger),
		logger:    ActorLogger(domain.ACTOR_ID_DEVICES, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DevicesActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DevicesActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("devices@starting started")
	case domain.AdoptCachedDevicesRequest:
		state.logger.Debug("devices@starting AdoptCachedDevicesRequest", zap.Int("cached", len(msg.Devices)))
		for _, cached := range msg.Devices {
			state.registry.AdoptFromCache(cached.Identity, cached.Descriptor)
		}
		state.reconcileConfigured(ctx)
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("devices@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DevicesActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("devices@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DEVICES,
			Healthy: true,
			State:   fmt.Sprintf("devices=%d", state.registry.Count()),
		})
	case domain.BroadcastSnapshotRequest:
		state.logger.Debug("devices@default BroadcastSnapshotRequest",
			zap.Bool("simulated", msg.Snapshot.Simulated))
		state.registry.Broadcast(msg.Snapshot)
	case domain.PulseNotificationRequest:
		state.logger.Debug("devices@default PulseNotificationRequest")
		if !state.registry.PulseNotification() {
			state.logger.Warn("devices@default no notification device registered")
		}
	case domain.AdoptCachedDevicesRequest:
		// late replay after an MQTT restart, already reconciled
		state.logger.Debug("devices@default AdoptCachedDevicesRequest ignored")
	default:
		state.logger.Debug("devices@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DevicesActor) reconcileConfigured(ctx actor.Context) {
	for _, descriptor := range events.ConfiguredDescriptors(*state.config) {
		if _, err := state.registry.Reconcile(descriptor); err != nil {
			state.logger.Error("devices@starting reconcile failed",
				zap.String("serial", descriptor.SerialNumber), zap.Error(err))
		}
	}
	registrations := state.host.DrainRegistrations()
	state.logger.Info("devices reconciled",
		zap.Int("configured", len(registrations)),
		zap.Int("total", state.registry.Count()))
	if len(registrations) > 0 {
		ctx.Send(state.mqttActor, domain.PublishAccessoryConfigRequest{
			Accessories: registrations,
		})
	}
}
