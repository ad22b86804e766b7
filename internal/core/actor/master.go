package actor

import (
	"fmt"
	"log"
	"time"

	adactor "github.com/chr-braun/kostalbridge/internal/adapter/actor"
	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/metrics"
	. "github.com/chr-braun/kostalbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type TelemetryActorProvider func() *adactor.TelemetryActor

// MasterActor supervises the actor tree: the MQTT and telemetry transports
// under backoff supervision, the logic actors under restart supervision.
// When no inverter is configured it runs degraded with the device tree only.
type MasterActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	store              *metrics.MetricStore
	ledger             *metrics.DailyEnergyLedger

	telemetryActor *actor.PID
	mqttActor      *actor.PID
	devicesActor   *actor.PID
	pollerActor    *actor.PID
	reportActor    *actor.PID

	telemetryActorProvider TelemetryActorProvider
	mqttActorProvider      MQTTActorProvider

	logger *zap.Logger
}

type healthCheckResult struct {
	healthyById    map[string]bool
	expectedChecks int
	checksReceived int
	respondTo      *actor.PID
}

func NewMasterActor(config config.Config, telemetryActorProvider TelemetryActorProvider,
	mqttActorProvider MQTTActorProvider, store *metrics.MetricStore,
	ledger *metrics.DailyEnergyLedger, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:                 config,
		behavior:               actor.NewBehavior(),
		stash:                  &Stash{},
		logger:                 ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:            &eventstream.EventStream{},
		store:                  store,
		ledger:                 ledger,
		telemetryActorProvider: telemetryActorProvider,
		mqttActorProvider:      mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset(state.expectedChecks())

		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		devicesActorPID, err := state.startDevicesActor(ctx)
		if err != nil {
			panic(err)
		}
		state.devicesActor = devicesActorPID

		if state.config.TelemetryConfigured() {
			telemetryActorPID, err := state.startTelemetryActor(ctx)
			if err != nil {
				panic(err)
			}
			state.telemetryActor = telemetryActorPID

			pollerActorPID, err := state.startPollerActor(ctx)
			if err != nil {
				panic(err)
			}
			state.pollerActor = pollerActorPID
		} else {
			state.logger.Warn("no inverter configured, telemetry loop disabled")
		}

		reportActorPID, err := state.startReportActor(ctx)
		if err != nil {
			panic(err)
		}
		state.reportActor = reportActorPID

		state.eventStream.Publish(domain.BridgeStateUpdateEvent{Value: true})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(state.expectedChecks())
		state.currentHealthCheck.respondTo = ctx.Sender()

		state.requestChildHealth(ctx, state.mqttActor, domain.ACTOR_ID_MQTT)
		state.requestChildHealth(ctx, state.devicesActor, domain.ACTOR_ID_DEVICES)
		state.requestChildHealth(ctx, state.reportActor, domain.ACTOR_ID_REPORT)
		if state.telemetryActor != nil {
			state.requestChildHealth(ctx, state.telemetryActor, domain.ACTOR_ID_TELEMETRY)
		}
		if state.pollerActor != nil {
			state.requestChildHealth(ctx, state.pollerActor, domain.ACTOR_ID_POLLER)
		}

		ctx.SetReceiveTimeout(1 * time.Second)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.AdoptCachedDevicesRequest:
		// identity cache replayed by the MQTT actor, forward to devices
		state.logger.Debug("master@default AdoptCachedDevicesRequest", zap.Int("cached", len(msg.Devices)))
		ctx.Send(state.devicesActor, msg)
	case adactor.ParsedCommand:
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToRequest(*msg.Command)
			if err == nil && cmd != nil {
				switch pcmd := cmd.(type) {
				case domain.TriggerDailyReportRequest:
					ctx.Send(state.reportActor, pcmd)
				}
			}
		}
	case *actor.Terminated:
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MQTT) {
			state.logger.Error("master@default mqtt terminated")
			panic(fmt.Errorf("mqtt terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// a silent child counts as unhealthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			state.currentHealthCheck.healthyById[msg.Id] = true
		}
		if state.currentHealthCheck.allReceived() {
			state.currentHealthCheck.respond(ctx)
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) requestChildHealth(ctx actor.Context, pid *actor.PID, id string) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      id,
			Healthy: false,
		}
	})
}

func (state *MasterActor) expectedChecks() int {
	if state.config.TelemetryConfigured() {
		return 5
	}
	return 3
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {
	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterActor) startTelemetryActor(ctx actor.Context) (*actor.PID, error) {
	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	telemetryProps := actor.PropsFromProducer(func() actor.Actor {
		return state.telemetryActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(telemetryProps, domain.ACTOR_ID_TELEMETRY)
}

func (state *MasterActor) startDevicesActor(ctx actor.Context) (*actor.PID, error) {
	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	devicesProps := actor.PropsFromProducer(func() actor.Actor {
		return NewDevicesActor(&state.config, state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(devicesProps, domain.ACTOR_ID_DEVICES)
}

func (state *MasterActor) startPollerActor(ctx actor.Context) (*actor.PID, error) {
	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewAllForOneStrategy(1, 10*time.Second, decider)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&state.config, state.telemetryActor, state.devicesActor,
			state.store, state.ledger, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(pollerProps, domain.ACTOR_ID_POLLER)
}

func (state *MasterActor) startReportActor(ctx actor.Context) (*actor.PID, error) {
	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	reportProps := actor.PropsFromProducer(func() actor.Actor {
		return NewReportActor(&state.config, state.mqttActor, state.devicesActor, state.ledger, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(reportProps, domain.ACTOR_ID_REPORT)
}

func (state *healthCheckResult) reset(expected int) {
	state.healthyById = map[string]bool{}
	state.expectedChecks = expected
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == state.expectedChecks
}

func (state *healthCheckResult) allHealthy() bool {
	return len(state.healthyById) == state.expectedChecks
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
