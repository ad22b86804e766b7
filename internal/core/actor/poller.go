package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/metrics"
	"github.com/chr-braun/kostalbridge/internal/core/telemetry"
	. "github.com/chr-braun/kostalbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollerActor drives the telemetry loop as a two-state machine: idle between
// ticks, waiting while a fetch is in flight. Ticks never overlap; a tick
// arriving mid-fetch is dropped because the next one is already armed.
// A failed fetch falls back to simulated data so downstream consumers always
// see a full snapshot per cycle.
type PollerActor struct {
	ActorWithStates
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config         *config.Config
	telemetryActor *actor.PID
	devicesActor   *actor.PID
	store          *metrics.MetricStore
	ledger         *metrics.DailyEnergyLedger
	fallback       *telemetry.SimulatedGenerator

	consecutiveFailures int

	logger *zap.Logger
}

type pollTick struct {
}

func NewPollerActor(config *config.Config, telemetryActor, devicesActor *actor.PID,
	store *metrics.MetricStore, ledger *metrics.DailyEnergyLedger, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		config:         config,
		telemetryActor: telemetryActor,
		devicesActor:   devicesActor,
		store:          store,
		ledger:         ledger,
		fallback: telemetry.NewSimulatedGenerator(config.Inverter.Strings,
			config.Inverter.MaxPower, config.Inverter.MaxEnergyPerDay),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
		stash:  &Stash{},
		logger: ActorLogger(domain.ACTOR_ID_POLLER, logger),
	}
	act.Become(pollerIdleState{actor: act})
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

type pollerIdleState struct {
	ActorState
	actor *PollerActor
}

func (state pollerIdleState) Name() string {
	return "idle"
}

func (state pollerIdleState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.logger.Debug("poller@idle started")
		a.scheduler = scheduler.NewTimerScheduler(ctx)
		ctx.Send(ctx.Self(), pollTick{})
	case domain.ActorHealthRequest:
		a.logger.Debug("poller@idle ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   fmt.Sprintf("%s failures=%d", state.Name(), a.consecutiveFailures),
		})
	case pollTick:
		a.logger.Debug("poller@idle tick")
		// schedule next tick first so a failed fetch never stops the loop
		a.scheduler.RequestOnce(a.pollInterval(), ctx.Self(), pollTick{})

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(a.telemetryActor, domain.FetchTelemetryRequest{}, a.fetchTimeout()), func(err error) any {
			return domain.FetchTelemetryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		a.BecomeStacked(pollerWaitingFetchState{actor: a})
	default:
		a.logger.Debug("poller@idle unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

type pollerWaitingFetchState struct {
	ActorState
	actor *PollerActor
}

func (state pollerWaitingFetchState) Name() string {
	return "waiting_fetch"
}

func (state pollerWaitingFetchState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case domain.FetchTelemetryResponse:
		snapshot := a.resolveSnapshot(msg)
		a.processSnapshot(ctx, snapshot)
		a.UnbecomeStacked()
		a.stash.UnstashAll(ctx)
	case pollTick:
		// a tick arriving mid-fetch is dropped, not queued: the next one is
		// already scheduled
		a.logger.Debug("poller@waiting_fetch tick dropped")
	default:
		a.logger.Debug("poller@waiting_fetch stash", zap.String("type", fmt.Sprintf("%T", msg)))
		a.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) resolveSnapshot(msg domain.FetchTelemetryResponse) domain.MetricSnapshot {
	if msg.HasResponseError() || msg.Snapshot == nil {
		state.consecutiveFailures++
		state.logger.Warn("poller fetch failed, using simulated data",
			zap.Error(msg.GetResponseError()),
			zap.Int("consecutive_failures", state.consecutiveFailures))
		fallback, _ := state.fallback.Fetch(context.Background())
		return *fallback
	}
	if state.consecutiveFailures > 0 {
		state.logger.Info("poller fetch recovered",
			zap.Int("after_failures", state.consecutiveFailures))
	}
	state.consecutiveFailures = 0
	return *msg.Snapshot
}

func (state *PollerActor) processSnapshot(ctx actor.Context, snapshot domain.MetricSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			state.logger.Error("poller snapshot processing panic", zap.Any("reason", r))
		}
	}()

	snapshot = metrics.WithDerived(snapshot)

	// order matters: store first, then device broadcast, ledger last
	state.store.Merge(snapshot)
	ctx.Send(state.devicesActor, domain.BroadcastSnapshotRequest{Snapshot: snapshot})
	state.ledger.Record(snapshot.ObservedAt, snapshot.Value(domain.METRIC_ENERGY_TODAY))
}

func (state *PollerActor) pollInterval() time.Duration {
	return time.Duration(state.config.Monitor.PollIntervalMillis) * time.Millisecond
}

func (state *PollerActor) fetchTimeout() time.Duration {
	return time.Duration(state.config.Monitor.FetchTimeoutMillis) * time.Millisecond
}
