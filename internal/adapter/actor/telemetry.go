package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/port"
	"github.com/chr-braun/kostalbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// TelemetryActor owns the telemetry source. Fetches run as background tasks
// while the actor stashes everything else, so at most one fetch is in flight
// against the inverter at a time.
type TelemetryActor struct {
	behavior     actor.Behavior
	stash        *actorutil.Stash
	source       port.TelemetrySource
	fetchTimeout time.Duration
	logger       *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewTelemetryActor(source port.TelemetrySource, fetchTimeout time.Duration, logger *zap.Logger) *TelemetryActor {
	act := &TelemetryActor{
		source:       source,
		fetchTimeout: fetchTimeout,
		behavior:     actor.NewBehavior(),
		stash:        &actorutil.Stash{},
		logger:       actorutil.ActorLogger(domain.ACTOR_ID_TELEMETRY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *TelemetryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *TelemetryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("telemetry@starting started")
		if oc, ok := state.source.(port.OpenCloser); ok {
			if err := oc.Open(); err != nil {
				panic(err)
			}
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.closeSource()
	default:
		state.logger.Debug("telemetry@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TelemetryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("telemetry@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_TELEMETRY,
			Healthy: true,
			State:   "idle",
		})
	case domain.FetchTelemetryRequest:
		state.logger.Debug("telemetry@default: FetchTelemetryRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.fetch),
			mapTaskResult[domain.FetchTelemetryResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.FetchTelemetryResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.fetchTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingFetch)
	case *actor.Stopping:
		state.closeSource()
	default:
		state.logger.Debug("telemetry@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *TelemetryActor) WaitingFetch(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("telemetry@waitingFetch backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.closeSource()
	default:
		state.logger.Debug("telemetry@waitingFetch stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TelemetryActor) fetch() (*domain.FetchTelemetryResponse, error) {
	cctx, cancel := context.WithTimeout(context.Background(), state.fetchTimeout)
	defer cancel()
	snapshot, err := state.source.Fetch(cctx)
	if err != nil {
		state.logger.Debug("telemetry fetch failed", zap.Error(err))
		return nil, err
	}
	return &domain.FetchTelemetryResponse{
		Snapshot: snapshot,
	}, nil
}

func (state *TelemetryActor) closeSource() {
	if oc, ok := state.source.(port.OpenCloser); ok {
		_ = oc.Close()
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
