package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/metrics"
	"github.com/chr-braun/kostalbridge/internal/core/service"
	"github.com/chr-braun/kostalbridge/internal/mqtt"
	. "github.com/chr-braun/kostalbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const reportJobKey = "daily_report"

// ReportActor schedules the daily energy report. The cron job fires a
// trigger message back into the actor; the same message also arrives from
// the MQTT command topic for manual triggering.
type ReportActor struct {
	config       *config.Config
	mqttActor    *actor.PID
	devicesActor *actor.PID
	ledger       *metrics.DailyEnergyLedger
	renderer     *service.ReportRenderer

	sched      quartz.Scheduler
	schedBase  context.Context
	schedStop  context.CancelFunc
	reportJob  *job.FunctionJob[bool]
	reportTime service.ReportTime

	logger *zap.Logger
}

func NewReportActor(config *config.Config, mqttActor, devicesActor *actor.PID,
	ledger *metrics.DailyEnergyLedger, logger *zap.Logger) *ReportActor {
	return &ReportActor{
		config:       config,
		mqttActor:    mqttActor,
		devicesActor: devicesActor,
		ledger:       ledger,
		renderer:     service.NewReportRenderer(config.Language),
		logger:       ActorLogger(domain.ACTOR_ID_REPORT, logger),
	}
}

func (state *ReportActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("report@default started")
		if state.config.Report.Enable {
			state.startScheduler(ctx)
			state.scheduleAt(state.config.Report.Time)
		} else {
			state.logger.Info("daily report disabled")
		}
	case *actor.Stopping:
		state.stopScheduler()
	case *actor.Restarting:
		state.stopScheduler()
	case domain.ActorHealthRequest:
		state.logger.Debug("report@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_REPORT,
			Healthy: true,
			State:   fmt.Sprintf("next=%s", state.reportTime),
		})
	case domain.ConfigureReportRequest:
		state.logger.Debug("report@default ConfigureReportRequest", zap.String("spec", msg.TimeSpec))
		if state.sched == nil {
			state.startScheduler(ctx)
		}
		state.scheduleAt(msg.TimeSpec)
	case domain.TriggerDailyReportRequest:
		state.logger.Debug("report@default TriggerDailyReportRequest")
		state.sendReport(ctx)
	case domain.PublishMessageResponse:
		if msg.HasResponseError() {
			state.logger.Error("report publish failed", zap.Error(msg.GetResponseError()))
		}
	}
}

func (state *ReportActor) startScheduler(ctx actor.Context) {
	state.sched = quartz.NewStdScheduler()
	state.schedBase, state.schedStop = context.WithCancel(context.Background())
	state.sched.Start(state.schedBase)

	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.reportJob = job.NewFunctionJob(func(_ context.Context) (bool, error) {
		root.Send(self, domain.TriggerDailyReportRequest{})
		return true, nil
	})
}

// scheduleAt replaces the cron job. Scheduling is idempotent: an existing
// job under the same key is deleted first.
func (state *ReportActor) scheduleAt(spec string) {
	reportTime, err := service.ParseReportTime(spec)
	if err != nil {
		state.logger.Warn("invalid report time, using fallback",
			zap.String("spec", spec), zap.String("fallback", reportTime.String()))
	}
	if reportTime.Degraded {
		state.logger.Info("sun-relative report time degraded to fixed time",
			zap.String("spec", spec), zap.String("time", reportTime.String()))
	}
	state.reportTime = reportTime

	trigger, err := quartz.NewCronTriggerWithLoc(reportTime.CronSpec(), time.Local)
	if err != nil {
		state.logger.Error("could not build report trigger", zap.Error(err))
		return
	}
	jobKey := quartz.NewJobKey(reportJobKey)
	_ = state.sched.DeleteJob(jobKey)
	err = state.sched.ScheduleJob(quartz.NewJobDetail(state.reportJob, jobKey), trigger)
	if err != nil {
		state.logger.Error("could not schedule report job", zap.Error(err))
		return
	}
	state.logger.Info("daily report scheduled", zap.String("time", reportTime.String()),
		zap.String("language", state.renderer.Language()))
}

func (state *ReportActor) sendReport(ctx actor.Context) {
	now := time.Now()
	energy, ok := state.ledger.Energy(now)
	if !ok {
		state.logger.Warn("no energy recorded for today, reporting zero")
	}
	text := state.renderer.Render(now, energy)
	state.logger.Info("publishing daily report", zap.String("text", text))

	ctx.Send(state.mqttActor, domain.PublishMessageRequest{
		ActorRequestMixIn: domain.ActorRequestMixIn{
			ReplyToRef: (*domain.ActorRef)(ctx.Self()),
		},
		Topic:   mqtt.ReportTextTopic(state.config.MQTT.BaseTopic),
		Payload: text,
	})
	ctx.Send(state.devicesActor, domain.PulseNotificationRequest{})
}

func (state *ReportActor) stopScheduler() {
	if state.sched != nil {
		state.sched.Stop()
		if state.schedStop != nil {
			state.schedStop()
		}
		state.sched = nil
	}
}
