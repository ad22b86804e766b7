package actor

import (
	"testing"
	"time"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/metrics"
	"github.com/chr-braun/kostalbridge/internal/util"
	"github.com/chr-braun/kostalbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestReportActorTriggerPublishesAndPulses(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.Report.Enable = false
	logger := zap.NewNop()

	ledger := metrics.NewDailyEnergyLedger()
	ledger.Record(time.Now(), 12.44)

	publishCh := make(chan domain.PublishMessageRequest, 1)
	mqttStub := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.PublishMessageRequest:
			publishCh <- msg
			actorutil.ForRequest(msg).Respond(ctx, domain.PublishMessageResponse{})
		}
	}))

	pulseCh := make(chan domain.PulseNotificationRequest, 1)
	devicesStub := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.PulseNotificationRequest:
			pulseCh <- msg
		}
	}))

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewReportActor(&cfg, mqttStub, devicesStub, ledger, logger)
	})
	pid, err := context.SpawnNamed(props, "report")
	assert.NoError(t, err)

	// manual trigger, same message the cron job and the command topic send
	context.Send(pid, domain.TriggerDailyReportRequest{})

	select {
	case msg := <-publishCh:
		assert.Equal(t, "kostalbridge/report/text", msg.Topic)
		assert.Contains(t, msg.Payload, "Solar energy produced on")
		assert.Contains(t, msg.Payload, "12.4 kWh")
	case <-time.After(2 * time.Second):
		t.Fatal("report text was not published")
	}

	select {
	case <-pulseCh:
	case <-time.After(2 * time.Second):
		t.Fatal("notification device was not pulsed")
	}

	context.Stop(pid)
	as.Shutdown()
}

func TestReportActorReportsZeroWithoutLedgerEntry(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.Report.Enable = false

	publishCh := make(chan domain.PublishMessageRequest, 1)
	mqttStub := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.PublishMessageRequest:
			publishCh <- msg
		}
	}))
	devicesStub := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {}))

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewReportActor(&cfg, mqttStub, devicesStub, metrics.NewDailyEnergyLedger(), zap.NewNop())
	})
	pid, err := context.SpawnNamed(props, "report")
	assert.NoError(t, err)

	context.Send(pid, domain.TriggerDailyReportRequest{})

	select {
	case msg := <-publishCh:
		assert.Contains(t, msg.Payload, "0.0 kWh")
	case <-time.After(2 * time.Second):
		t.Fatal("report text was not published")
	}

	context.Stop(pid)
	as.Shutdown()
}
