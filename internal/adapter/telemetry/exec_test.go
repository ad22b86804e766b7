package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/util"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParsePayload(t *testing.T) {

	assert := assert.New(t)

	payload := []byte(`{
		"power": 4230.5,
		"home_power": 512.3,
		"grid_power": -3718.2,
		"energy_today": 12.44,
		"temperature": 38.1,
		"voltage_dc1": 380.2
	}`)

	snapshot, err := parsePayload(payload, 2)
	assert.NoError(err)
	assert.Equal(4230.5, snapshot.Value(domain.METRIC_POWER))
	assert.Equal(-3718.2, snapshot.Value(domain.METRIC_GRID_POWER))
	assert.Equal(380.2, snapshot.Value(domain.MetricVoltageDC(1)))
	// normalization fills the vocabulary with zeroes
	assert.True(snapshot.Has(domain.METRIC_FREQUENCY))
	assert.Equal(0.0, snapshot.Value(domain.METRIC_FREQUENCY))
	assert.False(snapshot.Simulated)
}

func TestParsePayloadInvalidJSON(t *testing.T) {

	assert := assert.New(t)

	_, err := parsePayload([]byte("not json"), 2)
	assert.Error(err)
	assert.True(errors.Is(err, domain.ErrParse))
}

func TestParsePayloadEmptyObject(t *testing.T) {

	assert := assert.New(t)

	_, err := parsePayload([]byte("{}"), 2)
	assert.Error(err)
	assert.True(errors.Is(err, domain.ErrParse))
}

func TestExecSourceWithoutCommand(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Inverter.HelperCommand = ""

	source := NewExecSource(cfg.Inverter, 2*time.Second, zap.NewNop())
	_, err := source.Fetch(context.Background())
	assert.Error(err)
	assert.True(errors.Is(err, domain.ErrTransport))
}

func TestExecSourceArguments(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Inverter.HelperCommand = "python3 -m kostalfetch"
	cfg.Inverter.Host = "192.168.1.50"
	cfg.Inverter.Username = "pvserver"
	cfg.Inverter.Password = "secret"

	source := NewExecSource(cfg.Inverter, 2*time.Second, zap.NewNop())
	assert.Equal("python3", source.command)
	assert.Equal([]string{
		"-m", "kostalfetch",
		"--host", "192.168.1.50",
		"--username", "pvserver",
		"--password", "secret",
		"--once",
	}, source.args)
}
