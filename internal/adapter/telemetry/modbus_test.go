package telemetry

import (
	"context"
	"testing"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/pkg/kostalmodbus"

	"github.com/stretchr/testify/assert"
)

func TestModbusSourceFetch(t *testing.T) {

	assert := assert.New(t)

	reader, err := kostalmodbus.CreateTestInverterReader()
	assert.NoError(err)

	source := NewModbusSourceWithReader(reader, 2)
	assert.NoError(source.Open())
	defer source.Close()

	snapshot, err := source.Fetch(context.Background())
	assert.NoError(err)

	assert.Equal(4385.1, snapshot.Value(domain.METRIC_POWER))
	assert.Equal(4230.5, snapshot.Value(domain.METRIC_AC_POWER))
	assert.Equal(-3618.1, snapshot.Value(domain.METRIC_GRID_POWER))
	assert.Equal(612.4, snapshot.Value(domain.METRIC_HOME_POWER))
	assert.Equal(12.44, snapshot.Value(domain.METRIC_ENERGY_TODAY))
	assert.Equal(1.0, snapshot.Value(domain.METRIC_STATUS), "producing inverter reports status on")
	assert.Equal(401.2, snapshot.Value(domain.MetricVoltageDC(1)))
	assert.Equal(5.4, snapshot.Value(domain.MetricCurrentDC(2)))
	assert.False(snapshot.Simulated)
}
