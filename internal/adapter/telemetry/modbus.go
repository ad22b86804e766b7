package telemetry

import (
	"context"
	"time"

	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/core/port"
	"github.com/chr-braun/kostalbridge/pkg/kostalmodbus"
)

// ModbusSource reads process data over Modbus TCP. The connection stays open
// between fetches; the owning actor opens it on start and reopens through the
// supervisor on failure.
type ModbusSource struct {
	reader      kostalmodbus.InverterReader
	stringCount int
}

var _ port.TelemetrySource = (*ModbusSource)(nil)
var _ port.OpenCloser = (*ModbusSource)(nil)

func NewModbusSource(cfg config.InverterConfig, fetchTimeout time.Duration) (*ModbusSource, error) {
	reader, err := kostalmodbus.CreateKostalModbusReader(cfg.Host, cfg.ModbusPort, uint8(cfg.ModbusUnitId), cfg.Strings, fetchTimeout)
	if err != nil {
		return nil, err
	}
	return &ModbusSource{
		reader:      reader,
		stringCount: cfg.Strings,
	}, nil
}

func NewModbusSourceWithReader(reader kostalmodbus.InverterReader, stringCount int) *ModbusSource {
	return &ModbusSource{
		reader:      reader,
		stringCount: stringCount,
	}
}

func (s *ModbusSource) Open() error {
	return s.reader.Open()
}

func (s *ModbusSource) Close() error {
	return s.reader.Close()
}

func (s *ModbusSource) Fetch(ctx context.Context) (*domain.MetricSnapshot, error) {
	data, err := s.reader.GetProcessData()
	if err != nil {
		return nil, domain.TransportError(err)
	}

	status := 0.0
	if data.ACPowerWatt > 0 {
		status = 1.0
	}
	raw := map[string]float64{
		domain.METRIC_POWER:        data.DCPowerWatt,
		domain.METRIC_AC_POWER:     data.ACPowerWatt,
		domain.METRIC_GRID_POWER:   data.GridPowerWatt,
		domain.METRIC_HOME_POWER:   data.HomePowerWatt,
		domain.METRIC_ENERGY_TODAY: data.DailyYieldKWh,
		domain.METRIC_ENERGY_TOTAL: data.TotalYieldKWh,
		domain.METRIC_VOLTAGE_AC:   data.VoltageL1,
		domain.METRIC_FREQUENCY:    data.GridFrequencyHz,
		domain.METRIC_STATUS:       status,
	}
	for i, str := range data.Strings {
		n := i + 1
		raw[domain.MetricVoltageDC(n)] = str.VoltageVolt
		raw[domain.MetricCurrentDC(n)] = str.CurrentAmp
		raw[domain.MetricPowerDC(n)] = str.PowerWatt
	}

	snapshot := domain.NewMetricSnapshot(raw, s.stringCount, time.Now())
	return &snapshot, nil
}
