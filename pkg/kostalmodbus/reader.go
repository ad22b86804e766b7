package kostalmodbus

import (
	"fmt"
	"math"
	"time"

	"github.com/simonvetter/modbus"
)

type ProcessData struct {
	State           uint16
	ACPowerWatt     float64
	DCPowerWatt     float64
	HomePowerWatt   float64
	GridPowerWatt   float64
	GridFrequencyHz float64
	VoltageL1       float64
	DailyYieldKWh   float64
	TotalYieldKWh   float64
	Strings         []StringData
}

type StringData struct {
	VoltageVolt float64
	CurrentAmp  float64
	PowerWatt   float64
}

type InverterReader interface {
	Open() error
	Close() error
	GetProcessData() (*ProcessData, error)
}

type KostalModbusReader struct {
	client      *modbus.ModbusClient
	stringCount int
}

func CreateKostalModbusReader(host string, port uint, unitId uint8, stringCount int, timeout time.Duration) (InverterReader, error) {
	if stringCount < 1 || stringCount > MAX_STRINGS {
		return nil, fmt.Errorf("string count %d out of range [1, %d]", stringCount, MAX_STRINGS)
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := client.SetEncoding(modbus.BIG_ENDIAN, modbus.LOW_WORD_FIRST); err != nil {
		return nil, err
	}
	if err := client.SetUnitId(unitId); err != nil {
		return nil, err
	}
	return &KostalModbusReader{
		client:      client,
		stringCount: stringCount,
	}, nil
}

func (r *KostalModbusReader) Open() error {
	return r.client.Open()
}

func (r *KostalModbusReader) Close() error {
	return r.client.Close()
}

func (r *KostalModbusReader) GetProcessData() (*ProcessData, error) {
	state, err := r.client.ReadRegister(REG_INVERTER_STATE, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, err
	}
	acPower, err := r.readFloat(REG_AC_TOTAL_POWER)
	if err != nil {
		return nil, err
	}
	dcPower, err := r.readFloat(REG_TOTAL_DC_POWER)
	if err != nil {
		return nil, err
	}
	homePower, err := r.readFloat(REG_HOME_CONSUMPTION_TOTAL)
	if err != nil {
		return nil, err
	}
	gridPower, err := r.readFloat(REG_POWERMETER_ACTIVE_PWR)
	if err != nil {
		return nil, err
	}
	frequency, err := r.readFloat(REG_GRID_FREQUENCY)
	if err != nil {
		return nil, err
	}
	voltageL1, err := r.readFloat(REG_VOLTAGE_L1)
	if err != nil {
		return nil, err
	}
	dailyYield, err := r.readFloat(REG_DAILY_YIELD)
	if err != nil {
		return nil, err
	}
	totalYield, err := r.readFloat(REG_TOTAL_YIELD)
	if err != nil {
		return nil, err
	}

	data := &ProcessData{
		State:           state,
		ACPowerWatt:     acPower,
		DCPowerWatt:     dcPower,
		HomePowerWatt:   homePower,
		GridPowerWatt:   gridPower,
		GridFrequencyHz: frequency,
		VoltageL1:       voltageL1,
		DailyYieldKWh:   dailyYield / 1000,
		TotalYieldKWh:   totalYield / 1000,
	}

	for n := 1; n <= r.stringCount; n++ {
		voltage, err := r.readFloat(stringVoltageReg(n))
		if err != nil {
			return nil, err
		}
		current, err := r.readFloat(stringCurrentReg(n))
		if err != nil {
			return nil, err
		}
		power, err := r.readFloat(stringPowerReg(n))
		if err != nil {
			return nil, err
		}
		data.Strings = append(data.Strings, StringData{
			VoltageVolt: voltage,
			CurrentAmp:  current,
			PowerWatt:   power,
		})
	}

	return data, nil
}

func (r *KostalModbusReader) readFloat(addr uint16) (float64, error) {
	value, err := r.client.ReadFloat32(addr, modbus.HOLDING_REGISTER)
	if err != nil {
		return 0, err
	}
	f := float64(value)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, nil
	}
	return f, nil
}
