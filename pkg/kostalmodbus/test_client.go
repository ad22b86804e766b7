package kostalmodbus

func CreateTestInverterReader() (InverterReader, error) {
	return TestInverterReader{}, nil
}

type TestInverterReader struct {
}

func (reader TestInverterReader) Open() error {
	return nil
}

func (reader TestInverterReader) Close() error {
	return nil
}

func (reader TestInverterReader) GetProcessData() (*ProcessData, error) {
	return &ProcessData{
		State:           3,
		ACPowerWatt:     4230.5,
		DCPowerWatt:     4385.1,
		HomePowerWatt:   612.4,
		GridPowerWatt:   -3618.1,
		GridFrequencyHz: 50.01,
		VoltageL1:       232.8,
		DailyYieldKWh:   12.44,
		TotalYieldKWh:   10233.7,
		Strings: []StringData{
			{VoltageVolt: 401.2, CurrentAmp: 5.6, PowerWatt: 2246.7},
			{VoltageVolt: 398.4, CurrentAmp: 5.4, PowerWatt: 2151.3},
		},
	}, nil
}
