package kostalmodbus

// Kostal Plenticore/Piko IQ process data registers, unit id 71. All process
// values are float32 in big-endian byte order with low word first; yields are
// reported in Wh.
const (
	REG_INVERTER_STATE         = 56
	REG_TOTAL_DC_POWER         = 100
	REG_HOME_CONSUMPTION_TOTAL = 118
	REG_GRID_FREQUENCY         = 152
	REG_VOLTAGE_L1             = 158
	REG_POWERMETER_ACTIVE_PWR  = 252
	REG_TOTAL_YIELD            = 320
	REG_DAILY_YIELD            = 322
	REG_AC_TOTAL_POWER         = 575

	REG_CURRENT_DC1 = 258
	REG_POWER_DC1   = 260
	REG_VOLTAGE_DC1 = 266

	// per-string register stride (DC2 starts at 268, DC3 at 278)
	STRING_REG_STRIDE = 10

	MAX_STRINGS = 3
)

func stringCurrentReg(n int) uint16 {
	return uint16(REG_CURRENT_DC1 + (n-1)*STRING_REG_STRIDE)
}

func stringPowerReg(n int) uint16 {
	return uint16(REG_POWER_DC1 + (n-1)*STRING_REG_STRIDE)
}

func stringVoltageReg(n int) uint16 {
	return uint16(REG_VOLTAGE_DC1 + (n-1)*STRING_REG_STRIDE)
}
