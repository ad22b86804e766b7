package metrics

import (
	"sync"
	"time"
)

const ledgerDateFormat = "2006-01-02"

// DailyEnergyLedger maps a local calendar date to the last observed
// energy_today value for that date. Last write wins; counter resets are not
// corrected.
type DailyEnergyLedger struct {
	mu     sync.RWMutex
	byDate map[string]float64
}

func NewDailyEnergyLedger() *DailyEnergyLedger {
	return &DailyEnergyLedger{
		byDate: make(map[string]float64),
	}
}

func (l *DailyEnergyLedger) Record(at time.Time, energyKWh float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byDate[at.Local().Format(ledgerDateFormat)] = energyKWh
}

// Energy returns the ledger value for the date of at, or (0, false) when no
// sample was recorded for that date.
func (l *DailyEnergyLedger) Energy(at time.Time) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.byDate[at.Local().Format(ledgerDateFormat)]
	return v, ok
}

func (l *DailyEnergyLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byDate)
}
