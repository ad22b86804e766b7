package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Fallback report time used when the configured spec cannot be honored.
const (
	FallbackHour   = 20
	FallbackMinute = 0
)

var clockSpecRegexp = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// Sun-relative specs the original scheduler supported. Without an astro
// provider they all degrade to the fixed fallback time.
var sunsetSpecs = map[string]bool{
	"sunset":    true,
	"sunset+30": true,
	"sunset+60": true,
}

type ReportTime struct {
	Hour     int
	Minute   int
	Degraded bool
}

// ParseReportTime resolves a report time spec. Sun-relative specs degrade to
// the fallback time; invalid specs also fall back but return an error so the
// caller can log the misconfiguration.
func ParseReportTime(spec string) (ReportTime, error) {
	spec = strings.TrimSpace(spec)
	if sunsetSpecs[spec] {
		return ReportTime{Hour: FallbackHour, Minute: FallbackMinute, Degraded: true}, nil
	}
	matches := clockSpecRegexp.FindStringSubmatch(spec)
	if matches != nil {
		hour, _ := strconv.Atoi(matches[1])
		minute, _ := strconv.Atoi(matches[2])
		return ReportTime{Hour: hour, Minute: minute}, nil
	}
	return ReportTime{Hour: FallbackHour, Minute: FallbackMinute},
		fmt.Errorf("invalid report time spec %q", spec)
}

func (t ReportTime) CronSpec() string {
	return fmt.Sprintf("0 %d %d * * *", t.Minute, t.Hour)
}

func (t ReportTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

const reportFallbackLanguage = "en"

type reportLocale struct {
	template   string
	dateFormat string
}

var reportLocales = map[string]reportLocale{
	"de": {
		template:   "Solarertrag am %s: %.1f kWh",
		dateFormat: "02.01.2006",
	},
	"en": {
		template:   "Solar energy produced on %s: %.1f kWh",
		dateFormat: "2006-01-02",
	},
	"fr": {
		template:   "Énergie solaire produite le %s : %.1f kWh",
		dateFormat: "02/01/2006",
	},
}

// ReportRenderer formats the daily energy report in the configured language.
type ReportRenderer struct {
	language string
}

func NewReportRenderer(language string) *ReportRenderer {
	if _, ok := reportLocales[language]; !ok {
		language = reportFallbackLanguage
	}
	return &ReportRenderer{language: language}
}

func (r *ReportRenderer) Language() string {
	return r.language
}

func (r *ReportRenderer) Render(date time.Time, energyKWh float64) string {
	locale := reportLocales[r.language]
	return fmt.Sprintf(locale.template, date.Format(locale.dateFormat), energyKWh)
}
