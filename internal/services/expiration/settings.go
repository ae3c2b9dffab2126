package expiration

import (
	"fmt"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// Default ISO-8601 periods
const (
	DefaultPendingPeriod    = "P3D"
	DefaultPending3DSPeriod = "PT3H"
	DefaultPendingHPPPeriod = "PT1H"
)

const (
	entrySeparator = "|"
	typeSeparator  = "#"
)

// Settings holds the pending-expiration durations
type Settings struct {
	Default              time.Duration
	PerInstrument        map[string]time.Duration // keyed by lower-cased instrument type
	ThreeDS              time.Duration
	HPPWithoutCompletion time.Duration
}

// DefaultSettings returns the built-in periods
func DefaultSettings() Settings {
	return Settings{
		Default:              72 * time.Hour,
		PerInstrument:        map[string]time.Duration{},
		ThreeDS:              3 * time.Hour,
		HPPWithoutCompletion: time.Hour,
	}
}

// ParseSettings parses the configured periods. pending is either a bare
// period or a list like "card#PT6H|ach_debit#P5D"; a bare entry in the list
// sets the global default.
func ParseSettings(pending, threeDS, hppWithoutCompletion string) (Settings, error) {
	settings := DefaultSettings()

	for _, entry := range strings.Split(pending, entrySeparator) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		instrumentType, period, typed := strings.Cut(entry, typeSeparator)
		if !typed {
			d, err := ParsePeriod(entry)
			if err != nil {
				return Settings{}, err
			}
			settings.Default = d
			continue
		}

		instrumentType = strings.ToLower(strings.TrimSpace(instrumentType))
		if instrumentType == "" {
			return Settings{}, fmt.Errorf("missing instrument type in %q", entry)
		}
		d, err := ParsePeriod(period)
		if err != nil {
			return Settings{}, err
		}
		settings.PerInstrument[instrumentType] = d
	}

	var err error
	if settings.ThreeDS, err = ParsePeriod(threeDS); err != nil {
		return Settings{}, err
	}
	if settings.HPPWithoutCompletion, err = ParsePeriod(hppWithoutCompletion); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// ParsePeriod parses an ISO-8601 duration such as P3D or PT1H30M
func ParsePeriod(s string) (time.Duration, error) {
	parsed, err := duration.Parse(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid period %q: %w", s, err)
	}
	d := parsed.ToTimeDuration()
	if d <= 0 {
		return 0, fmt.Errorf("period %q must be positive", s)
	}
	return d, nil
}
