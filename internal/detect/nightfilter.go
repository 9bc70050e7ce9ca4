package detect

import (
	"fmt"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

// EnergyTypePredicate reports whether a substation class needs special handling,
// e.g. solar plants that are expected to read flat at night.
type EnergyTypePredicate func(energyType string) bool

// EnergyTypes matches any of the given energy types, case-insensitively.
// With no types it matches nothing.
func EnergyTypes(types ...string) EnergyTypePredicate {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return func(energyType string) bool {
		_, ok := set[strings.ToUpper(strings.TrimSpace(energyType))]
		return ok
	}
}

// Daylight is a time-of-day interval [Start, End) expressed as offsets from
// midnight in Location. A nil Location means UTC.
type Daylight struct {
	Start    time.Duration
	End      time.Duration
	Location *time.Location
}

// ParseDaylight parses "HH:MM" or "HH:MM:SS" bounds.
func ParseDaylight(start, end string) (Daylight, error) {
	s, err := parseClock(start)
	if err != nil {
		return Daylight{}, fmt.Errorf("day start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return Daylight{}, fmt.Errorf("day end: %w", err)
	}
	if e <= s {
		return Daylight{}, fmt.Errorf("day end %s must be after day start %s", end, start)
	}
	return Daylight{Start: s, End: e}, nil
}

func parseClock(v string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, strings.TrimSpace(v))
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", v)
}

// In returns the interval evaluated on loc's wall clock.
func (d Daylight) In(loc *time.Location) Daylight {
	d.Location = loc
	return d
}

// Contains reports whether ts falls inside the interval on the interval's
// wall clock. The zone ts carries does not matter.
func (d Daylight) Contains(ts time.Time) bool {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	ts = ts.In(loc)
	tod := time.Duration(ts.Hour())*time.Hour +
		time.Duration(ts.Minute())*time.Minute +
		time.Duration(ts.Second())*time.Second +
		time.Duration(ts.Nanosecond())
	return tod >= d.Start && tod < d.End
}

// FilterNight drops readings of matching energy types recorded outside daylight.
// The input slice is not modified.
func FilterNight(readings []domain.Reading, day Daylight, isSolar EnergyTypePredicate) []domain.Reading {
	out := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if isSolar != nil && isSolar(r.EnergyType) && !day.Contains(r.Timestamp) {
			continue
		}
		out = append(out, r)
	}
	return out
}
