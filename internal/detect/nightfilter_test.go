package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDaylight(t *testing.T) {
	d, err := ParseDaylight("06:30", "17:45:00")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour+30*time.Minute, d.Start)
	assert.Equal(t, 17*time.Hour+45*time.Minute, d.End)

	_, err = ParseDaylight("18:00", "06:00")
	assert.Error(t, err)
	_, err = ParseDaylight("noon", "18:00")
	assert.Error(t, err)
}

func TestDaylightIsHalfOpen(t *testing.T) {
	d := defaultDaylight(t)
	day := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)

	assert.True(t, d.Contains(day.Add(6*time.Hour+30*time.Minute)))
	assert.False(t, d.Contains(day.Add(6*time.Hour+29*time.Minute)))
	assert.True(t, d.Contains(day.Add(17*time.Hour+44*time.Minute)))
	assert.False(t, d.Contains(day.Add(17*time.Hour+45*time.Minute)))
}

func TestDaylightIgnoresTimestampZone(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	d := defaultDaylight(t).In(ist)

	cases := []struct {
		utc      time.Time
		daylight bool
	}{
		{time.Date(2024, 5, 14, 6, 30, 0, 0, time.UTC), true},   // 12:00 IST
		{time.Date(2024, 5, 14, 1, 30, 0, 0, time.UTC), true},   // 07:00 IST
		{time.Date(2024, 5, 14, 0, 59, 0, 0, time.UTC), false},  // 06:29 IST
		{time.Date(2024, 5, 14, 16, 30, 0, 0, time.UTC), false}, // 22:00 IST
		{time.Date(2024, 5, 14, 12, 15, 0, 0, time.UTC), false}, // 17:45 IST
	}
	for _, c := range cases {
		assert.Equal(t, c.daylight, d.Contains(c.utc), c.utc)
		assert.Equal(t, c.daylight, d.Contains(c.utc.In(ist)), c.utc.In(ist))
		assert.Equal(t, c.daylight, d.Contains(c.utc.In(time.FixedZone("PDT", -7*3600))), c.utc)
	}
}

func TestDaylightDefaultsToUTC(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	ts := time.Date(2024, 5, 14, 13, 0, 0, 0, time.UTC) // 18:30 IST

	assert.True(t, defaultDaylight(t).Contains(ts.In(ist)))
	assert.False(t, defaultDaylight(t).In(ist).Contains(ts))
}

func TestFilterNightOnlyTouchesMatchingTypes(t *testing.T) {
	night := time.Date(2024, 5, 14, 4, 0, 0, 0, time.UTC)
	noon := time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)
	rs := series("SS001", "A", "SOLAR", night, time.Minute, 0)
	rs = append(rs, series("SS001", "A", "solar", noon, time.Minute, 1)...)
	rs = append(rs, series("SS002", "A", "WIND", night, time.Minute, 2)...)

	out := FilterNight(rs, defaultDaylight(t), EnergyTypes("SOLAR"))

	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Value)
	assert.Equal(t, "WIND", out[1].EnergyType)
	assert.Len(t, rs, 3, "input must not be modified")
}

func TestFilterNightConfigurablePredicate(t *testing.T) {
	night := time.Date(2024, 5, 14, 4, 0, 0, 0, time.UTC)
	rs := series("SS001", "A", "SOLAR", night, time.Minute, 0)
	rs = append(rs, series("SS002", "A", "HYBRID", night, time.Minute, 0)...)

	out := FilterNight(rs, defaultDaylight(t), EnergyTypes("SOLAR", "HYBRID"))
	assert.Empty(t, out)

	out = FilterNight(rs, defaultDaylight(t), EnergyTypes())
	assert.Len(t, out, 2)
}
