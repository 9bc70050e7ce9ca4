package detect

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

const (
	scadaTag = "PSS_SCADA_CLT"
	meterTag = "PSS_METER_RES"
)

func paired(entity, energy string, start time.Time, step time.Duration, ref, cmp []float64) []domain.Reading {
	rs := series(entity, scadaTag, energy, start, step, ref...)
	return append(rs, series(entity, meterTag, energy, start, step, cmp...)...)
}

func discrepancyConfig(stat domain.Statistic, threshold float64, window time.Duration) DiscrepancyConfig {
	return DiscrepancyConfig{
		ReferenceTag: scadaTag,
		CompareTag:   meterTag,
		Thresholds:   []float64{threshold},
		Windows:      []time.Duration{window},
		Statistics:   []domain.Statistic{stat},
		Scored:       EnergyTypes("SOLAR"),
	}
}

func score(t *testing.T, rs []domain.Reading, cfg DiscrepancyConfig) ([]domain.PairedSample, []domain.DiscrepancyRecord) {
	t.Helper()
	pairs, err := PairChannels(rs, cfg.ReferenceTag, cfg.CompareTag)
	require.NoError(t, err)
	scored := ScoreSamples(pairs, cfg.Scored)
	recs, err := ScoreDiscrepancies(scored, cfg)
	require.NoError(t, err)
	return scored, recs
}

func TestScoreDiscrepanciesScenarioC(t *testing.T) {
	ref := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	cmp := []float64{80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80}
	rs := paired("SS010", "SOLAR", base, 15*time.Minute, ref, cmp)

	_, recs := score(t, rs, discrepancyConfig(domain.StatMedian, 15, 3*time.Hour))

	require.Len(t, recs, 1)
	assert.Equal(t, "SS010", recs[0].EntityID)
	assert.Equal(t, domain.StatMedian, recs[0].Statistic)
	assert.Equal(t, 20.0, recs[0].PctDiff)
	assert.Equal(t, 15.0, recs[0].Threshold)
}

func TestScoreDiscrepanciesStatisticSemantics(t *testing.T) {
	ref := []float64{100, 100, 100, 100}
	cmp := []float64{90, 80, 70, 100} // 10, 20, 30, 0 percent
	rs := paired("SS011", "SOLAR", base, 15*time.Minute, ref, cmp)

	_, recs := score(t, rs, discrepancyConfig(domain.StatMax, 0, 3*time.Hour))
	require.Len(t, recs, 1)
	assert.Equal(t, 30.0, recs[0].PctDiff)

	_, recs = score(t, rs, discrepancyConfig(domain.StatMean, 0, 3*time.Hour))
	require.Len(t, recs, 1)
	assert.Equal(t, 15.0, recs[0].PctDiff)

	_, recs = score(t, rs, discrepancyConfig(domain.StatMedian, 0, 3*time.Hour))
	require.Len(t, recs, 1)
	assert.Equal(t, 15.0, recs[0].PctDiff)
}

func TestScoreDiscrepanciesBelowThreshold(t *testing.T) {
	rs := paired("SS012", "SOLAR", base, 15*time.Minute, []float64{100, 100}, []float64{95, 95})

	_, recs := score(t, rs, discrepancyConfig(domain.StatMedian, 15, 3*time.Hour))

	assert.Empty(t, recs)
}

func TestScoreSamplesWholePercentMeetsThreshold(t *testing.T) {
	rs := paired("SS015", "SOLAR", base, 15*time.Minute, []float64{100}, []float64{71})

	scored, recs := score(t, rs, discrepancyConfig(domain.StatMax, 29, 3*time.Hour))

	require.Len(t, scored, 1)
	assert.Equal(t, 29.0, scored[0].PctDiff)
	require.Len(t, recs, 1)
	assert.Equal(t, 29.0, recs[0].PctDiff)
}

func TestScoreDiscrepanciesOnlyScoresMatchingTypes(t *testing.T) {
	rs := paired("SS013", "WIND", base, 15*time.Minute, []float64{100, 100}, []float64{10, 10})

	scored, recs := score(t, rs, discrepancyConfig(domain.StatMax, 15, 3*time.Hour))

	assert.Empty(t, scored)
	assert.Empty(t, recs)
}

func TestScoreDiscrepanciesTrailingWindow(t *testing.T) {
	// large gap early, agreement in the last hour.
	ref := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100}
	cmp := []float64{10, 10, 10, 10, 100, 100, 100, 100, 100}
	rs := paired("SS014", "SOLAR", base, 15*time.Minute, ref, cmp)

	_, recs := score(t, rs, discrepancyConfig(domain.StatMax, 15, time.Hour))
	assert.Empty(t, recs)

	_, recs = score(t, rs, discrepancyConfig(domain.StatMax, 15, 2*time.Hour))
	require.Len(t, recs, 1)
	assert.Equal(t, 90.0, recs[0].PctDiff)
}

func TestPairChannelsDropsUnpairedSamples(t *testing.T) {
	rs := series("SS015", scadaTag, "SOLAR", base, 15*time.Minute, 10, 10, 10)
	rs = append(rs, series("SS015", meterTag, "SOLAR", base, 15*time.Minute, 9)...)
	rs = append(rs, series("SS016", scadaTag, "SOLAR", base, 15*time.Minute, 10)...)

	pairs, err := PairChannels(rs, scadaTag, meterTag)

	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "SS015", pairs[0].EntityID)
	assert.Equal(t, 10.0, pairs[0].Reference)
	assert.Equal(t, 9.0, pairs[0].Compare)
}

func TestPairChannelsMissingChannelIsFatal(t *testing.T) {
	rs := series("SS015", scadaTag, "SOLAR", base, 15*time.Minute, 10, 10)

	_, err := PairChannels(rs, scadaTag, meterTag)

	assert.True(t, errors.Is(err, ErrMissingChannel))

	pairs, err := PairChannels(nil, scadaTag, meterTag)
	assert.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestScoreDiscrepanciesOrdering(t *testing.T) {
	rs := paired("SS020", "SOLAR", base, 15*time.Minute, []float64{100, 100}, []float64{50, 50})
	rs = append(rs, paired("SS021", "SOLAR", base, 15*time.Minute, []float64{100, 100}, []float64{50, 50})...)
	rs = append(rs, paired("SS022", "SOLAR", base, 15*time.Minute, []float64{100, 100}, []float64{20, 20})...)
	cfg := discrepancyConfig(domain.StatMax, 15, 3*time.Hour)
	cfg.Statistics = []domain.Statistic{domain.StatMax, domain.StatMedian}

	_, recs := score(t, rs, cfg)

	require.Len(t, recs, 6)
	var got []string
	for _, r := range recs {
		got = append(got, string(r.Statistic)+":"+r.EntityID)
	}
	assert.Equal(t, []string{
		"median:SS022", "median:SS021", "median:SS020",
		"max:SS022", "max:SS021", "max:SS020",
	}, got)
}

func TestAggregateRejectsEmptyAndUnknown(t *testing.T) {
	_, err := Aggregate(domain.StatMax, nil)
	assert.Error(t, err)
	_, err = Aggregate("p95", []float64{1})
	assert.Error(t, err)
}
