package detect

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

// Epsilon keeps the percentage difference finite when the reference reads zero.
const Epsilon = 1e-5

// ErrMissingChannel is returned when a batch carries no samples at all for one
// of the two channels being compared.
var ErrMissingChannel = errors.New("expected channel missing from batch")

type DiscrepancyConfig struct {
	ReferenceTag string
	CompareTag   string
	Thresholds   []float64
	Windows      []time.Duration
	Statistics   []domain.Statistic
	// Scored selects the energy types whose feeds are expected to track closely.
	Scored EnergyTypePredicate
}

// PairChannels reshapes readings so each (entity, timestamp) carries both the
// reference and compare values. Samples missing either side are dropped.
func PairChannels(readings []domain.Reading, refTag, cmpTag string) ([]domain.PairedSample, error) {
	if len(readings) == 0 {
		return nil, nil
	}

	type pairKey struct {
		entity string
		ts     int64
	}
	type half struct {
		r        domain.Reading
		ref, cmp *float64
	}
	pairs := map[pairKey]*half{}
	var order []pairKey
	var sawRef, sawCmp bool

	for _, r := range readings {
		if r.ChannelTag != refTag && r.ChannelTag != cmpTag {
			continue
		}
		k := pairKey{entity: r.EntityID, ts: r.Timestamp.UnixNano()}
		h, ok := pairs[k]
		if !ok {
			h = &half{r: r}
			pairs[k] = h
			order = append(order, k)
		}
		v := r.Value
		if r.ChannelTag == refTag {
			h.ref = &v
			sawRef = true
		} else {
			h.cmp = &v
			sawCmp = true
		}
	}
	if !sawRef {
		return nil, fmt.Errorf("%w: %s", ErrMissingChannel, refTag)
	}
	if !sawCmp {
		return nil, fmt.Errorf("%w: %s", ErrMissingChannel, cmpTag)
	}

	out := make([]domain.PairedSample, 0, len(order))
	for _, k := range order {
		h := pairs[k]
		if h.ref == nil || h.cmp == nil {
			continue
		}
		out = append(out, domain.PairedSample{
			EntityID:   h.r.EntityID,
			EntityName: h.r.EntityName,
			EnergyType: h.r.EnergyType,
			Capacity:   h.r.Capacity,
			Timestamp:  h.r.Timestamp,
			Reference:  *h.ref,
			Compare:    *h.cmp,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// ScoreSamples fills in the absolute and percentage difference for samples of
// scored energy types and discards the rest.
func ScoreSamples(samples []domain.PairedSample, scored EnergyTypePredicate) []domain.PairedSample {
	out := make([]domain.PairedSample, 0, len(samples))
	for _, s := range samples {
		if scored != nil && !scored(s.EnergyType) {
			continue
		}
		s.AbsDiff = math.Abs(s.Reference - s.Compare)
		// Whole percent, rounded half to even. Scaling a two-decimal ratio by
		// 100 can land just under the integer (28.999999999999996); this
		// deliberately yields 29 instead so the sample meets a 29 threshold.
		s.PctDiff = math.RoundToEven(s.AbsDiff / (s.Reference + Epsilon) * 100)
		out = append(out, s)
	}
	return out
}

// DiscrepancyWindows enumerates (threshold, window) pairs in configuration order.
func DiscrepancyWindows(thresholds []float64, windows []time.Duration) []domain.WindowSpec {
	var specs []domain.WindowSpec
	for _, p := range thresholds {
		for _, w := range windows {
			specs = append(specs, domain.WindowSpec{Trailing: w, Threshold: p})
		}
	}
	return specs
}

// ScoreDiscrepancies aggregates scored samples for every (threshold, window,
// statistic) combination and returns entities at or above the threshold,
// ordered by statistic, percentage and entity descending.
func ScoreDiscrepancies(scored []domain.PairedSample, cfg DiscrepancyConfig) ([]domain.DiscrepancyRecord, error) {
	var latest time.Time
	for _, s := range scored {
		if s.Timestamp.After(latest) {
			latest = s.Timestamp
		}
	}

	var out []domain.DiscrepancyRecord
	for _, spec := range DiscrepancyWindows(cfg.Thresholds, cfg.Windows) {
		from := latest.Add(-spec.Trailing)
		byEntity := map[string][]float64{}
		names := map[string]string{}
		var entities []string
		for _, s := range scored {
			if s.Timestamp.Before(from) {
				continue
			}
			if _, ok := byEntity[s.EntityID]; !ok {
				entities = append(entities, s.EntityID)
				names[s.EntityID] = s.EntityName
			}
			byEntity[s.EntityID] = append(byEntity[s.EntityID], s.PctDiff)
		}

		for _, stat := range cfg.Statistics {
			for _, id := range entities {
				v, err := Aggregate(stat, byEntity[id])
				if err != nil {
					return nil, err
				}
				if v < spec.Threshold {
					continue
				}
				out = append(out, domain.DiscrepancyRecord{
					EntityID:   id,
					EntityName: names[id],
					Statistic:  stat,
					Trailing:   spec.Trailing,
					PctDiff:    round2(v),
					Threshold:  spec.Threshold,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Statistic != b.Statistic {
			return a.Statistic > b.Statistic
		}
		if a.PctDiff != b.PctDiff {
			return a.PctDiff > b.PctDiff
		}
		return a.EntityID > b.EntityID
	})
	return out, nil
}
