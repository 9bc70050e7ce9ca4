package detect

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

// RepeatConfig drives the multi-window repeat scan.
type RepeatConfig struct {
	Windows        []time.Duration
	MinRuns        []int
	SampleInterval time.Duration
	Daylight       Daylight
	NightFilter    EnergyTypePredicate
	// Strict aborts the scan on the first invalid run; otherwise the
	// offending run is dropped and reported in RepeatResult.Dropped.
	Strict bool
}

// WindowCount is the number of runs a single WindowSpec produced.
type WindowCount struct {
	Window domain.WindowSpec
	Runs   int
}

type RepeatResult struct {
	Annotations []domain.RunAnnotation
	Counts      []WindowCount
	Dropped     []*GroupError
}

// MaxSamples is how many samples a trailing window can hold at the given
// sample interval; the lower bound is inclusive so both ends count.
func MaxSamples(window, interval time.Duration) int {
	if interval <= 0 {
		return math.MaxInt
	}
	return int(window/interval) + 1
}

// RepeatWindows enumerates (window, threshold) pairs in configuration order,
// skipping thresholds that the window cannot hold.
func RepeatWindows(windows []time.Duration, minRuns []int, interval time.Duration) []domain.WindowSpec {
	var specs []domain.WindowSpec
	for _, w := range windows {
		for _, n := range minRuns {
			if n > MaxSamples(w, interval) {
				continue
			}
			specs = append(specs, domain.WindowSpec{Trailing: w, Threshold: float64(n)})
		}
	}
	return specs
}

// Trailing keeps readings at or after anchor-window.
func Trailing(readings []domain.Reading, anchor time.Time, window time.Duration) []domain.Reading {
	from := anchor.Add(-window)
	out := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if !r.Timestamp.Before(from) {
			out = append(out, r)
		}
	}
	return out
}

// Anchor returns the latest timestamp in the batch.
func Anchor(readings []domain.Reading) time.Time {
	var last time.Time
	for _, r := range readings {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return last
}

// ScanRepeats runs the repeat detector for every configured WindowSpec and
// merges the results, keeping the longest run per sample.
func ScanRepeats(readings []domain.Reading, cfg RepeatConfig, anchor time.Time) (RepeatResult, error) {
	var res RepeatResult
	var batches [][]domain.RunAnnotation

	for _, spec := range RepeatWindows(cfg.Windows, cfg.MinRuns, cfg.SampleInterval) {
		minRun := int(spec.Threshold)
		window := FilterNight(Trailing(readings, anchor, spec.Trailing), cfg.Daylight, cfg.NightFilter)

		keys, parts := Partition(window)
		var found []domain.RunAnnotation
		for _, k := range keys {
			runs := DetectRuns(parts[k], minRun)
			for i := range runs {
				runs[i].Window = spec
			}
			found = append(found, runs...)
		}

		kept, dropped, err := checkRuns(found, minRun, cfg.Strict)
		if err != nil {
			return RepeatResult{}, err
		}
		res.Dropped = append(res.Dropped, dropped...)

		n := len(GroupRuns(kept))
		res.Counts = append(res.Counts, WindowCount{Window: spec, Runs: n})
		log.Debug().Stringer("window", spec).Int("runs", n).Msg("repeat window scanned")
		batches = append(batches, kept)
	}

	res.Annotations = MergeLongest(batches...)
	return res, nil
}

// checkRuns validates every run in found. In strict mode the first failure is
// returned; otherwise failing runs are removed.
func checkRuns(found []domain.RunAnnotation, minRun int, strict bool) ([]domain.RunAnnotation, []*GroupError, error) {
	type runKey struct {
		key domain.GroupKey
		id  int
	}
	members := map[runKey][]domain.RunAnnotation{}
	var order []runKey
	for _, a := range found {
		rk := runKey{key: a.Key(), id: a.RunID}
		if _, ok := members[rk]; !ok {
			order = append(order, rk)
		}
		members[rk] = append(members[rk], a)
	}

	bad := map[runKey]bool{}
	var dropped []*GroupError
	for _, rk := range order {
		err := ValidateRun(members[rk], minRun)
		if err == nil {
			continue
		}
		var ge *GroupError
		if strict || !errors.As(err, &ge) {
			return nil, nil, err
		}
		log.Warn().Err(err).Msg("dropping invalid run")
		bad[rk] = true
		dropped = append(dropped, ge)
	}
	if len(bad) == 0 {
		return found, nil, nil
	}

	kept := found[:0:0]
	for _, a := range found {
		if !bad[runKey{key: a.Key(), id: a.RunID}] {
			kept = append(kept, a)
		}
	}
	return kept, dropped, nil
}

// MergeLongest unions annotation batches, keeping per (entity, channel,
// timestamp) the annotation with the longest run; earlier batches win ties.
// The result is ordered by run length, entity and channel descending, then time.
func MergeLongest(batches ...[]domain.RunAnnotation) []domain.RunAnnotation {
	best := map[domain.SampleKey]domain.RunAnnotation{}
	for _, batch := range batches {
		for _, a := range batch {
			k := a.SampleKey()
			if cur, ok := best[k]; ok && cur.RunLength >= a.RunLength {
				continue
			}
			best[k] = a
		}
	}

	out := make([]domain.RunAnnotation, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RunLength != b.RunLength {
			return a.RunLength > b.RunLength
		}
		if a.EntityID != b.EntityID {
			return a.EntityID > b.EntityID
		}
		if a.ChannelTag != b.ChannelTag {
			return a.ChannelTag > b.ChannelTag
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return out
}
