package detect

import (
	"fmt"
	"sort"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

// GroupError describes a detected group that breaks the run invariants.
// It points at broken grouping logic, never at bad telemetry.
type GroupError struct {
	Key    domain.GroupKey
	RunID  int
	Reason string
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("invalid run %s#%d: %s", e.Key, e.RunID, e.Reason)
}

// Partition splits readings by (entity, channel), each partition ordered by
// timestamp. Keys are returned in a stable order.
func Partition(readings []domain.Reading) ([]domain.GroupKey, map[domain.GroupKey][]domain.Reading) {
	parts := make(map[domain.GroupKey][]domain.Reading)
	var keys []domain.GroupKey
	for _, r := range readings {
		k := r.Key()
		if _, ok := parts[k]; !ok {
			keys = append(keys, k)
		}
		parts[k] = append(parts[k], r)
	}
	for _, k := range keys {
		p := parts[k]
		sort.SliceStable(p, func(i, j int) bool { return p[i].Timestamp.Before(p[j].Timestamp) })
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].EntityID != keys[j].EntityID {
			return keys[i].EntityID < keys[j].EntityID
		}
		return keys[i].ChannelTag < keys[j].ChannelTag
	})
	return keys, parts
}

// DetectRuns annotates the readings of one time-ordered partition with their
// run id and run length and keeps only runs of at least minRun samples.
// Values are compared with exact equality.
func DetectRuns(partition []domain.Reading, minRun int) []domain.RunAnnotation {
	if len(partition) == 0 || len(partition) < minRun {
		return nil
	}

	ids := make([]int, len(partition))
	lengths := map[int]int{}
	run := 0
	for i, r := range partition {
		if i > 0 && r.Value != partition[i-1].Value {
			run++
		}
		ids[i] = run
		lengths[run]++
	}

	var out []domain.RunAnnotation
	for i, r := range partition {
		n := lengths[ids[i]]
		if n < minRun {
			continue
		}
		out = append(out, domain.RunAnnotation{Reading: r, RunID: ids[i], RunLength: n})
	}
	return out
}

// GroupRuns collapses annotations into RunGroups keyed by partition and run id,
// preserving first-seen order.
func GroupRuns(annotations []domain.RunAnnotation) []domain.RunGroup {
	type runKey struct {
		key domain.GroupKey
		id  int
	}
	idx := map[runKey]int{}
	var groups []domain.RunGroup
	for _, a := range annotations {
		rk := runKey{key: a.Key(), id: a.RunID}
		i, ok := idx[rk]
		if !ok {
			i = len(groups)
			idx[rk] = i
			groups = append(groups, domain.RunGroup{Key: rk.key, RunID: a.RunID, Value: a.Value, Length: a.RunLength})
		}
		groups[i].Timestamps = append(groups[i].Timestamps, a.Timestamp)
	}
	return groups
}

// ValidateRun checks the members of one detected run. It returns a *GroupError
// describing the first broken invariant, or nil.
func ValidateRun(members []domain.RunAnnotation, minRun int) error {
	if len(members) == 0 {
		return nil
	}
	first := members[0]
	fail := func(format string, args ...any) error {
		return &GroupError{Key: first.Key(), RunID: first.RunID, Reason: fmt.Sprintf(format, args...)}
	}
	for _, m := range members[1:] {
		if m.Key() != first.Key() || m.RunID != first.RunID {
			return fail("member %s#%d mixed into run", m.Key(), m.RunID)
		}
		if m.Value != first.Value {
			return fail("values %v and %v in one run", first.Value, m.Value)
		}
		if m.RunLength != first.RunLength {
			return fail("run lengths %d and %d in one run", first.RunLength, m.RunLength)
		}
	}
	if len(members) != first.RunLength {
		return fail("%d members but recorded length %d", len(members), first.RunLength)
	}
	if first.RunLength < minRun {
		return fail("length %d below threshold %d", first.RunLength, minRun)
	}
	return nil
}
