package detect

import (
	"sort"
	"time"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

// Severity grades a finding by how far its metric overshoots the threshold.
func Severity(metric, threshold float64) domain.Severity {
	if threshold <= 0 {
		return domain.SeverityLow
	}
	ratio := metric / threshold
	switch {
	case ratio >= 3:
		return domain.SeverityCritical
	case ratio >= 2:
		return domain.SeverityHigh
	case ratio >= 1.5:
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

// AssembleRepeats left-joins raw readings with run annotations and returns one
// context group per (entity, channel) that has at least one annotated sample
// and whose first annotated value is non-zero. Groups are ordered by longest
// run, entity and channel, all descending.
func AssembleRepeats(raw []domain.Reading, runs []domain.RunAnnotation) []domain.ContextGroup {
	ann := make(map[domain.SampleKey]domain.RunAnnotation, len(runs))
	for _, a := range runs {
		ann[a.SampleKey()] = a
	}

	keys, parts := Partition(raw)
	var groups []domain.ContextGroup
	for _, k := range keys {
		rows := make([]domain.ContextRow, 0, len(parts[k]))
		var first, longest *domain.RunAnnotation
		for _, r := range parts[k] {
			row := domain.ContextRow{Reading: r}
			if a, ok := ann[r.SampleKey()]; ok {
				row.Annotated = true
				row.Metric = float64(a.RunLength)
				if first == nil {
					first = &a
				}
				if longest == nil || a.RunLength > longest.RunLength {
					longest = &a
				}
			}
			rows = append(rows, row)
		}
		if first == nil || first.Value == 0 {
			continue
		}

		metric := float64(longest.RunLength)
		groups = append(groups, domain.ContextGroup{
			Alert: domain.AlertRecord{
				Kind:       domain.KindRepeat,
				EntityID:   k.EntityID,
				EntityName: first.EntityName,
				Channel:    k.ChannelTag,
				Metric:     metric,
				Threshold:  longest.Window.Threshold,
				Trailing:   longest.Window.Trailing,
				Runs:       countStretches(rows),
				FirstSeen:  first.Timestamp,
				Severity:   Severity(metric, longest.Window.Threshold),
			},
			Rows: rows,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Alert, groups[j].Alert
		if a.Metric != b.Metric {
			return a.Metric > b.Metric
		}
		if a.EntityID != b.EntityID {
			return a.EntityID > b.EntityID
		}
		return a.Channel > b.Channel
	})
	return groups
}

// countStretches counts distinct annotated runs in time-ordered rows.
func countStretches(rows []domain.ContextRow) int {
	n := 0
	for i, r := range rows {
		if !r.Annotated {
			continue
		}
		if i == 0 || !rows[i-1].Annotated || rows[i-1].Value != r.Value {
			n++
		}
	}
	return n
}

// AssembleDiscrepancies attaches the scored samples of each flagged entity to
// its strongest record per statistic. Samples inside the record's trailing
// window are marked as annotated; a group whose first annotated reference
// value is zero is dropped.
func AssembleDiscrepancies(scored []domain.PairedSample, records []domain.DiscrepancyRecord, refTag string) []domain.ContextGroup {
	byEntity := map[string][]domain.PairedSample{}
	var latest time.Time
	for _, s := range scored {
		byEntity[s.EntityID] = append(byEntity[s.EntityID], s)
		if s.Timestamp.After(latest) {
			latest = s.Timestamp
		}
	}

	type recKey struct {
		entity string
		stat   domain.Statistic
	}
	seen := map[recKey]bool{}
	var groups []domain.ContextGroup
	// records arrive ranked, so the first per (entity, statistic) is the strongest.
	for _, rec := range records {
		rk := recKey{entity: rec.EntityID, stat: rec.Statistic}
		if seen[rk] {
			continue
		}
		seen[rk] = true

		from := latest.Add(-rec.Trailing)
		samples := byEntity[rec.EntityID]
		rows := make([]domain.ContextRow, 0, len(samples))
		var first *domain.PairedSample
		for i, s := range samples {
			inWindow := !s.Timestamp.Before(from)
			if inWindow && first == nil {
				first = &samples[i]
			}
			rows = append(rows, domain.ContextRow{
				Reading: domain.Reading{
					EntityID:   s.EntityID,
					ChannelTag: refTag,
					Timestamp:  s.Timestamp,
					Value:      s.Reference,
					EnergyType: s.EnergyType,
					Capacity:   s.Capacity,
					EntityName: s.EntityName,
				},
				Annotated: inWindow,
				Metric:    s.PctDiff,
				Compare:   s.Compare,
			})
		}
		if first == nil || first.Reference == 0 {
			continue
		}

		groups = append(groups, domain.ContextGroup{
			Alert: domain.AlertRecord{
				Kind:       domain.KindDiscrepancy,
				EntityID:   rec.EntityID,
				EntityName: rec.EntityName,
				Channel:    string(rec.Statistic),
				Metric:     rec.PctDiff,
				Threshold:  rec.Threshold,
				Trailing:   rec.Trailing,
				FirstSeen:  first.Timestamp,
				Severity:   Severity(rec.PctDiff, rec.Threshold),
			},
			Rows: rows,
		})
	}
	return groups
}

// Summary flattens context groups into their alert records.
func Summary(groups []domain.ContextGroup) []domain.AlertRecord {
	out := make([]domain.AlertRecord, len(groups))
	for i, g := range groups {
		out[i] = g.Alert
	}
	return out
}
