package domain

import (
	"fmt"
	"time"
)

type Substation struct {
	ID         string  `db:"substation_id" json:"substation_id"`
	Name       string  `db:"substation_name" json:"substation_name"`
	EnergyType string  `db:"energy_type" json:"energy_type"`
	Capacity   float64 `db:"capacity" json:"capacity"`
}

// Reading is one telemetry sample joined with its substation metadata.
type Reading struct {
	EntityID   string    `db:"substation_id" json:"substation_id"`
	ChannelTag string    `db:"source_tag" json:"source_tag"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
	Value      float64   `db:"value" json:"value"`
	EnergyType string    `db:"energy_type" json:"energy_type"`
	Capacity   float64   `db:"capacity" json:"capacity"`
	EntityName string    `db:"substation_name" json:"substation_name"`
}

func (r Reading) Key() GroupKey { return GroupKey{EntityID: r.EntityID, ChannelTag: r.ChannelTag} }

// GroupKey identifies an (entity, channel) partition.
type GroupKey struct {
	EntityID   string
	ChannelTag string
}

func (k GroupKey) String() string { return fmt.Sprintf("%s/%s", k.EntityID, k.ChannelTag) }

// SampleKey identifies one sample inside a partition.
type SampleKey struct {
	EntityID   string
	ChannelTag string
	Timestamp  time.Time
}

func (r Reading) SampleKey() SampleKey {
	return SampleKey{EntityID: r.EntityID, ChannelTag: r.ChannelTag, Timestamp: r.Timestamp.UTC()}
}

// WindowSpec bounds one detector pass: how far back from the batch anchor
// to look and the threshold that must be met inside that span.
type WindowSpec struct {
	Trailing  time.Duration `json:"trailing"`
	Threshold float64       `json:"threshold"`
}

func (w WindowSpec) String() string {
	return fmt.Sprintf("last %s >= %g", w.Trailing, w.Threshold)
}

// RunAnnotation marks a reading as a member of a detected repeat run.
type RunAnnotation struct {
	Reading
	RunID     int        `json:"run_id"`
	RunLength int        `json:"run_length"`
	Window    WindowSpec `json:"window"`
}

// RunGroup is a maximal contiguous stretch of identical values in one partition.
type RunGroup struct {
	Key        GroupKey    `json:"key"`
	RunID      int         `json:"run_id"`
	Value      float64     `json:"value"`
	Length     int         `json:"length"`
	Timestamps []time.Time `json:"timestamps"`
}

// Statistic names a reducer over per-timestamp discrepancy values.
type Statistic string

const (
	StatMean   Statistic = "mean"
	StatMedian Statistic = "median"
	StatMax    Statistic = "max"
)

func ParseStatistic(s string) (Statistic, error) {
	switch Statistic(s) {
	case StatMean, StatMedian, StatMax:
		return Statistic(s), nil
	}
	return "", fmt.Errorf("unknown statistic %q", s)
}

// PairedSample holds both channel values for one entity at one timestamp.
type PairedSample struct {
	EntityID   string    `json:"substation_id"`
	EntityName string    `json:"substation_name"`
	EnergyType string    `json:"energy_type"`
	Capacity   float64   `json:"capacity"`
	Timestamp  time.Time `json:"timestamp"`
	Reference  float64   `json:"reference"`
	Compare    float64   `json:"compare"`
	AbsDiff    float64   `json:"abs_diff"`
	PctDiff    float64   `json:"pct_diff"`
}

type DiscrepancyRecord struct {
	EntityID   string        `json:"substation_id"`
	EntityName string        `json:"substation_name"`
	Statistic  Statistic     `json:"statistic"`
	Trailing   time.Duration `json:"trailing"`
	PctDiff    float64       `json:"pct_diff"`
	Threshold  float64       `json:"threshold"`
}

type AlertKind string

const (
	KindRepeat      AlertKind = "repeat"
	KindDiscrepancy AlertKind = "discrepancy"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertRecord is one summary row of a batch run.
type AlertRecord struct {
	Kind       AlertKind     `json:"kind"`
	EntityID   string        `json:"substation_id"`
	EntityName string        `json:"substation_name"`
	Channel    string        `json:"channel"`
	Metric     float64       `json:"metric"`
	Threshold  float64       `json:"threshold"`
	Trailing   time.Duration `json:"trailing"`
	Runs       int           `json:"runs,omitempty"`
	FirstSeen  time.Time     `json:"first_seen"`
	Severity   Severity      `json:"severity"`
	Artifact   string        `json:"artifact,omitempty"`
}

// ContextRow is a raw reading plus whatever annotation the detectors attached.
type ContextRow struct {
	Reading
	Annotated bool    `json:"annotated"`
	Metric    float64 `json:"metric"`
	Compare   float64 `json:"compare,omitempty"`
}

// ContextGroup is the chartable slice of data behind one AlertRecord.
type ContextGroup struct {
	Alert AlertRecord  `json:"alert"`
	Rows  []ContextRow `json:"rows"`
}
