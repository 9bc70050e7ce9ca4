package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/config"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/detect"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/notify"
	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/report"
)

// summaryPrefix is the bucket prefix of uploaded batch summaries.
const summaryPrefix = "summaries/"

type ReadingSource interface {
	Pull(ctx context.Context, start, end time.Time, entityIDs []string) ([]domain.Reading, error)
}

// Uploader stores an artifact and returns a shareable reference to it.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type AlertHistory interface {
	SaveAlerts(ctx context.Context, runID string, createdAt time.Time, alerts []domain.AlertRecord) error
}

// Options narrows a single run. Zero values fall back to configuration.
type Options struct {
	EntityIDs []string
	Detectors []string
	DevMode   bool
}

// Report describes what one batch run found and where it went.
type Report struct {
	RunID       string                `json:"run_id"`
	Start       time.Time             `json:"start"`
	End         time.Time             `json:"end"`
	Alerts      []domain.AlertRecord  `json:"alerts"`
	Counts      []detect.WindowCount  `json:"-"`
	Dropped     []*detect.GroupError  `json:"-"`
	Groups      []domain.ContextGroup `json:"-"`
	SummaryPath string                `json:"summary_path"`
	SummaryRef  string                `json:"summary_ref,omitempty"`
	Notified    bool                  `json:"notified"`
}

func (r *Report) Empty() bool { return len(r.Alerts) == 0 }

// AlertService runs the telemetry quality detectors over one lookback window.
type AlertService struct {
	cfg      config.AlertConfig
	source   ReadingSource
	renderer func(start, end time.Time) report.Renderer
	notifier notify.Notifier
	uploader Uploader
	history  AlertHistory
	now      func() time.Time
}

type AlertOption func(*AlertService)

func WithUploader(u Uploader) AlertOption { return func(s *AlertService) { s.uploader = u } }
func WithHistory(h AlertHistory) AlertOption { return func(s *AlertService) { s.history = h } }
func WithClock(now func() time.Time) AlertOption { return func(s *AlertService) { s.now = now } }

// WithRenderer overrides the chart renderer built for each batch range.
func WithRenderer(r func(start, end time.Time) report.Renderer) AlertOption {
	return func(s *AlertService) { s.renderer = r }
}

func NewAlertService(cfg config.AlertConfig, source ReadingSource, notifier notify.Notifier, opts ...AlertOption) *AlertService {
	s := &AlertService{
		cfg:      cfg,
		source:   source,
		notifier: notifier,
		now:      time.Now,
	}
	s.renderer = func(start, end time.Time) report.Renderer {
		return report.NewCharts(cfg.OutputDir, start, end)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run pulls the lookback window, runs the enabled detectors, notifies and
// then writes the summary. A failed run leaves no summary behind. A run that
// finds nothing returns an empty Report.
func (s *AlertService) Run(ctx context.Context, opts Options) (*Report, error) {
	repeats, discrepancy, err := s.detectors(opts.Detectors)
	if err != nil {
		return nil, err
	}
	ids := opts.EntityIDs
	if len(ids) == 0 {
		ids = s.cfg.EntityIDs
	}
	dev := opts.DevMode || s.cfg.DevMode

	end := s.now().UTC().Truncate(time.Minute)
	rep := &Report{RunID: uuid.NewString(), Start: end.Add(-s.cfg.Lookback), End: end}
	logger := log.With().Str("run_id", rep.RunID).Time("start", rep.Start).Time("end", rep.End).Logger()

	readings, err := s.source.Pull(ctx, rep.Start, rep.End, ids)
	if err != nil {
		return nil, fmt.Errorf("pull readings: %w", err)
	}
	logger.Info().Int("readings", len(readings)).Msg("batch pulled")

	if repeats {
		groups, err := s.scanRepeats(readings, rep)
		if err != nil {
			return nil, err
		}
		rep.Groups = append(rep.Groups, s.limit(groups)...)
	}
	if discrepancy {
		groups, err := s.scanDiscrepancies(readings)
		if err != nil {
			return nil, err
		}
		rep.Groups = append(rep.Groups, s.limit(groups)...)
	}

	renderer := s.renderer(rep.Start, rep.End)
	for i := range rep.Groups {
		ref, err := s.renderChart(ctx, renderer, rep.Groups[i], dev)
		if err != nil {
			return nil, err
		}
		rep.Groups[i].Alert.Artifact = ref
	}
	rep.Alerts = detect.Summary(rep.Groups)

	// Nothing reaches disk or the bucket until notification and history
	// succeed; the notification points at where the summary will land.
	data, err := report.SummaryCSV(rep.Alerts)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	file := report.SummaryFile(rep.Start, rep.End)
	upload := s.uploader != nil && !dev
	rep.SummaryPath = filepath.Join(s.cfg.OutputDir, file)
	rep.SummaryRef = rep.SummaryPath
	if upload {
		rep.SummaryRef = summaryPrefix + file
	}

	if rep.Empty() && !s.cfg.NotifyEmpty {
		logger.Info().Msg("no alerts; notification skipped")
	} else {
		var notifier notify.Notifier = notify.Log{}
		if !dev && s.notifier != nil {
			notifier = s.notifier
		}
		if err := notifier.Notify(ctx, s.notification(rep)); err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		rep.Notified = true
	}

	if s.history != nil && !dev && !rep.Empty() {
		if err := s.history.SaveAlerts(ctx, rep.RunID, end, rep.Alerts); err != nil {
			return nil, fmt.Errorf("save alert history: %w", err)
		}
	}

	path, err := report.SaveSummary(s.cfg.OutputDir, rep.Start, rep.End, data)
	if err != nil {
		return nil, err
	}
	if upload {
		url, err := s.uploader.Upload(ctx, rep.SummaryRef, data, "text/csv")
		if err != nil {
			_ = os.Remove(path)
			return nil, fmt.Errorf("upload summary: %w", err)
		}
		rep.SummaryRef = url
	}
	logger.Info().Int("alerts", len(rep.Alerts)).Str("summary", path).Msg("summary written")
	return rep, nil
}

func (s *AlertService) detectors(names []string) (repeats, discrepancy bool, err error) {
	if len(names) == 0 {
		return s.cfg.RunRepeats, s.cfg.RunDiscrepancy, nil
	}
	for _, n := range names {
		switch n {
		case "repeats":
			repeats = true
		case "discrepancy":
			discrepancy = true
		case "all":
			repeats, discrepancy = true, true
		default:
			return false, false, fmt.Errorf("unknown detector %q", n)
		}
	}
	return repeats, discrepancy, nil
}

func (s *AlertService) scanRepeats(readings []domain.Reading, rep *Report) ([]domain.ContextGroup, error) {
	rounded := roundValues(readings, s.cfg.RoundDecimals)
	res, err := detect.ScanRepeats(rounded, s.cfg.Repeats, detect.Anchor(rounded))
	if err != nil {
		return nil, fmt.Errorf("repeat scan: %w", err)
	}
	rep.Counts = res.Counts
	rep.Dropped = res.Dropped
	for _, c := range res.Counts {
		log.Info().
			Dur("trailing", c.Window.Trailing).
			Float64("min_samples", c.Window.Threshold).
			Int("runs", c.Runs).
			Msg("repeat alerts per window")
	}
	return detect.AssembleRepeats(rounded, res.Annotations), nil
}

func (s *AlertService) scanDiscrepancies(readings []domain.Reading) ([]domain.ContextGroup, error) {
	dc := s.cfg.Discrepancy
	samples, err := detect.PairChannels(readings, dc.ReferenceTag, dc.CompareTag)
	if err != nil {
		return nil, fmt.Errorf("discrepancy scan: %w", err)
	}
	scored := detect.ScoreSamples(samples, dc.Scored)
	records, err := detect.ScoreDiscrepancies(scored, dc)
	if err != nil {
		return nil, fmt.Errorf("discrepancy scan: %w", err)
	}
	log.Info().Int("paired", len(samples)).Int("records", len(records)).Msg("discrepancy scored")
	return detect.AssembleDiscrepancies(scored, records, dc.ReferenceTag), nil
}

func (s *AlertService) limit(groups []domain.ContextGroup) []domain.ContextGroup {
	if s.cfg.MaxAlerts > 0 && len(groups) > s.cfg.MaxAlerts {
		log.Warn().Int("found", len(groups)).Int("max", s.cfg.MaxAlerts).Msg("alert groups truncated")
		return groups[:s.cfg.MaxAlerts]
	}
	return groups
}

func (s *AlertService) renderChart(ctx context.Context, r report.Renderer, g domain.ContextGroup, dev bool) (string, error) {
	path, err := r.Render(g)
	if err != nil {
		return "", fmt.Errorf("render %s/%s: %w", g.Alert.EntityID, g.Alert.Channel, err)
	}
	if s.uploader == nil || dev {
		return path, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read chart: %w", err)
	}
	key := "charts/" + filepath.Base(filepath.Dir(path)) + "/" + filepath.Base(path)
	url, err := s.uploader.Upload(ctx, key, data, "image/png")
	if err != nil {
		return "", fmt.Errorf("upload chart: %w", err)
	}
	return url, nil
}

func (s *AlertService) notification(rep *Report) notify.Notification {
	n := notify.Notification{
		Subject:    fmt.Sprintf("Telemetry alerts %s - %s UTC", rep.Start.Format("2006-01-02 15:04"), rep.End.Format("15:04")),
		SummaryRef: rep.SummaryRef,
	}
	if rep.Empty() {
		n.Lines = []string{"No telemetry alerts in this window."}
		return n
	}
	for _, a := range rep.Alerts {
		n.Lines = append(n.Lines, alertLine(a))
		if a.Artifact != "" {
			n.Artifacts = append(n.Artifacts, a.Artifact)
		}
	}
	return n
}

func alertLine(a domain.AlertRecord) string {
	name := a.EntityID
	if a.EntityName != "" {
		name = fmt.Sprintf("%s (%s)", a.EntityName, a.EntityID)
	}
	switch a.Kind {
	case domain.KindRepeat:
		return fmt.Sprintf("[%s] %s %s: %g identical samples in last %s (min %g)",
			a.Severity, name, a.Channel, a.Metric, a.Trailing, a.Threshold)
	default:
		return fmt.Sprintf("[%s] %s %s diff %g%% in last %s (threshold %g%%)",
			a.Severity, name, a.Channel, a.Metric, a.Trailing, a.Threshold)
	}
}

func roundValues(readings []domain.Reading, decimals int) []domain.Reading {
	out := make([]domain.Reading, len(readings))
	copy(out, readings)
	if decimals < 0 {
		return out
	}
	scale := math.Pow(10, float64(decimals))
	for i := range out {
		out[i].Value = math.Round(out[i].Value*scale) / scale
	}
	return out
}
