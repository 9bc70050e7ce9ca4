package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Notification is what a batch run tells its distribution list.
type Notification struct {
	Subject    string   `json:"subject"`
	Lines      []string `json:"lines"`
	Artifacts  []string `json:"artifacts,omitempty"`
	SummaryRef string   `json:"summary_ref,omitempty"`
}

// Body renders the notification as plain text.
func (n Notification) Body() string {
	var b strings.Builder
	for _, l := range n.Lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if n.SummaryRef != "" {
		fmt.Fprintf(&b, "\nSummary: %s\n", n.SummaryRef)
	}
	if len(n.Artifacts) > 0 {
		b.WriteString("\nCharts:\n")
		for _, a := range n.Artifacts {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}
	return b.String()
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Log writes notifications to the application log instead of sending them.
type Log struct{}

func (Log) Notify(_ context.Context, n Notification) error {
	log.Info().
		Str("subject", n.Subject).
		Strs("lines", n.Lines).
		Strs("artifacts", n.Artifacts).
		Str("summary", n.SummaryRef).
		Msg("notification (dev mode)")
	return nil
}

// Multi delivers to every notifier and reports all failures together.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
