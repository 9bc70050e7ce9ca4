package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

var (
	valueColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	compareColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	flagColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

type Renderer interface {
	Render(g domain.ContextGroup) (string, error)
}

// Charts renders one PNG line chart per context group, with flagged samples
// highlighted.
type Charts struct {
	Dir string
}

// NewCharts places charts in a directory named after the batch time range.
func NewCharts(outputDir string, start, end time.Time) *Charts {
	return &Charts{Dir: filepath.Join(outputDir, "charts_"+RangeName(start, end))}
}

var fileSafe = strings.NewReplacer("/", "_", " ", "_", ":", "_")

// ChartFile is the file name used for a group's chart.
func ChartFile(a domain.AlertRecord) string {
	return fileSafe.Replace(fmt.Sprintf("%s_%s_%s.png", a.Kind, a.EntityID, a.Channel))
}

func (c *Charts) Render(g domain.ContextGroup) (string, error) {
	if len(g.Rows) == 0 {
		return "", fmt.Errorf("render %s/%s: no rows", g.Alert.EntityID, g.Alert.Channel)
	}

	p := plot.New()
	name := g.Alert.EntityName
	if name == "" {
		name = g.Alert.EntityID
	}
	p.Title.Text = fmt.Sprintf("%s %s (%s)", name, g.Alert.Channel, g.Alert.Kind)
	p.X.Label.Text = "time (UTC)"
	p.Y.Label.Text = "value"
	p.X.Tick.Marker = plot.TimeTicks{Format: "01-02 15:04"}
	p.Add(plotter.NewGrid())

	values := make(plotter.XYs, len(g.Rows))
	var compare, flagged plotter.XYs
	for i, r := range g.Rows {
		x := float64(r.Timestamp.Unix())
		values[i] = plotter.XY{X: x, Y: r.Value}
		if g.Alert.Kind == domain.KindDiscrepancy {
			compare = append(compare, plotter.XY{X: x, Y: r.Compare})
		}
		if r.Annotated {
			flagged = append(flagged, plotter.XY{X: x, Y: r.Value})
		}
	}

	line, err := plotter.NewLine(values)
	if err != nil {
		return "", fmt.Errorf("render line: %w", err)
	}
	line.LineStyle.Color = valueColor
	p.Add(line)
	p.Legend.Add(g.Rows[0].ChannelTag, line)

	if len(compare) > 0 {
		cl, err := plotter.NewLine(compare)
		if err != nil {
			return "", fmt.Errorf("render compare line: %w", err)
		}
		cl.LineStyle.Color = compareColor
		cl.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(cl)
		p.Legend.Add("compare", cl)
	}

	if len(flagged) > 0 {
		sc, err := plotter.NewScatter(flagged)
		if err != nil {
			return "", fmt.Errorf("render flags: %w", err)
		}
		sc.GlyphStyle.Color = flagColor
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add("flagged", sc)
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(c.Dir, ChartFile(g.Alert))
	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save chart: %w", err)
	}
	return path, nil
}
