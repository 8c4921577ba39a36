package render

import (
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// Renderer draws the IV and HV accuracy series.
type Renderer interface {
	Render(iv, hv model.AccuracySeries) error
}

// Pixel size of the rendered chart; vg lengths are converted at 96 dpi.
const (
	DefaultWidth  = 1024
	DefaultHeight = 768
	dpi           = 96
)

var (
	ivColor = color.RGBA{R: 220, A: 255}
	hvColor = color.RGBA{B: 220, A: 255}
)

// PNGRenderer writes a line chart to Path.
type PNGRenderer struct {
	Path   string
	Width  int
	Height int
}

func NewPNGRenderer(path string) *PNGRenderer {
	return &PNGRenderer{Path: path, Width: DefaultWidth, Height: DefaultHeight}
}

// Render draws both series over a shared date axis. Nothing is written when both
// series are empty.
func (r *PNGRenderer) Render(iv, hv model.AccuracySeries) error {
	if len(iv.Samples) == 0 && len(hv.Samples) == 0 {
		log.Println("[WARN] no accuracy samples, skipping chart")
		return nil
	}

	p := plot.New()
	p.Title.Text = "IV vs. HV Accuracy"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Accuracy Value"
	p.X.Tick.Marker = plot.TimeTicks{Format: model.DateLayout}
	p.Add(plotter.NewGrid())

	for _, s := range []struct {
		series model.AccuracySeries
		color  color.Color
	}{{iv, ivColor}, {hv, hvColor}} {
		xys := toXYs(s.series.Samples)
		if len(xys) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("%s series: %w", s.series.Name, err)
		}
		line.Color = s.color
		points.Color = s.color
		points.Radius = vg.Points(3)
		p.Add(line, points)
		p.Legend.Add(s.series.Name+" Accuracy", line, points)
	}
	p.Legend.Top = true

	p.Y.Min, p.Y.Max = YRange(iv.Samples, hv.Samples)

	if dir := filepath.Dir(r.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create chart dir: %w", err)
		}
	}
	w := vg.Length(r.Width) * vg.Inch / dpi
	h := vg.Length(r.Height) * vg.Inch / dpi
	if err := p.Save(w, h, r.Path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	log.Printf("[INFO] chart written to %s", r.Path)
	return nil
}

// YRange returns the y-axis bounds: the data range widened to include [0, 0.1],
// padded by 10% of its span on both sides.
func YRange(series ...[]model.AccuracySample) (float64, float64) {
	lo, hi := 0.0, 0.1
	for _, s := range series {
		for _, smp := range s {
			if math.IsNaN(smp.Error) {
				continue
			}
			lo = math.Min(lo, smp.Error)
			hi = math.Max(hi, smp.Error)
		}
	}
	pad := (hi - lo) * 0.1
	return lo - pad, hi + pad
}

func toXYs(samples []model.AccuracySample) plotter.XYs {
	xys := make(plotter.XYs, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Error) || math.IsInf(s.Error, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(s.Date.Time().Unix()), Y: s.Error})
	}
	sort.SliceStable(xys, func(i, j int) bool { return xys[i].X < xys[j].X })
	return xys
}
