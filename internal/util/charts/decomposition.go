package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"time"

	"github.com/stollenaar/numbercruncher/internal/analysis"
	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	panelWidth   = 1000
	panelHeight  = 250
	headerHeight = 36
)

// Decomposition draws observed, trend, seasonal and residual as four stacked
// panels sharing the day axis.
func (r *Renderer) Decomposition(result analysis.Result) (Artifact, error) {
	title := titled(fmt.Sprintf("Seasonal Decomposition (%d-day)", analysis.DecompositionPeriod), r.Label)
	artifact := Artifact{
		Name:  fileName("decomposition", r.Label),
		Title: title,
		Type:  PanelChart,
	}

	d := result.Decomposition
	if d == nil {
		return Artifact{}, fmt.Errorf("error rendering %s: %w", artifact.Name, analysis.ErrSeriesTooShort)
	}

	days := make([]time.Time, len(result.Daily))
	for i, day := range result.Daily {
		days[i] = day.Day
	}

	panels := []struct {
		name   string
		values []float64
	}{
		{"observed", d.Observed},
		{"trend", d.Trend},
		{"seasonal", d.Seasonal},
		{"resid", d.Resid},
	}

	canvas := image.NewRGBA(image.Rect(0, 0, panelWidth, headerHeight+len(panels)*panelHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	drawHeader(canvas, title)

	for i, panel := range panels {
		img, err := renderPanel(caser.String(panel.name), days, panel.values)
		if err != nil {
			return Artifact{}, fmt.Errorf("error rendering %s panel: %w", panel.name, err)
		}
		offset := image.Pt(0, headerHeight+i*panelHeight)
		draw.Draw(canvas, img.Bounds().Add(offset), img, img.Bounds().Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Artifact{}, fmt.Errorf("error encoding %s: %w", artifact.Name, err)
	}
	artifact.Data = buf.Bytes()
	return artifact, nil
}

func renderPanel(name string, days []time.Time, values []float64) (image.Image, error) {
	var (
		xs []time.Time
		ys []float64
	)
	for i, v := range values {
		if math.IsNaN(v) || i >= len(days) {
			continue
		}
		xs = append(xs, days[i])
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%s has %d defined points", name, len(xs))
	}

	ch := chart.Chart{
		Width:      panelWidth,
		Height:     panelHeight,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 8}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:      chart.YAxis{Name: name, Range: paddedRange(ys)},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    name,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2},
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

// paddedRange keeps flat series renderable.
func paddedRange(values []float64) *chart.ContinuousRange {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func drawHeader(canvas *image.RGBA, title string) {
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: canvas, Src: image.NewUniform(color.Black), Face: face}
	width := dr.MeasureString(title).Ceil()
	x := (canvas.Bounds().Dx() - width) / 2
	y := (headerHeight + face.Metrics().Ascent.Ceil()) / 2
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(title)
}
