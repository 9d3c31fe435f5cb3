package charts

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/snapshot-chromedp/render"
	"github.com/stollenaar/numbercruncher/internal/analysis"
	"github.com/stollenaar/numbercruncher/internal/frame"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	caser = cases.Title(language.AmericanEnglish)

	heatmapColors = []string{"#f7fbff", "#c6dbef", "#6baed6", "#2171b5", "#08306b"}
)

// Snapshotter turns a rendered echarts page into PNG bytes.
type Snapshotter interface {
	Snapshot(content []byte) ([]byte, error)
}

// ChromeSnapshotter screenshots the page with a headless Chrome. Every call
// works in its own temporary directory.
type ChromeSnapshotter struct{}

func (ChromeSnapshotter) Snapshot(content []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "numbercruncher-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	fileName := filepath.Join(dir, "chart.png")
	if err := render.MakeChartSnapshot(content, fileName); err != nil {
		return nil, fmt.Errorf("error taking chart snapshot: %w", err)
	}
	return os.ReadFile(fileName)
}

// Renderer builds the five charts of an analysis. Label is the timezone
// label appended to titles and file names.
type Renderer struct {
	Snapshotter Snapshotter
	Label       string
}

func NewRenderer(snapshotter Snapshotter, label string) *Renderer {
	return &Renderer{Snapshotter: snapshotter, Label: label}
}

func (r *Renderer) HourHistogram(result analysis.Result) (Artifact, error) {
	title := titled("Orders by Hour", r.Label)
	bar := generateBarChart(title, "hour", hourLabels(), result.Hourly[:])
	return r.snapshot(bar.RenderContent(), Artifact{
		Name:  fileName("orders_by_hour", r.Label),
		Title: title,
		Type:  BarChart,
	})
}

func (r *Renderer) WeekdayHistogram(result analysis.Result) (Artifact, error) {
	title := titled("Orders by Weekday", r.Label)
	bar := generateBarChart(title, "weekday", frame.Weekdays[:], result.Weekly[:])
	return r.snapshot(bar.RenderContent(), Artifact{
		Name:  fileName("orders_by_weekday", r.Label),
		Title: title,
		Type:  BarChart,
	})
}

func (r *Renderer) Heatmap(result analysis.Result) (Artifact, error) {
	title := titled("Order Heatmap", r.Label)
	heatmap := generateHeatmap(title, result.Heatmap)
	return r.snapshot(heatmap.RenderContent(), Artifact{
		Name:  fileName("orders_heatmap", r.Label),
		Title: title,
		Type:  HeatmapChart,
	})
}

func (r *Renderer) DailyVolume(result analysis.Result) (Artifact, error) {
	title := titled("Daily Order Volume", r.Label)
	line := generateLineChart(title, result.Daily)
	return r.snapshot(line.RenderContent(), Artifact{
		Name:  fileName("daily_volume", r.Label),
		Title: title,
		Type:  LineChart,
	})
}

func (r *Renderer) snapshot(content []byte, artifact Artifact) (Artifact, error) {
	image, err := r.Snapshotter.Snapshot(content)
	if err != nil {
		return Artifact{}, fmt.Errorf("error rendering %s: %w", artifact.Name, err)
	}
	artifact.Data = image
	return artifact, nil
}

func globalOptions(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			BackgroundColor: "#FFFFFF",
		}),
		// Don't forget disable the Animation
		charts.WithAnimation(false),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Left:  "center",
		}),
	}
}

func generateBarChart(title, axis string, labels []string, counts []int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(title)...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: caser.String(axis)}),
		charts.WithYAxisOpts(opts.YAxis{Name: caser.String("orders")}),
	)

	bar.SetXAxis(labels).
		AddSeries(caser.String("orders"), genBarData(counts))
	return bar
}

func generateHeatmap(title string, matrix [7][24]int) *charts.HeatMap {
	heatmap := charts.NewHeatMap()
	heatmap.SetGlobalOptions(globalOptions(title)...)
	heatmap.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{
			Name: caser.String("hour"),
			Type: "category",
			Data: hourLabels(),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "category",
			Data: frame.Weekdays[:],
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCell(matrix)),
			Text:       []string{caser.String("orders"), ""},
			InRange:    &opts.VisualMapInRange{Color: heatmapColors},
		}),
	)

	heatmap.SetXAxis(hourLabels()).
		AddSeries(caser.String("orders"), genHeatMapData(matrix))
	return heatmap
}

func generateLineChart(title string, days []analysis.DayCount) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(title)...)
	line.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: caser.String("day")}),
		charts.WithYAxisOpts(opts.YAxis{Name: caser.String("orders")}),
	)

	line.SetXAxis(dayLabels(days)).
		AddSeries(caser.String("orders"), genLineData(days)).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{
				ShowSymbol: opts.Bool(true),
			}),
		)
	return line
}

func hourLabels() (rs []string) {
	for hour := 0; hour < 24; hour++ {
		rs = append(rs, strconv.Itoa(hour))
	}
	return
}

func dayLabels(days []analysis.DayCount) (rs []string) {
	for _, day := range days {
		rs = append(rs, day.Day.Format(frame.DayLayout))
	}
	return
}

func genBarData(counts []int) (rs []opts.BarData) {
	for _, count := range counts {
		rs = append(rs, opts.BarData{Value: count})
	}
	return
}

func genHeatMapData(matrix [7][24]int) (rs []opts.HeatMapData) {
	for day, hours := range matrix {
		for hour, count := range hours {
			rs = append(rs, opts.HeatMapData{Value: [3]interface{}{hour, day, count}})
		}
	}
	return
}

func genLineData(days []analysis.DayCount) (rs []opts.LineData) {
	for _, day := range days {
		rs = append(rs, opts.LineData{Value: day.Count})
	}
	return
}

func maxCell(matrix [7][24]int) int {
	max := 1
	for _, hours := range matrix {
		for _, count := range hours {
			if count > max {
				max = count
			}
		}
	}
	return max
}
