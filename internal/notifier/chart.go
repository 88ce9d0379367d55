package notifier

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/vaskrneup/NepseTools/internal/indicator"
	"github.com/vaskrneup/NepseTools/internal/model"
)

// ChartRenderer draws the two-panel figure attached to crossover mails:
// close price plus one line per moving-average window on top, volume below,
// on a shared date axis.
type ChartRenderer struct {
	OutDir string
}

// NewChartRenderer creates a renderer writing PNGs into outDir.
func NewChartRenderer(outDir string) *ChartRenderer {
	return &ChartRenderer{OutDir: outDir}
}

// Render draws the series and its moving averages, returning the PNG path.
func (c *ChartRenderer) Render(series model.PriceSeries, windows ...indicator.Window) (string, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("chart: empty series")
	}
	symbol := series.Symbol()

	pricePlot := plot.New()
	pricePlot.Title.Text = fmt.Sprintf("Plot of %s", symbol)
	pricePlot.Y.Label.Text = "Price"
	pricePlot.X.Tick.Marker = plot.TimeTicks{Format: model.DateLayout}
	pricePlot.Add(plotter.NewGrid())

	volumePlot := plot.New()
	volumePlot.Y.Label.Text = "Volume"
	volumePlot.X.Tick.Marker = plot.TimeTicks{Format: model.DateLayout}
	volumePlot.Add(plotter.NewGrid())

	closeXYs, err := seriesXYs(series, model.ColumnClose)
	if err != nil {
		return "", err
	}
	volumeXYs, err := seriesXYs(series, model.ColumnVolume)
	if err != nil {
		return "", err
	}

	lines := []interface{}{"Close", closeXYs}
	for _, w := range windows {
		points, err := indicator.MovingAverage(series, w)
		if err != nil {
			return "", err
		}
		xys, err := pointXYs(points)
		if err != nil {
			return "", err
		}
		if len(xys) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("MA-%d", w.Size), xys)
	}
	if err := plotutil.AddLines(pricePlot, lines...); err != nil {
		return "", fmt.Errorf("chart price panel: %w", err)
	}
	if err := plotutil.AddLines(volumePlot, "Volume", volumeXYs); err != nil {
		return "", fmt.Errorf("chart volume panel: %w", err)
	}

	// Pin both panels to the same date range so they stay aligned.
	first, err := series[0].SessionDate()
	if err != nil {
		return "", err
	}
	last, err := series[len(series)-1].SessionDate()
	if err != nil {
		return "", err
	}
	for _, p := range []*plot.Plot{pricePlot, volumePlot} {
		p.X.Min = float64(first.Unix())
		p.X.Max = float64(last.Unix())
	}

	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(c.OutDir, fmt.Sprintf("%s_%s.png", symbol, series[len(series)-1].Date))
	if err := writeStacked(pricePlot, volumePlot, path); err != nil {
		return "", err
	}
	return path, nil
}

func seriesXYs(series model.PriceSeries, col model.Column) (plotter.XYs, error) {
	xys := make(plotter.XYs, 0, len(series))
	for _, o := range series {
		d, err := o.SessionDate()
		if err != nil {
			return nil, fmt.Errorf("chart: bad date %q: %w", o.Date, err)
		}
		v, err := o.Field(col)
		if err != nil {
			return nil, err
		}
		xys = append(xys, plotter.XY{X: float64(d.Unix()), Y: v})
	}
	return xys, nil
}

func pointXYs(points []indicator.Point) (plotter.XYs, error) {
	xys := make(plotter.XYs, 0, len(points))
	for _, p := range points {
		d, err := time.Parse(model.DateLayout, p.Date)
		if err != nil {
			return nil, fmt.Errorf("chart: bad point date %q: %w", p.Date, err)
		}
		xys = append(xys, plotter.XY{X: float64(d.Unix()), Y: p.Average})
	}
	return xys, nil
}

// writeStacked lays the two panels out in a 2:1 vertical split and writes
// the PNG.
func writeStacked(top, bottom *plot.Plot, path string) error {
	const width, height = 9 * vg.Inch, 6 * vg.Inch
	img := vgimg.New(width, height)
	dc := draw.New(img)

	topCanvas := draw.Crop(dc, 0, 0, height/3, 0)
	bottomCanvas := draw.Crop(dc, 0, 0, 0, -2*height/3)
	top.Draw(topCanvas)
	bottom.Draw(bottomCanvas)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("write chart png: %w", err)
	}
	return nil
}
