package indicator

import (
	"fmt"
	"math"
	"testing"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// seriesFromCloses builds a one-symbol series with consecutive session dates.
func seriesFromCloses(symbol string, closes ...float64) model.PriceSeries {
	series := make(model.PriceSeries, len(closes))
	for i, c := range closes {
		series[i] = model.PriceObservation{
			Symbol: symbol,
			Date:   fmt.Sprintf("2024-01-%02d", i+1),
			Close:  c,
			Volume: float64(1000 * (i + 1)),
		}
	}
	return series
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMovingAverage_ShortSeriesYieldsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		size   int
	}{
		{"empty series", nil, 5},
		{"shorter than window", []float64{10, 11}, 5},
		{"exactly window length", []float64{10, 11, 12, 13, 14}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := MovingAverage(seriesFromCloses("GBIME", tt.closes...), NewWindow(tt.size))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(points) != 0 {
				t.Errorf("expected empty output, got %d points", len(points))
			}
		})
	}
}

func TestMovingAverage_PointCountAndValues(t *testing.T) {
	series := seriesFromCloses("GBIME", 10, 11, 12, 13, 14, 15)
	points, err := MovingAverage(series, NewWindow(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 4 {
		t.Fatalf("expected len(s)-w+1 = 4 points, got %d", len(points))
	}
	wantAverages := []float64{11, 12, 13, 14}
	for i, p := range points {
		if !almostEqual(p.Average, wantAverages[i]) {
			t.Errorf("point %d: average = %v, want %v", i, p.Average, wantAverages[i])
		}
	}
	// Anchor passthrough: point i carries session i+w-1.
	if points[0].Date != series[2].Date || points[0].Close != series[2].Close {
		t.Errorf("point 0 anchored at %s/%.1f, want %s/%.1f",
			points[0].Date, points[0].Close, series[2].Date, series[2].Close)
	}
	if points[3].Symbol != "GBIME" || points[3].Volume != series[5].Volume {
		t.Errorf("passthrough columns not carried from anchor session")
	}
}

func TestMovingAverage_InvalidWindow(t *testing.T) {
	if _, err := MovingAverage(seriesFromCloses("GBIME", 1, 2, 3), Window{Size: 0}); err == nil {
		t.Error("expected error for zero window size")
	}
	if _, err := MovingAverage(seriesFromCloses("GBIME", 1, 2, 3), Window{Size: -2}); err == nil {
		t.Error("expected error for negative window size")
	}
}

func TestMovingAverage_AlternateColumn(t *testing.T) {
	series := seriesFromCloses("NMB", 1, 2, 3, 4)
	points, err := MovingAverage(series, Window{Size: 2, Column: model.ColumnVolume})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Volumes are 1000, 2000, 3000, 4000.
	wantAverages := []float64{1500, 2500, 3500}
	if len(points) != len(wantAverages) {
		t.Fatalf("expected %d points, got %d", len(wantAverages), len(points))
	}
	for i, p := range points {
		if !almostEqual(p.Average, wantAverages[i]) {
			t.Errorf("point %d: average = %v, want %v", i, p.Average, wantAverages[i])
		}
	}
}
