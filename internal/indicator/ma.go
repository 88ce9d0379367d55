// Package indicator computes moving-average aggregates over price series and
// detects crossovers between two window sizes.
package indicator

import (
	"errors"

	"github.com/vaskrneup/NepseTools/internal/model"
)

var (
	// ErrInvalidWindow reports a non-positive window size.
	ErrInvalidWindow = errors.New("window size must be positive")
	// ErrSymbolMismatch reports that the two aggregates being compared, or
	// the series and today's observation, describe different symbols. This
	// is a caller wiring bug, not a data condition, and fails the run.
	ErrSymbolMismatch = errors.New("aggregates describe different symbols")
)

// Window configures one moving-average computation: how many trailing
// sessions to average and which price field to average over.
type Window struct {
	Size   int
	Column model.Column
}

// NewWindow returns a close-price window of the given size.
func NewWindow(size int) Window {
	return Window{Size: size, Column: model.ColumnClose}
}

// Point is one aggregator output: the anchor session's passthrough columns
// plus the computed average over the trailing window ending at that session.
type Point struct {
	Symbol  string
	Date    string
	Close   float64
	Volume  float64
	Average float64
}

// MovingAverage emits one Point per valid window position, anchored at the
// window's last session. A series shorter than size+1 yields an empty
// sequence: a crossover comparison needs at least one aggregate beyond the
// first full window, so "not enough history" is reported as no output
// rather than an error.
func MovingAverage(series model.PriceSeries, w Window) ([]Point, error) {
	if w.Size <= 0 {
		return nil, ErrInvalidWindow
	}
	if len(series) < w.Size+1 {
		return nil, nil
	}

	col := w.Column
	if col == "" {
		col = model.ColumnClose
	}
	values, err := series.Column(col)
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(series)-w.Size+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i < w.Size-1 {
			continue
		}
		if i >= w.Size {
			sum -= values[i-w.Size]
		}
		anchor := series[i]
		points = append(points, Point{
			Symbol:  anchor.Symbol,
			Date:    anchor.Date,
			Close:   anchor.Close,
			Volume:  anchor.Volume,
			Average: sum / float64(w.Size),
		})
	}
	return points, nil
}
