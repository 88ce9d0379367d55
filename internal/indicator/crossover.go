package indicator

import (
	"fmt"
	"math"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// Detector checks one instrument for a moving-average crossover between the
// last fully-closed session and a hypothetical session that includes today's
// freshly observed price. It keeps no state across runs: "previous" always
// means the last closed session, recomputed from raw history each time.
type Detector struct {
	Big   Window
	Small Window
}

// NewDetector builds a close-price detector for the two window sizes.
func NewDetector(big, small int) *Detector {
	return &Detector{Big: NewWindow(big), Small: NewWindow(small)}
}

// Detect classifies the instrument for this run. A nil today observation,
// or history too short for either window, skips the instrument: the return
// is (nil, nil), no event and no error. A symbol disagreement between the
// series and today's observation is a wiring bug and fails hard.
func (d *Detector) Detect(series model.PriceSeries, today *model.PriceObservation) (*model.CrossoverEvent, error) {
	if today == nil {
		return nil, nil
	}
	if sym := series.Symbol(); sym != "" && sym != today.Symbol {
		return nil, fmt.Errorf("%w: series %q vs today %q", ErrSymbolMismatch, sym, today.Symbol)
	}

	bigPts, err := MovingAverage(series, d.Big)
	if err != nil {
		return nil, err
	}
	smallPts, err := MovingAverage(series, d.Small)
	if err != nil {
		return nil, err
	}
	if len(bigPts) == 0 || len(smallPts) == 0 {
		return nil, nil
	}
	if bigPts[len(bigPts)-1].Symbol != smallPts[len(smallPts)-1].Symbol {
		return nil, fmt.Errorf("%w: big %q vs small %q",
			ErrSymbolMismatch, bigPts[len(bigPts)-1].Symbol, smallPts[len(smallPts)-1].Symbol)
	}

	prevBig := bigPts[len(bigPts)-1].Average
	prevSmall := smallPts[len(smallPts)-1].Average

	currentBig, err := blendedAverage(series, *today, d.Big)
	if err != nil {
		return nil, err
	}
	currentSmall, err := blendedAverage(series, *today, d.Small)
	if err != nil {
		return nil, err
	}

	direction, crossed := classify(prevBig, prevSmall, currentBig, currentSmall)
	if !crossed {
		return nil, nil
	}
	return &model.CrossoverEvent{
		Symbol:       today.Symbol,
		Date:         today.Date,
		Direction:    direction,
		BigWindow:    d.Big.Size,
		SmallWindow:  d.Small.Size,
		PrevBig:      prevBig,
		PrevSmall:    prevSmall,
		CurrentBig:   currentBig,
		CurrentSmall: currentSmall,
	}, nil
}

// blendedAverage computes the "current" state: the last size-1 historical
// values plus today's fresh value, averaged over the full window. A size-1
// window takes no historical values, only today's. The blend mixes stored
// and freshly scraped precision, so the result is rounded to two decimal
// places here, at the boundary where the two sources meet.
func blendedAverage(series model.PriceSeries, today model.PriceObservation, w Window) (float64, error) {
	col := w.Column
	if col == "" {
		col = model.ColumnClose
	}
	todayValue, err := today.Field(col)
	if err != nil {
		return 0, err
	}
	sum := todayValue
	if w.Size > 1 {
		tail, err := series.Tail(w.Size - 1).Column(col)
		if err != nil {
			return 0, err
		}
		for _, v := range tail {
			sum += v
		}
	}
	return round2(sum / float64(w.Size)), nil
}

// classify reports whether the ordering of the big and small averages
// flipped. Exact equality on either side is no crossover: crossing requires
// a strict sign change at both timepoints.
func classify(prevBig, prevSmall, currentBig, currentSmall float64) (model.CrossDirection, bool) {
	switch {
	case prevBig < prevSmall && currentBig > currentSmall:
		return model.CrossedUp, true
	case prevBig > prevSmall && currentBig < currentSmall:
		return model.CrossedDown, true
	default:
		return "", false
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
