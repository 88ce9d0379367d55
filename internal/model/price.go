package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used across the CSV store and the
// market-data endpoint.
const DateLayout = "2006-01-02"

// Column identifies one numeric price field of an observation.
type Column string

const (
	ColumnOpen      Column = "open"
	ColumnHigh      Column = "high"
	ColumnLow       Column = "low"
	ColumnClose     Column = "close"
	ColumnVWAP      Column = "vwap"
	ColumnPrevClose Column = "prev_close"
	ColumnVolume    Column = "vol"
	ColumnTurnover  Column = "turnover"
)

// PriceObservation is one instrument's trading data for one session, as
// scraped from the daily price sheet. Rows are immutable once stored; a
// re-scrape of the same date only fills gaps via (symbol, date) dedup.
type PriceObservation struct {
	Date         string  `csv:"date" json:"date"`
	Time         string  `csv:"time" json:"time"`
	SNo          int     `csv:"sno" json:"sno"`
	Symbol       string  `csv:"symbol" json:"symbol"`
	Conf         float64 `csv:"conf" json:"conf"`
	Open         float64 `csv:"open" json:"open"`
	High         float64 `csv:"high" json:"high"`
	Low          float64 `csv:"low" json:"low"`
	Close        float64 `csv:"close" json:"close"`
	VWAP         float64 `csv:"vwap" json:"vwap"`
	Volume       float64 `csv:"vol" json:"vol"`
	PrevClose    float64 `csv:"prev_close" json:"prev_close"`
	Turnover     float64 `csv:"turnover" json:"turnover"`
	Transactions int     `csv:"trans" json:"trans"`
	Diff         float64 `csv:"diff" json:"diff"`
	Range        float64 `csv:"range" json:"range"`
	DiffPct      float64 `csv:"diff_percentage" json:"diff_percentage"`
	RangePct     float64 `csv:"range_percentage" json:"range_percentage"`
	VWAPPct      float64 `csv:"vwap_percentage" json:"vwap_percentage"`
	Days120      float64 `csv:"120_days" json:"120_days"`
	Days180      float64 `csv:"180_days" json:"180_days"`
	WeeksHigh52  float64 `csv:"52_weeks_high" json:"52_weeks_high"`
	WeeksLow52   float64 `csv:"52_weeks_low" json:"52_weeks_low"`
}

// Key returns the (symbol, date) identity of the observation.
func (o PriceObservation) Key() string {
	return o.Symbol + "|" + o.Date
}

// Field returns the value of the given numeric column.
func (o PriceObservation) Field(col Column) (float64, error) {
	switch col {
	case ColumnOpen:
		return o.Open, nil
	case ColumnHigh:
		return o.High, nil
	case ColumnLow:
		return o.Low, nil
	case ColumnClose:
		return o.Close, nil
	case ColumnVWAP:
		return o.VWAP, nil
	case ColumnPrevClose:
		return o.PrevClose, nil
	case ColumnVolume:
		return o.Volume, nil
	case ColumnTurnover:
		return o.Turnover, nil
	default:
		return 0, fmt.Errorf("unknown price column %q", col)
	}
}

// SessionDate parses the observation's calendar date.
func (o PriceObservation) SessionDate() (time.Time, error) {
	return time.Parse(DateLayout, o.Date)
}

// PriceSeries is an ordered sequence of observations for one symbol, date
// ascending. Gaps from market holidays are expected; consumers must tolerate
// short series.
type PriceSeries []PriceObservation

// Symbol returns the symbol of the series, or "" for an empty series.
func (s PriceSeries) Symbol() string {
	if len(s) == 0 {
		return ""
	}
	return s[0].Symbol
}

// Column extracts one numeric column across the series.
func (s PriceSeries) Column(col Column) ([]float64, error) {
	out := make([]float64, len(s))
	for i, o := range s {
		v, err := o.Field(col)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Tail returns the trailing n observations, or the whole series when it is
// shorter than n. n <= 0 also returns the whole series, matching the store's
// tail filter where zero means "no limit"; callers slicing off an exact
// count must check for that sentinel themselves.
func (s PriceSeries) Tail(n int) PriceSeries {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
