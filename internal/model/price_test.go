package model

import (
	"reflect"
	"testing"
)

func sampleSeries(symbol string, dates ...string) PriceSeries {
	series := make(PriceSeries, len(dates))
	for i, d := range dates {
		series[i] = PriceObservation{Symbol: symbol, Date: d, Close: float64(100 + i)}
	}
	return series
}

func TestPriceSeries_Tail(t *testing.T) {
	series := sampleSeries("GBIME", "2024-01-01", "2024-01-02", "2024-01-03")

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"exact count", 2, []string{"2024-01-02", "2024-01-03"}},
		{"longer than series", 5, []string{"2024-01-01", "2024-01-02", "2024-01-03"}},
		{"zero means no limit", 0, []string{"2024-01-01", "2024-01-02", "2024-01-03"}},
		{"negative means no limit", -1, []string{"2024-01-01", "2024-01-02", "2024-01-03"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dates []string
			for _, o := range series.Tail(tt.n) {
				dates = append(dates, o.Date)
			}
			if !reflect.DeepEqual(dates, tt.want) {
				t.Errorf("Tail(%d) dates = %v, want %v", tt.n, dates, tt.want)
			}
		})
	}
}

func TestPriceObservation_Field(t *testing.T) {
	o := PriceObservation{Open: 1, High: 2, Low: 3, Close: 4, VWAP: 5, Volume: 6, PrevClose: 7, Turnover: 8}

	tests := []struct {
		col  Column
		want float64
	}{
		{ColumnOpen, 1}, {ColumnHigh, 2}, {ColumnLow, 3}, {ColumnClose, 4},
		{ColumnVWAP, 5}, {ColumnVolume, 6}, {ColumnPrevClose, 7}, {ColumnTurnover, 8},
	}
	for _, tt := range tests {
		got, err := o.Field(tt.col)
		if err != nil {
			t.Errorf("Field(%s): %v", tt.col, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Field(%s) = %v, want %v", tt.col, got, tt.want)
		}
	}

	if _, err := o.Field("no_such_column"); err == nil {
		t.Error("expected error for unknown column")
	}
}
