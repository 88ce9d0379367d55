package store

import (
	"fmt"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// Filter narrows or reorders a view of the price table. Filters are applied
// in order and each one is independent of the others, so a pipeline can be
// built and tested piecewise.
type Filter interface {
	Name() string
	Apply(rows []model.PriceObservation) []model.PriceObservation
}

// SymbolFilter keeps only rows for one instrument symbol.
type SymbolFilter struct {
	Symbol string
}

func (f SymbolFilter) Name() string { return fmt.Sprintf("symbol=%s", f.Symbol) }

func (f SymbolFilter) Apply(rows []model.PriceObservation) []model.PriceObservation {
	out := make([]model.PriceObservation, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == f.Symbol {
			out = append(out, r)
		}
	}
	return out
}

// TailFilter keeps the trailing N rows of its input. N <= 0 keeps everything.
type TailFilter struct {
	N int
}

func (f TailFilter) Name() string { return fmt.Sprintf("tail=%d", f.N) }

func (f TailFilter) Apply(rows []model.PriceObservation) []model.PriceObservation {
	if f.N <= 0 || len(rows) <= f.N {
		return rows
	}
	return rows[len(rows)-f.N:]
}

// ApplyFilters runs the filters over the rows in order.
func ApplyFilters(rows []model.PriceObservation, filters ...Filter) []model.PriceObservation {
	out := rows
	for _, f := range filters {
		out = f.Apply(out)
	}
	return out
}
