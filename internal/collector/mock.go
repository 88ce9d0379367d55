package collector

import (
	"context"
	"time"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Days maps a session date (YYYY-MM-DD) to its rows; dates not in the map
// read as non-trading days.
type MockFetcher struct {
	Days map[string][]model.PriceObservation
	Err  error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDay(_ context.Context, date time.Time) ([]model.PriceObservation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Days[date.Format(model.DateLayout)], nil
}
