package recorder

import "github.com/vaskrneup/NepseTools/internal/model"

// ScrapeRun records one backfill pass over the market-data endpoint.
type ScrapeRun struct {
	RunID      string
	RowsAdded  int
	LastDate   string
	DurationMS int64
}

// DispatchResult records one outbound mail attempt for a recipient.
type DispatchResult struct {
	RunID     string
	Recipient string
	Subject   string
	Messages  int
	Sent      bool
	Error     string
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordScrape(run *ScrapeRun) error
	RecordEvent(runID, job string, event model.CrossoverEvent) error
	RecordDispatch(res *DispatchResult) error
	Close() error
}
