package recorder

import "github.com/vaskrneup/NepseTools/internal/model"

// NoopRecorder discards all records. Used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScrape(*ScrapeRun) error                       { return nil }
func (n *NoopRecorder) RecordEvent(string, string, model.CrossoverEvent) error { return nil }
func (n *NoopRecorder) RecordDispatch(*DispatchResult) error                { return nil }
func (n *NoopRecorder) Close() error                                        { return nil }
