package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaskrneup/NepseTools/internal/collector"
	"github.com/vaskrneup/NepseTools/internal/mail"
	"github.com/vaskrneup/NepseTools/internal/model"
	"github.com/vaskrneup/NepseTools/internal/recorder"
)

type sentMail struct {
	recipient string
	msg       model.ComposedMessage
}

// fakeSession records sends and can be told to fail after a given count.
type fakeSession struct {
	sent      []sentMail
	failAfter int // fail the Nth send (1-based); 0 never fails
	closed    bool
}

func (s *fakeSession) Send(recipient string, msg model.ComposedMessage) error {
	if s.failAfter > 0 && len(s.sent)+1 >= s.failAfter {
		return errors.New("relay rejected message")
	}
	s.sent = append(s.sent, sentMail{recipient, msg})
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeOpener struct {
	session *fakeSession
	err     error
	opens   int
}

func (o *fakeOpener) Open() (mail.Session, error) {
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

// fakeRecorder captures recorded events and dispatch results.
type fakeRecorder struct {
	events     []model.CrossoverEvent
	dispatches []recorder.DispatchResult
}

func (r *fakeRecorder) RecordScrape(*recorder.ScrapeRun) error { return nil }

func (r *fakeRecorder) RecordEvent(_, _ string, ev model.CrossoverEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *fakeRecorder) RecordDispatch(res *recorder.DispatchResult) error {
	r.dispatches = append(r.dispatches, *res)
	return nil
}

func (r *fakeRecorder) Close() error { return nil }

const sheetDate = "2024-01-15"

func fixedClock() time.Time {
	d, _ := time.Parse(model.DateLayout, sheetDate)
	return d
}

// newTestDispatcher wires two jobs that share one recipient: "daily" watches
// GBIME (trending down, today spikes up) and "weekly" watches NMB (trending
// up, today drops). Both trigger against the fixture sheet.
func newTestDispatcher(t *testing.T, opener *fakeOpener, rec recorder.Recorder) *Dispatcher {
	t.Helper()
	st := &fakeStore{series: map[string]model.PriceSeries{
		"GBIME": history("GBIME", 10, 9, 8, 7),
		"NMB":   history("NMB", 7, 8, 9, 10),
	}}
	fetcher := &collector.MockFetcher{Days: map[string][]model.PriceObservation{
		sheetDate: {snapshotRow("GBIME", 20), snapshotRow("NMB", 1)},
	}}

	jobA := Job{Name: "daily", BigWindow: 3, SmallWindow: 2, Symbols: []string{"GBIME"}, Recipients: []string{"a@example.com", "shared@example.com"}}
	jobB := Job{Name: "weekly", BigWindow: 3, SmallWindow: 2, Symbols: []string{"NMB"}, Recipients: []string{"shared@example.com", "b@example.com"}}

	d := NewDispatcher(fetcher, opener, rec, zerolog.Nop())
	d.now = fixedClock
	d.AddJobs(newTestNotifier(t, jobA, st), newTestNotifier(t, jobB, st))
	return d
}

func TestDispatcher_OneSendPerRecipient(t *testing.T) {
	opener := &fakeOpener{session: &fakeSession{}}
	rec := &fakeRecorder{}
	d := newTestDispatcher(t, opener, rec)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if opener.opens != 1 {
		t.Errorf("session opened %d times, want 1", opener.opens)
	}
	if !opener.session.closed {
		t.Error("session was not closed")
	}

	sent := opener.session.sent
	if len(sent) != 3 {
		t.Fatalf("sends = %d, want 3", len(sent))
	}
	// Registration order: a, shared, b.
	if sent[0].recipient != "a@example.com" || sent[1].recipient != "shared@example.com" || sent[2].recipient != "b@example.com" {
		t.Errorf("recipient order = %v", []string{sent[0].recipient, sent[1].recipient, sent[2].recipient})
	}

	// The shared recipient gets both jobs' fragments joined into one mail.
	shared := sent[1].msg
	if !strings.Contains(shared.Subject, "GBIME") || !strings.Contains(shared.Subject, "NMB") {
		t.Errorf("shared subject missing a job's fragment: %q", shared.Subject)
	}
	if !strings.Contains(shared.Subject, subjectSeparator) {
		t.Errorf("shared subject not joined with %q: %q", subjectSeparator, shared.Subject)
	}
	if !strings.Contains(shared.HTMLBody, htmlSeparator) {
		t.Errorf("shared html body not joined with %q", htmlSeparator)
	}
	if len(shared.AttachmentPaths) != 2 {
		t.Errorf("shared attachments = %d, want 2", len(shared.AttachmentPaths))
	}

	// Single-job recipients get that job's message verbatim.
	if strings.Contains(sent[0].msg.Subject, "NMB") {
		t.Errorf("a@ received the other job's content: %q", sent[0].msg.Subject)
	}

	if len(rec.events) != 2 {
		t.Errorf("recorded events = %d, want 2", len(rec.events))
	}
	if len(rec.dispatches) != 3 {
		t.Errorf("recorded dispatches = %d, want 3", len(rec.dispatches))
	}
	for _, res := range rec.dispatches {
		if !res.Sent {
			t.Errorf("dispatch to %s recorded as unsent", res.Recipient)
		}
	}
}

func TestDispatcher_NoCrossoversNoDial(t *testing.T) {
	st := &fakeStore{series: map[string]model.PriceSeries{
		"GBIME": history("GBIME", 10, 10, 10, 10),
	}}
	fetcher := &collector.MockFetcher{Days: map[string][]model.PriceObservation{
		sheetDate: {snapshotRow("GBIME", 10)},
	}}
	opener := &fakeOpener{session: &fakeSession{}}

	job := Job{Name: "daily", BigWindow: 3, SmallWindow: 2, Symbols: []string{"GBIME"}, Recipients: []string{"a@example.com"}}
	d := NewDispatcher(fetcher, opener, &fakeRecorder{}, zerolog.Nop())
	d.now = fixedClock
	d.AddJobs(newTestNotifier(t, job, st))

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if opener.opens != 0 {
		t.Errorf("dialed transport %d times with nothing to send", opener.opens)
	}
}

func TestDispatcher_HolidaySheetIsSuccess(t *testing.T) {
	opener := &fakeOpener{session: &fakeSession{}}
	d := newTestDispatcher(t, opener, &fakeRecorder{})
	d.now = func() time.Time { return fixedClock().AddDate(0, 0, 1) } // no sheet that day

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if opener.opens != 0 {
		t.Error("dialed transport on a holiday")
	}
}

func TestDispatcher_OpenFailureFailsRun(t *testing.T) {
	opener := &fakeOpener{err: errors.New("auth rejected")}
	d := newTestDispatcher(t, opener, &fakeRecorder{})

	if err := d.Run(context.Background()); err == nil {
		t.Fatal("expected error when the transport cannot be opened")
	}
}

func TestDispatcher_SendFailureAborts(t *testing.T) {
	session := &fakeSession{failAfter: 2}
	opener := &fakeOpener{session: session}
	rec := &fakeRecorder{}
	d := newTestDispatcher(t, opener, rec)

	if err := d.Run(context.Background()); err == nil {
		t.Fatal("expected error when a send fails")
	}
	if len(session.sent) != 1 {
		t.Errorf("sends before abort = %d, want 1", len(session.sent))
	}
	if !session.closed {
		t.Error("session must be closed even after a failed send")
	}

	// The failed attempt is still recorded, marked unsent.
	var failed int
	for _, res := range rec.dispatches {
		if !res.Sent {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("recorded failed dispatches = %d, want 1", failed)
	}
}

func TestDispatcher_AccumulatorsResetBetweenRuns(t *testing.T) {
	opener := &fakeOpener{session: &fakeSession{}}
	d := newTestDispatcher(t, opener, &fakeRecorder{})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := len(opener.session.sent)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := len(opener.session.sent) - first; got != first {
		t.Errorf("second run sent %d mails, want %d (no carry-over)", got, first)
	}
}
