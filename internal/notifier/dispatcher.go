package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaskrneup/NepseTools/internal/collector"
	"github.com/vaskrneup/NepseTools/internal/mail"
	"github.com/vaskrneup/NepseTools/internal/model"
	"github.com/vaskrneup/NepseTools/internal/recorder"
)

// Dispatcher collects the composed output of every registered job, merges
// messages addressed to the same recipient, and performs exactly one send
// per recipient per run over a single mail session.
type Dispatcher struct {
	fetcher  collector.Fetcher
	mailer   mail.Opener
	recorder recorder.Recorder
	log      zerolog.Logger

	jobs       []*MACrossNotifier
	recipients []string // registration order, deduplicated
	messages   map[string][]model.ComposedMessage

	now func() time.Time
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(fetcher collector.Fetcher, mailer mail.Opener, rec recorder.Recorder, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		fetcher:  fetcher,
		mailer:   mailer,
		recorder: rec,
		log:      log.With().Str("component", "dispatcher").Logger(),
		messages: make(map[string][]model.ComposedMessage),
		now:      time.Now,
	}
}

// AddJobs registers jobs and seeds an empty accumulator for every recipient
// they reference, so a recipient exists even when its jobs emit nothing.
func (d *Dispatcher) AddJobs(jobs ...*MACrossNotifier) {
	d.jobs = append(d.jobs, jobs...)
	for _, job := range jobs {
		for _, email := range job.Recipients() {
			if _, ok := d.messages[email]; !ok {
				d.messages[email] = nil
				d.recipients = append(d.recipients, email)
			}
		}
	}
}

// Run executes one full pass: fetch today's sheet once, compose every job
// against that shared snapshot, then deliver the accumulated messages.
// Soft conditions (nothing detected, symbols missing from the sheet) end
// the run successfully with zero emails; hard failures (detector wiring,
// store read, transport) are returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := d.log.With().Str("run_id", runID).Logger()

	// Fresh accumulators; nothing carries over between runs.
	for email := range d.messages {
		d.messages[email] = nil
	}

	snapshot, err := collector.Snapshot(ctx, d.fetcher, d.now())
	if err != nil {
		return fmt.Errorf("fetch today's sheet: %w", err)
	}
	if len(snapshot) == 0 {
		log.Info().Msg("no sheet published today, nothing to check")
		return nil
	}

	for _, job := range d.jobs {
		msg, events, err := job.Compose(snapshot)
		if err != nil {
			return fmt.Errorf("compose job %s: %w", job.Job().Name, err)
		}
		for _, ev := range events {
			if err := d.recorder.RecordEvent(runID, job.Job().Name, ev); err != nil {
				log.Error().Err(err).Msg("record crossover event")
			}
		}
		if msg.Empty() {
			continue
		}
		for _, email := range job.Recipients() {
			d.messages[email] = append(d.messages[email], msg)
		}
	}

	return d.sendEmail(runID, log)
}

// sendEmail delivers one joined message per recipient with pending content,
// reusing a single transport session. A send failure aborts the remaining
// recipients; already-sent mail is not retried or rolled back.
func (d *Dispatcher) sendEmail(runID string, log zerolog.Logger) error {
	pending := 0
	for _, msgs := range d.messages {
		if len(msgs) > 0 {
			pending++
		}
	}
	if pending == 0 {
		log.Info().Msg("no crossovers detected, zero emails sent")
		return nil
	}

	session, err := d.mailer.Open()
	if err != nil {
		return fmt.Errorf("open mail session: %w", err)
	}
	defer session.Close()

	for _, email := range d.recipients {
		msgs := d.messages[email]
		if len(msgs) == 0 {
			continue
		}
		joined := joinMessages(msgs)

		result := &recorder.DispatchResult{
			RunID:     runID,
			Recipient: email,
			Subject:   joined.Subject,
			Messages:  len(msgs),
		}
		if err := session.Send(email, joined); err != nil {
			result.Error = err.Error()
			if recErr := d.recorder.RecordDispatch(result); recErr != nil {
				log.Error().Err(recErr).Msg("record dispatch")
			}
			return fmt.Errorf("dispatch aborted: %w", err)
		}
		result.Sent = true
		if err := d.recorder.RecordDispatch(result); err != nil {
			log.Error().Err(err).Msg("record dispatch")
		}
		log.Info().Str("recipient", email).Int("messages", len(msgs)).Msg("notification sent")
	}
	return nil
}

// joinMessages merges several jobs' output into one outbound message using
// the same separators as per-job composition. Duplicate attachment paths
// are sent once.
func joinMessages(msgs []model.ComposedMessage) model.ComposedMessage {
	if len(msgs) == 1 {
		return msgs[0]
	}
	var (
		subjects    = make([]string, 0, len(msgs))
		plains      = make([]string, 0, len(msgs))
		htmls       = make([]string, 0, len(msgs))
		attachments []string
		seen        = make(map[string]struct{})
	)
	for _, m := range msgs {
		subjects = append(subjects, m.Subject)
		plains = append(plains, m.PlainBody)
		htmls = append(htmls, m.HTMLBody)
		for _, p := range m.AttachmentPaths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			attachments = append(attachments, p)
		}
	}
	return model.ComposedMessage{
		Subject:         strings.Join(subjects, subjectSeparator),
		PlainBody:       strings.Join(plains, plainSeparator),
		HTMLBody:        strings.Join(htmls, htmlSeparator),
		AttachmentPaths: attachments,
	}
}
