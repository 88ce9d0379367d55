// Package notifier turns detected crossovers into rendered mail messages and
// fans them out to recipients.
package notifier

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vaskrneup/NepseTools/internal/indicator"
	"github.com/vaskrneup/NepseTools/internal/model"
	"github.com/vaskrneup/NepseTools/internal/store"
)

const (
	subjectSeparator = " || "
	htmlSeparator    = "<hr><hr>"
	plainSeparator   = "\n\n"
)

// Job is one configured detector instance: which windows to compare, which
// instruments to watch, and who to tell. Immutable for the run's duration.
type Job struct {
	Name        string
	BigWindow   int
	SmallWindow int
	Symbols     []string
	Recipients  []string
}

// Validate checks the job configuration for caller wiring mistakes.
func (j Job) Validate() error {
	if j.BigWindow <= 0 || j.SmallWindow <= 0 {
		return fmt.Errorf("job %s: window sizes must be positive", j.Name)
	}
	if len(j.Symbols) == 0 {
		return fmt.Errorf("job %s: no symbols configured", j.Name)
	}
	if len(j.Recipients) == 0 {
		return fmt.Errorf("job %s: no recipients configured", j.Name)
	}
	return nil
}

// MACrossNotifier composes one job's message for a run: it runs the
// detector per symbol against the stored history plus today's snapshot and
// renders a fragment (text, html, chart attachment) per triggered symbol.
type MACrossNotifier struct {
	job      Job
	store    store.PriceStore
	detector *indicator.Detector
	renderer *Renderer
	charts   *ChartRenderer
	tail     int
	log      zerolog.Logger
}

// NewMACrossNotifier wires a job to its collaborators. tail is the number
// of trailing sessions loaded per symbol; it is raised to give the larger
// of the two window aggregators headroom when set too low.
func NewMACrossNotifier(job Job, st store.PriceStore, renderer *Renderer, charts *ChartRenderer, tail int, log zerolog.Logger) (*MACrossNotifier, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if floor := 2 * max(job.BigWindow, job.SmallWindow); tail < floor {
		tail = floor
	}
	return &MACrossNotifier{
		job:      job,
		store:    st,
		detector: indicator.NewDetector(job.BigWindow, job.SmallWindow),
		renderer: renderer,
		charts:   charts,
		tail:     tail,
		log:      log.With().Str("component", "ma_cross").Str("job", job.Name).Logger(),
	}, nil
}

// Job returns the job configuration.
func (n *MACrossNotifier) Job() Job { return n.job }

// Recipients returns the job's recipient set.
func (n *MACrossNotifier) Recipients() []string { return n.job.Recipients }

// fragmentData feeds the macross templates.
type fragmentData struct {
	Symbol       string
	Phrase       string
	Date         string
	Big          int
	Small        int
	PrevBig      float64
	PrevSmall    float64
	CurrentBig   float64
	CurrentSmall float64
}

// Compose checks every configured symbol against today's snapshot and joins
// the triggered fragments into one message. Symbols with no snapshot row or
// too little history are skipped quietly. A rendering or chart failure
// drops only that symbol's fragment. The returned error is reserved for
// hard failures (store read, detector wiring) that must fail the run.
func (n *MACrossNotifier) Compose(snapshot map[string]model.PriceObservation) (model.ComposedMessage, []model.CrossoverEvent, error) {
	var (
		subjects    []string
		plains      []string
		htmls       []string
		attachments []string
		events      []model.CrossoverEvent
	)

	for _, symbol := range n.job.Symbols {
		today, ok := snapshot[symbol]
		if !ok {
			n.log.Debug().Str("symbol", symbol).Msg("not in today's sheet, skipping")
			continue
		}

		series, err := n.store.Series(symbol, n.tail)
		if err != nil {
			return model.ComposedMessage{}, nil, fmt.Errorf("load series for %s: %w", symbol, err)
		}

		event, err := n.detector.Detect(series, &today)
		if err != nil {
			return model.ComposedMessage{}, nil, err
		}
		if event == nil {
			continue
		}
		events = append(events, *event)
		n.log.Info().
			Str("symbol", symbol).
			Str("direction", string(event.Direction)).
			Float64("prev_big", event.PrevBig).
			Float64("prev_small", event.PrevSmall).
			Float64("current_big", event.CurrentBig).
			Float64("current_small", event.CurrentSmall).
			Msg("crossover detected")

		subject, plain, html, chartPath, err := n.renderFragment(series, *event)
		if err != nil {
			// Composition failure is per-instrument: log and drop this
			// symbol's fragment, the rest of the run continues.
			n.log.Error().Err(err).Str("symbol", symbol).Msg("fragment composition failed")
			continue
		}
		subjects = append(subjects, subject)
		plains = append(plains, plain)
		htmls = append(htmls, html)
		if chartPath != "" {
			attachments = append(attachments, chartPath)
		}
	}

	if len(subjects) == 0 {
		return model.ComposedMessage{}, events, nil
	}
	return model.ComposedMessage{
		Subject:         strings.Join(subjects, subjectSeparator),
		PlainBody:       strings.Join(plains, plainSeparator),
		HTMLBody:        strings.Join(htmls, htmlSeparator),
		AttachmentPaths: attachments,
	}, events, nil
}

func (n *MACrossNotifier) renderFragment(series model.PriceSeries, event model.CrossoverEvent) (subject, plain, html, chartPath string, err error) {
	data := fragmentData{
		Symbol:       event.Symbol,
		Phrase:       directionPhrase(event.Direction),
		Date:         event.Date,
		Big:          event.BigWindow,
		Small:        event.SmallWindow,
		PrevBig:      event.PrevBig,
		PrevSmall:    event.PrevSmall,
		CurrentBig:   event.CurrentBig,
		CurrentSmall: event.CurrentSmall,
	}
	subject = fmt.Sprintf("%s MA-%d crossed %s MA-%d", event.Symbol, event.BigWindow, data.Phrase, event.SmallWindow)

	plain, err = n.renderer.RenderText("macross", data)
	if err != nil {
		return "", "", "", "", err
	}
	html, err = n.renderer.RenderHTML("macross", data)
	if err != nil {
		return "", "", "", "", err
	}
	chartPath, err = n.charts.Render(series, n.detector.Big, n.detector.Small)
	if err != nil {
		return "", "", "", "", fmt.Errorf("render chart: %w", err)
	}
	return subject, plain, html, chartPath, nil
}

func directionPhrase(d model.CrossDirection) string {
	if d == model.CrossedUp {
		return "above"
	}
	return "below"
}
