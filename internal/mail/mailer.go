// Package mail wraps the SMTP transport behind a session that can be opened
// once and reused for every recipient in a dispatch run.
package mail

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// Session is an open, authenticated transport connection. It must be closed
// by the caller even if individual sends fail.
type Session interface {
	Send(recipient string, msg model.ComposedMessage) error
	Close() error
}

// Opener dials the transport and hands back a reusable session.
type Opener interface {
	Open() (Session, error)
}

// SMTPMailer sends mail over SMTPS using a shared dialer.
type SMTPMailer struct {
	Sender      string
	dialer      *gomail.Dialer
	dialTimeout time.Duration
}

// NewSMTPMailer configures the transport. The dial timeout bounds how long
// a stalled server can block a run.
func NewSMTPMailer(host string, port int, sender, password string, dialTimeout time.Duration) *SMTPMailer {
	d := gomail.NewDialer(host, port, sender, password)
	d.SSL = true
	if dialTimeout <= 0 {
		dialTimeout = 30 * time.Second
	}
	return &SMTPMailer{Sender: sender, dialer: d, dialTimeout: dialTimeout}
}

// Open dials and authenticates. Failure here is fatal for the run: partial
// silent delivery is worse than a visible failure.
func (m *SMTPMailer) Open() (Session, error) {
	type dialResult struct {
		sc  gomail.SendCloser
		err error
	}
	ch := make(chan dialResult, 1)
	go func() {
		sc, err := m.dialer.Dial()
		ch <- dialResult{sc, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("dial smtp: %w", r.err)
		}
		return &smtpSession{sender: m.Sender, sc: r.sc}, nil
	case <-time.After(m.dialTimeout):
		// Orphan the dial goroutine; its connection is closed when it
		// eventually returns.
		go func() {
			if r := <-ch; r.err == nil {
				r.sc.Close()
			}
		}()
		return nil, fmt.Errorf("dial smtp: timeout after %s", m.dialTimeout)
	}
}

type smtpSession struct {
	sender string
	sc     gomail.SendCloser
}

func (s *smtpSession) Send(recipient string, msg model.ComposedMessage) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", s.sender)
	gm.SetHeader("To", recipient)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.PlainBody)
	if msg.HTMLBody != "" {
		// The later alternative renders first client side.
		gm.AddAlternative("text/html", msg.HTMLBody)
	}
	for _, path := range msg.AttachmentPaths {
		gm.Attach(path)
	}
	if err := gomail.Send(s.sc, gm); err != nil {
		return fmt.Errorf("send to %s: %w", recipient, err)
	}
	return nil
}

func (s *smtpSession) Close() error {
	return s.sc.Close()
}
