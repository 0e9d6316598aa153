// Package notify is the best-effort notification dispatcher over the
// email and SMS transports. Every send yields a per-recipient outcome;
// a failure for one recipient never aborts the rest, transport errors
// never escape the dispatcher, and nothing is retried or re-queued.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Outcome classifies one delivery attempt.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

// Channel names the transport a delivery went through.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Delivery is the result of one send attempt to one recipient.
type Delivery struct {
	Recipient string
	Channel   Channel
	Outcome   Outcome
	Err       error
}

// Dispatcher fans a notification out to a recipient list. A nil
// transport means the channel is not configured and its deliveries
// report "skipped".
type Dispatcher struct {
	email EmailSender
	sms   SMSSender
	log   *zap.SugaredLogger
}

// NewDispatcher creates a Dispatcher. Either transport may be nil.
func NewDispatcher(email EmailSender, sms SMSSender, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, log: log}
}

// EmailConfigured reports whether the email transport is wired.
func (d *Dispatcher) EmailConfigured() bool { return d.email != nil }

// SMSConfigured reports whether the SMS transport is wired.
func (d *Dispatcher) SMSConfigured() bool { return d.sms != nil }

// SendEmail delivers one message per recipient and reports each
// outcome. Errors are folded into the outcome values; callers count
// them and move on.
func (d *Dispatcher) SendEmail(ctx context.Context, recipients []string, subject, htmlBody string) []Delivery {
	deliveries := make([]Delivery, 0, len(recipients))
	for _, to := range recipients {
		if ctx.Err() != nil {
			deliveries = append(deliveries, Delivery{Recipient: to, Channel: ChannelEmail, Outcome: OutcomeError, Err: ctx.Err()})
			continue
		}
		if d.email == nil {
			deliveries = append(deliveries, Delivery{Recipient: to, Channel: ChannelEmail, Outcome: OutcomeSkipped})
			continue
		}
		if err := d.email.Send(to, subject, htmlBody); err != nil {
			d.log.Errorw("Email delivery failed", "recipient", to, "subject", subject, "error", err)
			deliveries = append(deliveries, Delivery{Recipient: to, Channel: ChannelEmail, Outcome: OutcomeError, Err: err})
			continue
		}
		deliveries = append(deliveries, Delivery{Recipient: to, Channel: ChannelEmail, Outcome: OutcomeSent})
	}
	return deliveries
}

// SendSMS delivers one message per phone number and reports each
// outcome.
func (d *Dispatcher) SendSMS(ctx context.Context, recipients []string, message string) []Delivery {
	deliveries := make([]Delivery, 0, len(recipients))
	for _, to := range recipients {
		if d.sms == nil {
			deliveries = append(deliveries, Delivery{Recipient: to, Channel: ChannelSMS, Outcome: OutcomeSkipped})
			continue
		}
		if err := d.sms.Send(ctx, to, message); err != nil {
			d.log.Errorw("SMS delivery failed", "recipient", to, "error", err)
			deliveries = append(deliveries, Delivery{Recipient: to, Channel: ChannelSMS, Outcome: OutcomeError, Err: err})
			continue
		}
		deliveries = append(deliveries, Delivery{Recipient: to, Channel: ChannelSMS, Outcome: OutcomeSent})
	}
	return deliveries
}

// CountOutcomes tallies deliveries by outcome for job summaries.
func CountOutcomes(deliveries []Delivery) (sent, skipped, failed int) {
	for _, d := range deliveries {
		switch d.Outcome {
		case OutcomeSent:
			sent++
		case OutcomeSkipped:
			skipped++
		case OutcomeError:
			failed++
		}
	}
	return sent, skipped, failed
}
