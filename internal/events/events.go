// Package events publishes committed assignment decisions so that downstream
// consumers (notifications, audit replicas) can follow them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/householdpro/backend/internal/models"
)

const DefaultSubject = "householdpro.assignments"

// AssignmentEvent is the wire form of one audit entry.
type AssignmentEvent struct {
	Type  string            `json:"type"`
	Entry models.AuditEntry `json:"entry"`
}

func NewAssignmentEvent(entry models.AuditEntry) AssignmentEvent {
	return AssignmentEvent{Type: "assignment." + string(entry.Action), Entry: entry}
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

type NATSPublisher struct {
	Conn    Conn
	Subject string
	Logger  zerolog.Logger
}

// Connect dials NATS with reconnects enabled. Callers own the returned connection.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("householdpro-backend"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// PublishAssignment sends the entry on "<subject>.<action>". The audit entry id
// goes in the Nats-Msg-Id header so JetStream can de-duplicate redeliveries;
// the booking id travels in Booking-Id.
func (p *NATSPublisher) PublishAssignment(ctx context.Context, entry models.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(NewAssignmentEvent(entry))
	if err != nil {
		return fmt.Errorf("encode assignment event: %w", err)
	}
	subject := p.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	msg := nats.NewMsg(subject + "." + string(entry.Action))
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, entry.ID)
	msg.Header.Set("Booking-Id", entry.BookingID)
	if err := p.Conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish assignment event: %w", err)
	}
	p.Logger.Debug().Str("subject", msg.Subject).Str("booking_id", entry.BookingID).Msg("assignment event published")
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishAssignment(context.Context, models.AuditEntry) error { return nil }
