// Package notify publishes the per-pass report for downstream consumers
// (dashboards, alerting) that want to react to sync outcomes without
// polling the store.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/foresyt/fleetsync/internal/models"
)

// Publisher sends pass reports to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Config holds the publisher settings.
type Config struct {
	URL     string
	Subject string
	Timeout time.Duration
}

// NewPublisher connects to NATS. The connection does not reconnect
// aggressively; a batch job that cannot publish its report just logs and
// moves on.
func NewPublisher(cfg Config) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("fleetsync"),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(2),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish sends the report as JSON and flushes before returning.
func (p *Publisher) Publish(report *models.PassReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal pass report: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish pass report: %w", err)
	}
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("flush pass report: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	p.conn.Close()
}
