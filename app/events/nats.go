package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS publishes events as JSON on "<prefix>.<type>" subjects.
type NATS struct {
	nc     *nats.Conn
	prefix string
}

// NewNATS wraps an established connection.
func NewNATS(nc *nats.Conn, prefix string) *NATS {
	if prefix == "" {
		prefix = "postroom"
	}
	return &NATS{nc: nc, prefix: prefix}
}

// DialNATS connects to url.
func DialNATS(url, prefix string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("postroom"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return NewNATS(nc, prefix), nil
}

// Subject returns the subject an event type is published on.
func (p *NATS) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *NATS) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}
	msg := &nats.Msg{
		Subject: p.Subject(event.Type),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Content-Type", "application/json")
	return p.nc.PublishMsg(msg)
}

// Close flushes pending messages and closes the connection.
func (p *NATS) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
