package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Client publishes and watches activity events. A nil *Client is valid and
// does nothing, so callers without NATS can hold one unconditionally.
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	nc, err := nats.Connect(url, connectOptions(token, logger)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{conn: nc, logger: logger}, nil
}

func connectOptions(token string, logger *slog.Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name("chatlens"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	return opts
}

// Emit publishes ev on its subject. Failures are logged, not returned: an
// event never fails the request it describes.
func (c *Client) Emit(ev Event) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Warn("event encode failed", "kind", ev.Kind, "error", err)
		return
	}
	if err := c.conn.Publish(ev.Subject(), payload); err != nil {
		c.logger.Warn("event publish failed", "subject", ev.Subject(), "error", err)
	}
}

// Watch calls fn for every event published on subject, which may use NATS
// wildcards. Payloads that are not events are logged and skipped.
func (c *Client) Watch(subject string, fn func(Event)) error {
	_, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.logger.Warn("unreadable event", "subject", msg.Subject, "error", err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.logger.Info("watching events", "subject", subject)
	return nil
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
