package eventpublisher

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/domain"
)

type jetStreamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes events to JetStream under "{prefix}.{event_type}".
// The event ID is sent as the message ID so JetStream drops redeliveries
// within its duplicate window.
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetStreamPublisher
	prefix string
}

// NewNATSPublisher connects to url and returns a JetStream publisher.
func NewNATSPublisher(url, subjectPrefix string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("vaultledger"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	return &NATSPublisher{conn: conn, js: js, prefix: subjectPrefix}, nil
}

// Publish sends one event and waits for the stream acknowledgement.
func (p *NATSPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg, err := natsMessage(p.prefix, event)
	if err != nil {
		return err
	}
	if _, err := p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("nats publish %s: %w", event.ID, err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

func natsMessage(prefix string, event *domain.OutboxEvent) (*nats.Msg, error) {
	data, err := encodeEnvelope(event)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(prefix + "." + event.EventType)
	msg.Data = data
	msg.Header.Set("Event-Type", event.EventType)
	msg.Header.Set("Aggregate-Id", event.AggregateID)
	return msg, nil
}
