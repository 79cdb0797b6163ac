package eventpublisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/usecase"
)

// EventPublisher relays outbox events written alongside ledger changes to a broker.
// Delivery is at least once: an event is marked published only after the
// broker accepted it.
type EventPublisher struct {
	outboxRepo      usecase.OutboxRepository
	publisher       Publisher
	observer        Observer
	logger          zerolog.Logger
	batchSize       int
	interval        time.Duration
	retention       time.Duration
	cleanupInterval time.Duration
}

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Observer counts publish outcomes.
type Observer interface {
	ObserveOutboxPublish(ok bool)
}

// Config for EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Observer   Observer
	Logger     zerolog.Logger
	BatchSize  int           // Number of events to fetch per batch
	Interval   time.Duration // Polling interval
	// Retention is how long published events are kept. Zero keeps them forever.
	Retention       time.Duration
	CleanupInterval time.Duration
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}

	return &EventPublisher{
		outboxRepo:      cfg.OutboxRepo,
		publisher:       cfg.Publisher,
		observer:        cfg.Observer,
		logger:          cfg.Logger.With().Str("component", "event_publisher").Logger(),
		batchSize:       cfg.BatchSize,
		interval:        cfg.Interval,
		retention:       cfg.Retention,
		cleanupInterval: cfg.CleanupInterval,
	}
}

// Start begins the event publishing worker.
// It runs continuously until the context is cancelled.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().
		Int("batch_size", ep.batchSize).
		Dur("interval", ep.interval).
		Dur("retention", ep.retention).
		Msg("event publisher started")

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	cleanup := time.NewTicker(ep.cleanupInterval)
	defer cleanup.Stop()

	// Process immediately on start
	if err := ep.processEvents(ctx); err != nil {
		ep.logger.Error().Err(err).Msg("error processing events on start")
	}

	for {
		select {
		case <-ctx.Done():
			ep.logger.Info().Msg("event publisher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := ep.processEvents(ctx); err != nil {
				ep.logger.Error().Err(err).Msg("error processing events")
			}
		case <-cleanup.C:
			if err := ep.purgePublished(ctx, time.Now()); err != nil {
				ep.logger.Error().Err(err).Msg("error purging published events")
			}
		}
	}
}

// processEvents fetches and publishes a batch of unpublished events.
func (ep *EventPublisher) processEvents(ctx context.Context) error {
	events, err := ep.outboxRepo.GetUnpublished(ctx, ep.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	ep.logger.Debug().Int("count", len(events)).Msg("processing events")

	for _, event := range events {
		if err := ep.publisher.Publish(ctx, event); err != nil {
			ep.observe(false)
			ep.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			// Continue processing other events even if one fails
			continue
		}
		ep.observe(true)

		if err := ep.outboxRepo.MarkPublished(ctx, event.ID, time.Now().UTC()); err != nil {
			// The event will be sent again on the next poll.
			ep.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Msg("failed to mark event as published")
		}
	}

	return nil
}

func (ep *EventPublisher) purgePublished(ctx context.Context, now time.Time) error {
	if ep.retention <= 0 {
		return nil
	}
	return ep.outboxRepo.DeletePublished(ctx, now.Add(-ep.retention))
}

func (ep *EventPublisher) observe(ok bool) {
	if ep.observer != nil {
		ep.observer.ObserveOutboxPublish(ok)
	}
}

// Envelope is the wire form of an outbox event on every broker.
type Envelope struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Payload       map[string]any `json:"payload"`
}

func encodeEnvelope(event *domain.OutboxEvent) ([]byte, error) {
	return json.Marshal(Envelope{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OccurredAt:    event.CreatedAt,
		Payload:       event.Payload,
	})
}

// LogPublisher writes events to the log. It is the default broker.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	data, err := encodeEnvelope(event)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		RawJSON("event", data).
		Msg("event published")

	return nil
}
