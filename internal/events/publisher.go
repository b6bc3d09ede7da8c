package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewGoChannel returns the in-process pub/sub used when no broker is configured.
func NewGoChannel(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
}

// Publisher encodes payloads as JSON watermill messages. A nil Publisher drops events.
type Publisher struct {
	pub    message.Publisher
	logger *slog.Logger
}

func NewPublisher(pub message.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{pub: pub, logger: logger}
}

// Publish sends events in order under one correlation id.
func (p *Publisher) Publish(ctx context.Context, correlationID string, evs ...Event) error {
	if p == nil || p.pub == nil {
		return nil
	}
	for _, ev := range evs {
		payloadData, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", ev.Topic, err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payloadData)
		msg.Metadata.Set(middleware.CorrelationIDMetadataKey, correlationID)
		msg.SetContext(ctx)

		if err := p.pub.Publish(ev.Topic, msg); err != nil {
			return fmt.Errorf("failed to publish %s: %w", ev.Topic, err)
		}
		p.logger.DebugContext(ctx, "Published event",
			slog.String("topic", ev.Topic),
			slog.String("message_id", msg.UUID),
			slog.String("correlation_id", correlationID),
		)
	}
	return nil
}

// UnmarshalPayload decodes a message published by Publisher.
func UnmarshalPayload[T any](msg *message.Message) (string, T, error) {
	var payload T
	correlationID := msg.Metadata.Get(middleware.CorrelationIDMetadataKey)
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return correlationID, payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return correlationID, payload, nil
}
