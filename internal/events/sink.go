package events

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// NewLogRouter builds a router that writes every engine event to logger. Delivery to
// players (Discord, mail) plugs in as further handlers on the same router.
func NewLogRouter(sub message.Subscriber, logger *slog.Logger) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(middleware.Recoverer)

	for _, topic := range Topics {
		router.AddNoPublisherHandler("log_"+topic, topic, sub, func(msg *message.Message) error {
			logger.Info("Engine event",
				slog.String("topic", topic),
				slog.String("message_id", msg.UUID),
				slog.String("correlation_id", msg.Metadata.Get(middleware.CorrelationIDMetadataKey)),
				slog.String("payload", string(msg.Payload)),
			)
			return nil
		})
	}
	return router, nil
}
