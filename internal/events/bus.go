// Package events carries domain events from producers to notification consumers.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// HandlerFunc consumes one event payload. A returned error is retried with backoff.
type HandlerFunc func(ctx context.Context, payload []byte) error

// RetryConfig bounds redelivery of a failing handler
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig retries three times starting at 100ms
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialInterval: 100 * time.Millisecond, MaxInterval: 2 * time.Second}
}

// Bus is an in-process pub/sub with one consumer handler per event kind
type Bus struct {
	pubSub *gochannel.GoChannel
	router *message.Router
	logger *zap.Logger
}

// NewBus builds the pub/sub and the router with its middleware chain
func NewBus(logger *zap.Logger, retry RetryConfig) (*Bus, error) {
	wmLogger := NewZapLoggerAdapter(logger.Named("watermill"))

	// Publish returns only once the handler has acked, so an upstream ack follows handling.
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		BlockPublishUntilSubscriberAck: true,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 15 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	b := &Bus{pubSub: pubSub, router: router, logger: logger}
	router.AddMiddleware(
		// outermost: notification work never fails the producer, so exhausted messages are acked
		b.logAndAck,
		middleware.Retry{
			MaxRetries:      retry.MaxRetries,
			InitialInterval: retry.InitialInterval,
			MaxInterval:     retry.MaxInterval,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
		middleware.Recoverer,
	)
	return b, nil
}

func (b *Bus) logAndAck(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		produced, err := h(msg)
		if err != nil {
			b.logger.Error("event handler gave up",
				zap.String("message_uuid", msg.UUID),
				zap.String("handler", message.HandlerNameFromCtx(msg.Context())),
				zap.Error(err))
			return nil, nil
		}
		return produced, nil
	}
}

// Handle registers handler as the consumer of kind
func (b *Bus) Handle(kind models.EventKind, handler HandlerFunc) {
	name := "notify_" + string(kind)
	b.router.AddNoPublisherHandler(name, kind.Topic(), b.pubSub, func(msg *message.Message) error {
		return handler(msg.Context(), msg.Payload)
	})
}

// Publish encodes payload as JSON onto the topic of kind
func (b *Bus) Publish(ctx context.Context, kind models.EventKind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}
	return b.PublishRaw(ctx, kind.Topic(), raw)
}

// PublishRaw forwards an already-encoded payload. It blocks until the subscribed handler
// has finished, retries included.
func (b *Bus) PublishRaw(ctx context.Context, topic string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Run blocks processing messages until ctx is cancelled
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once every handler is subscribed
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubSub.Close()
}
