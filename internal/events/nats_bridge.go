package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// SubjectPrefix is shared by bus topics and JetStream subjects
const SubjectPrefix = "social."

// Publisher is what the bridge forwards into
type Publisher interface {
	PublishRaw(ctx context.Context, topic string, payload []byte) error
}

// NATSBridge consumes social.* events from JetStream and republishes them on the bus.
// Producers in other services publish there; the bus handles fan-out inside this process.
type NATSBridge struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	stream  string
	durable string
	target  Publisher
	logger  *zap.Logger
	cc      jetstream.ConsumeContext
}

// NewNATSBridge connects to url and ensures the stream exists
func NewNATSBridge(ctx context.Context, url, stream, durable string, target Publisher, logger *zap.Logger) (*NATSBridge, error) {
	nc, err := nats.Connect(url,
		nats.Name("campus-pulse-notifications"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{SubjectPrefix + ">"},
		MaxAge:   72 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", stream, err)
	}

	return &NATSBridge{nc: nc, js: js, stream: stream, durable: durable, target: target, logger: logger}, nil
}

// Start begins consuming with a durable consumer so restarts resume where they left off
func (b *NATSBridge) Start(ctx context.Context) error {
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.stream, jetstream.ConsumerConfig{
		Durable:       b.durable,
		FilterSubject: SubjectPrefix + ">",
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := b.target.PublishRaw(context.Background(), msg.Subject(), msg.Data()); err != nil {
			b.logger.Warn("forward event to bus", zap.String("subject", msg.Subject()), zap.Error(err))
			_ = msg.Nak()
			return
		}
		// a bus closing for shutdown releases the publish without handling; let JetStream redeliver
		if ctx.Err() != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	b.cc = cc

	b.logger.Info("nats bridge consuming",
		zap.String("stream", b.stream),
		zap.String("durable", b.durable))
	return nil
}

// Close stops consuming and drains the connection
func (b *NATSBridge) Close() {
	if b.cc != nil {
		b.cc.Stop()
	}
	if b.nc != nil {
		_ = b.nc.Drain()
	}
}
