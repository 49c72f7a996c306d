// Package events carries outbox intents from the relay to the notification consumer
// over watermill. The default transport is the in-process gochannel pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"hotel_backoffice/internal/domain"
)

const (
	TopicNotifications = "notifications"
	TopicPoisoned      = "notifications_poisoned"

	metaIntentType = "intent_type"
)

// NewGoChannel returns the in-process pub/sub used by cmd/api. Publish blocks until
// the consumer acks, so the relay only marks an intent dispatched once it has been
// delivered or parked on the poison topic. A crash before that leaves the intent
// pending and it is published again on the next run.
func NewGoChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
}

// Publisher implements app.IntentPublisher on top of a watermill publisher.
type Publisher struct {
	pub   message.Publisher
	topic string
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub, topic: TopicNotifications}
}

func (p *Publisher) PublishIntent(ctx context.Context, intent domain.OutboxIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encode intent %s: %w", intent.ID, err)
	}
	// The intent id doubles as the message uuid so redeliveries are traceable.
	msg := message.NewMessage(intent.ID, payload)
	msg.Metadata.Set(metaIntentType, string(intent.Type))
	msg.SetContext(ctx)
	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish intent %s: %w", intent.ID, err)
	}
	return nil
}

// Deliverer records a delivered intent; app.NotificationService satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, intent domain.OutboxIntent) (domain.Notification, error)
}

type RouterConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
}

// NewRouter wires the notification consumer: each message is retried with backoff,
// and a message that still fails is moved to the poison topic so the handler keeps
// going.
func NewRouter(logger watermill.LoggerAdapter, pubSub interface {
	message.Publisher
	message.Subscriber
}, d Deliverer, cfg RouterConfig) (*message.Router, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	r, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("new router: %w", err)
	}
	poison, err := middleware.PoisonQueue(pubSub, TopicPoisoned)
	if err != nil {
		return nil, fmt.Errorf("poison queue: %w", err)
	}
	r.AddMiddleware(
		middleware.Recoverer,
		poison,
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.InitialInterval,
			Multiplier:      2,
			Logger:          logger,
		}.Middleware,
	)

	r.AddNoPublisherHandler("notification_delivery", TopicNotifications, pubSub, deliverHandler(d))
	r.AddNoPublisherHandler("notification_poisoned", TopicPoisoned, pubSub, poisonedHandler(logger))
	return r, nil
}

func deliverHandler(d Deliverer) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var intent domain.OutboxIntent
		if err := json.Unmarshal(msg.Payload, &intent); err != nil {
			return fmt.Errorf("decode intent: %w", err)
		}
		if intent.ID == "" {
			intent.ID = msg.UUID
		}
		_, err := d.Deliver(msg.Context(), intent)
		return err
	}
}

// poisonedHandler logs and acks. Its ack releases the relay, which then marks the
// intent dispatched, so the payload logged here is the only trace of the lost
// notification.
func poisonedHandler(logger watermill.LoggerAdapter) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		logger.Error("notification delivery abandoned", nil, watermill.LogFields{
			"message_uuid": msg.UUID,
			"reason":       msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			"intent_type":  msg.Metadata.Get(metaIntentType),
			"payload":      string(msg.Payload),
		})
		return nil
	}
}
