package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Coordinator sequences one send operation: validate, resolve both
// identities, durably insert the message, then best-effort relay to the
// receiver's live connection.
//
// Ordering guarantee (chosen and fixed here): persist-then-relay. The
// store insert is the durability point; once it returns, the message is
// delivered-to-history regardless of relay outcome. A failed insert
// always skips the relay, so the channel never carries a message the
// store does not have. A failed relay is never compensated; the receiver
// finds the message via history pull on reconnect.
type Coordinator struct {
	log      *slog.Logger
	validate *validator.Validate
	resolver contract.IdentityResolver
	messages repositories.IMessageRepository
	registry contract.IRegistry
	metrics  *observability.Metrics
}

func NewCoordinator(log *slog.Logger, resolver contract.IdentityResolver,
	messages repositories.IMessageRepository, registry contract.IRegistry,
	metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		log:      log,
		validate: validator.New(),
		resolver: resolver,
		messages: messages,
		registry: registry,
		metrics:  metrics,
	}
}

// Send handles one sending intent and returns the persisted message.
// NotFound on either identity aborts before the insert; the coordinator
// never proceeds with partial references. Delivery to a live connection
// is at-most-once and does not affect the returned error.
func (c *Coordinator) Send(ctx context.Context, cmd event.SendMessage) (domain.Message, error) {
	if err := c.validate.Struct(cmd); err != nil {
		c.rejected()
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	sender, err := c.resolver.ByUsername(ctx, cmd.Sender)
	if err != nil {
		c.rejected()
		return domain.Message{}, fmt.Errorf("sender %q: %w", cmd.Sender, err)
	}
	receiver, err := c.resolver.ByUsername(ctx, cmd.Receiver)
	if err != nil {
		c.rejected()
		return domain.Message{}, fmt.Errorf("receiver %q: %w", cmd.Receiver, err)
	}

	now := time.Now().UTC()
	message := domain.Message{
		ID:        uuid.New(),
		Text:      cmd.Text,
		Sender:    sender.Username,
		Receiver:  receiver.Username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Durability point. No relay happens past a failed insert.
	if err := c.messages.StoreMessage(message); err != nil {
		c.rejected()
		return domain.Message{}, err
	}
	if c.metrics != nil {
		c.metrics.MessagesPersisted.Inc()
	}

	c.relay(ctx, sender, message)
	return message, nil
}

// relay forwards the sender summary and the persisted message to the
// receiver's connection if one is registered. Failures are logged and
// counted, never returned: durability has already been achieved.
func (c *Coordinator) relay(ctx context.Context, sender domain.Identity, message domain.Message) {
	sink, ok := c.registry.Lookup(message.Receiver)
	if !ok {
		c.log.Debug("receiver offline, history only",
			"sender", message.Sender, "receiver", message.Receiver)
		return
	}

	senderInfo, err := event.NewSenderInfo(sender.Summary())
	if err != nil {
		c.relayFailed(message, err)
		return
	}
	receiveMessage, err := event.NewReceiveMessage(message)
	if err != nil {
		c.relayFailed(message, err)
		return
	}

	// loadUser first so the receiving client can materialize the
	// conversation entry before the message lands in it.
	if err := sink.Consume(ctx, senderInfo); err != nil {
		c.relayFailed(message, err)
		return
	}
	if err := sink.Consume(ctx, receiveMessage); err != nil {
		c.relayFailed(message, err)
		return
	}

	if c.metrics != nil {
		c.metrics.MessagesRelayed.Inc()
	}
}

func (c *Coordinator) relayFailed(message domain.Message, err error) {
	c.log.Warn("relay failed, message remains durable",
		"message_id", message.ID, "receiver", message.Receiver, "error", err)
	if c.metrics != nil {
		c.metrics.RelayFailures.Inc()
	}
}

func (c *Coordinator) rejected() {
	if c.metrics != nil {
		c.metrics.SendsRejected.Inc()
	}
}
