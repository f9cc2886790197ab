package runtime

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func identity(username string) domain.Identity {
	return domain.Identity{ID: uuid.New(), Username: username, Email: username + "@relay.dev", Status: domain.StatusOnline}
}

func TestCoordinator_Send_Relays_To_Registered_Receiver(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockIdentityResolver(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry(testLogger(), ReplaceDrop)
	coordinator := NewCoordinator(testLogger(), resolver, messages, registry, nil)

	alice := identity("alice")
	bob := identity("bob")
	bobSink := &fakeSink{}

	// Given both identities exist and the receiver is connected
	registry.Register("bob", bobSink)
	resolver.EXPECT().ByUsername(gomock.Any(), "alice").Return(alice, nil)
	resolver.EXPECT().ByUsername(gomock.Any(), "bob").Return(bob, nil)
	messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)

	// When alice sends a message to bob
	sent, err := coordinator.Send(context.Background(), event.SendMessage{
		Text: "hello bob", Sender: "alice", Receiver: "bob",
	})

	// Then the message is persisted and relayed, sender summary first
	req.NoError(err)
	req.Equal("hello bob", sent.Text)
	req.Equal("alice", sent.Sender)
	req.Equal("bob", sent.Receiver)

	envelopes := bobSink.Envelopes()
	req.Len(envelopes, 2)
	req.Equal(event.KindLoadUser, envelopes[0].Event)
	req.Equal(event.KindReceiveMessage, envelopes[1].Event)

	var received event.ReceiveMessage
	req.NoError(json.Unmarshal(envelopes[1].Data, &received))
	req.Equal("hello bob", received.Message.Text)
	req.Equal(sent.ID, received.Message.ID)
}

func TestCoordinator_Send_Persists_When_Receiver_Offline(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockIdentityResolver(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry(testLogger(), ReplaceDrop)
	coordinator := NewCoordinator(testLogger(), resolver, messages, registry, nil)

	// Given the receiver exists but has no live connection
	resolver.EXPECT().ByUsername(gomock.Any(), "alice").Return(identity("alice"), nil)
	resolver.EXPECT().ByUsername(gomock.Any(), "bob").Return(identity("bob"), nil)
	var stored domain.Message
	messages.EXPECT().StoreMessage(gomock.Any()).DoAndReturn(func(m domain.Message) error {
		stored = m
		return nil
	})

	// When the send happens
	sent, err := coordinator.Send(context.Background(), event.SendMessage{
		Text: "see you later", Sender: "alice", Receiver: "bob",
	})

	// Then the message is durable even though nobody was notified
	req.NoError(err)
	req.Equal(sent.ID, stored.ID)
	req.Equal("see you later", stored.Text)
}

func TestCoordinator_Send_Aborts_On_Unknown_Receiver(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockIdentityResolver(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry(testLogger(), ReplaceDrop)
	coordinator := NewCoordinator(testLogger(), resolver, messages, registry, nil)

	// Given the receiver does not resolve
	resolver.EXPECT().ByUsername(gomock.Any(), "alice").Return(identity("alice"), nil)
	resolver.EXPECT().ByUsername(gomock.Any(), "ghost").Return(domain.Identity{}, errors.ErrIdentityNotFound)

	// When the send happens
	_, err := coordinator.Send(context.Background(), event.SendMessage{
		Text: "anyone there", Sender: "alice", Receiver: "ghost",
	})

	// Then nothing is persisted and the caller learns why
	req.ErrorIs(err, errors.ErrIdentityNotFound)
	req.Contains(err.Error(), "ghost")
}

func TestCoordinator_Send_Skips_Relay_When_Store_Fails(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockIdentityResolver(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry(testLogger(), ReplaceDrop)
	coordinator := NewCoordinator(testLogger(), resolver, messages, registry, nil)

	bobSink := &fakeSink{}
	registry.Register("bob", bobSink)
	resolver.EXPECT().ByUsername(gomock.Any(), "alice").Return(identity("alice"), nil)
	resolver.EXPECT().ByUsername(gomock.Any(), "bob").Return(identity("bob"), nil)

	// Given the store is unavailable
	messages.EXPECT().StoreMessage(gomock.Any()).Return(errors.ErrStoreUnavailable)

	// When the send happens
	_, err := coordinator.Send(context.Background(), event.SendMessage{
		Text: "will not arrive", Sender: "alice", Receiver: "bob",
	})

	// Then the error surfaces and no relay was attempted
	req.ErrorIs(err, errors.ErrStoreUnavailable)
	req.Empty(bobSink.Envelopes())
}

func TestCoordinator_Send_Rejects_Invalid_Payload(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockIdentityResolver(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry(testLogger(), ReplaceDrop)
	coordinator := NewCoordinator(testLogger(), resolver, messages, registry, nil)

	// When the text is empty, validation fires before any resolution
	_, err := coordinator.Send(context.Background(), event.SendMessage{
		Text: "", Sender: "alice", Receiver: "bob",
	})

	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestCoordinator_Send_Survives_Failing_Sink(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockIdentityResolver(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	registry := NewRegistry(testLogger(), ReplaceDrop)
	coordinator := NewCoordinator(testLogger(), resolver, messages, registry, nil)

	registry.Register("bob", sink)
	resolver.EXPECT().ByUsername(gomock.Any(), "alice").Return(identity("alice"), nil)
	resolver.EXPECT().ByUsername(gomock.Any(), "bob").Return(identity("bob"), nil)
	messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)

	// Given the receiver's connection refuses the push
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(stderrors.New("buffer full"))

	// When the send happens
	_, err := coordinator.Send(context.Background(), event.SendMessage{
		Text: "durable anyway", Sender: "alice", Receiver: "bob",
	})

	// Then delivery is best-effort: the send itself still succeeds
	req.NoError(err)
}
