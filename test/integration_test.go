package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain/event"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
	"chat-relay/sink"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

type relayFixture struct {
	registry    *runtime.Registry
	broadcaster *runtime.Broadcaster
	coordinator *runtime.Coordinator
	chats       *services.ChatService
	auth        *services.AuthService
}

func newRelayFixture(t *testing.T) relayFixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log, nil)
	registry := runtime.NewRegistry(log, runtime.ReplaceClose)

	return relayFixture{
		registry:    registry,
		broadcaster: runtime.NewBroadcaster(log, registry, nil),
		coordinator: runtime.NewCoordinator(log, users, messages, registry, nil),
		chats:       services.NewChatService(log, messages, users),
		auth:        services.NewAuthService(users, time.Hour),
	}
}

func nextEvent(t *testing.T, s *sink.ConnectionSink) event.Envelope {
	t.Helper()
	select {
	case e := <-s.Events:
		return e
	case <-time.After(time.Second):
		t.Fatal("expected an event on the sink")
		return event.Envelope{}
	}
}

func presenceOf(t *testing.T, envelope event.Envelope) []string {
	t.Helper()
	require.Equal(t, event.KindOnlineUsers, envelope.Event)
	var presence event.Presence
	require.NoError(t, json.Unmarshal(envelope.Data, &presence))
	return presence.Usernames
}

func TestRelay_Full_Session_Lifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	fixture := newRelayFixture(t)

	// Given two registered accounts
	_, _, err := fixture.auth.Register("alice", "alice@relay.dev", "s3cret!")
	req.NoError(err)
	_, _, err = fixture.auth.Register("bob", "bob@relay.dev", "s3cret!")
	req.NoError(err)

	// When alice connects
	aliceSink := sink.NewConnectionSink(16)
	fixture.registry.Register("alice", aliceSink)
	fixture.broadcaster.Announce(ctx)
	req.Equal([]string{"alice"}, presenceOf(t, nextEvent(t, aliceSink)))

	// And bob connects
	bobSink := sink.NewConnectionSink(16)
	fixture.registry.Register("bob", bobSink)
	fixture.broadcaster.Announce(ctx)
	req.Equal([]string{"alice", "bob"}, presenceOf(t, nextEvent(t, aliceSink)))
	req.Equal([]string{"alice", "bob"}, presenceOf(t, nextEvent(t, bobSink)))

	// And alice sends bob a message
	sent, err := fixture.coordinator.Send(ctx, event.SendMessage{
		Text: "hello bob", Sender: "alice", Receiver: "bob",
	})
	req.NoError(err)

	// Then bob's connection sees the sender summary, then the message
	senderInfo := nextEvent(t, bobSink)
	req.Equal(event.KindLoadUser, senderInfo.Event)
	var info event.SenderInfo
	req.NoError(json.Unmarshal(senderInfo.Data, &info))
	req.Equal("alice", info.Identity.Username)

	received := nextEvent(t, bobSink)
	req.Equal(event.KindReceiveMessage, received.Event)
	var payload event.ReceiveMessage
	req.NoError(json.Unmarshal(received.Data, &payload))
	req.Equal(sent.ID, payload.Message.ID)
	req.Equal("hello bob", payload.Message.Text)

	// When bob disconnects
	bobSink.Close()
	fixture.registry.UnregisterIfCurrent("bob", bobSink)
	fixture.broadcaster.Announce(ctx)
	req.Equal([]string{"alice"}, presenceOf(t, nextEvent(t, aliceSink)))

	// And alice writes to the now offline bob
	_, err = fixture.coordinator.Send(ctx, event.SendMessage{
		Text: "are you still there", Sender: "alice", Receiver: "bob",
	})
	req.NoError(err)

	// Then history holds the full conversation in order
	transcript, err := fixture.chats.LoadTranscript("bob", "alice")
	req.NoError(err)
	req.Len(transcript, 2)
	req.Equal("hello bob", transcript[0].Text)
	req.Equal("are you still there", transcript[1].Text)

	// And bob's partner derivation on reconnect finds alice
	partners, err := fixture.chats.LoadConversationPartners(ctx, "bob", nil)
	req.NoError(err)
	req.Len(partners, 1)
	req.Equal("alice", partners[0].Username)
}

func TestRelay_Reconnect_Replaces_Session(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	fixture := newRelayFixture(t)
	_, _, err := fixture.auth.Register("alice", "alice@relay.dev", "s3cret!")
	req.NoError(err)
	_, _, err = fixture.auth.Register("bob", "bob@relay.dev", "s3cret!")
	req.NoError(err)

	// Given bob is connected twice, second session winning
	stale := sink.NewConnectionSink(16)
	fresh := sink.NewConnectionSink(16)
	fixture.registry.Register("bob", stale)
	fixture.registry.Register("bob", fresh)

	// Then the stale session was closed by the replace policy
	select {
	case <-stale.Done():
	case <-time.After(time.Second):
		t.Fatal("stale session must be closed on replace")
	}

	// And messages land on the fresh session only
	_, err = fixture.coordinator.Send(ctx, event.SendMessage{
		Text: "which session gets this", Sender: "alice", Receiver: "bob",
	})
	req.NoError(err)
	req.Equal(event.KindLoadUser, nextEvent(t, fresh).Event)
	req.Equal(event.KindReceiveMessage, nextEvent(t, fresh).Event)

	// While the stale teardown cannot evict the fresh binding
	fixture.registry.UnregisterIfCurrent("bob", stale)
	_, ok := fixture.registry.Lookup("bob")
	req.True(ok)
}
