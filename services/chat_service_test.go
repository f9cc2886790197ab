package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain"
	"chat-relay/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newChatFixture(t *testing.T) (*ChatService, repositories.IMessageRepository, repositories.IUserRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	messages := repositories.NewMessageRepository(db, testLogger(), nil)
	users := repositories.NewUserRepository(db)
	return NewChatService(testLogger(), messages, users), messages, users
}

func storeMessage(t *testing.T, messages repositories.IMessageRepository, sender, receiver, text string, at time.Time) {
	t.Helper()
	require.NoError(t, messages.StoreMessage(domain.Message{
		ID: uuid.New(), Text: text, Sender: sender, Receiver: receiver,
		CreatedAt: at, UpdatedAt: at,
	}))
}

func createUser(t *testing.T, users repositories.IUserRepository, username string) {
	t.Helper()
	_, err := users.CreateUser(username, username+"@relay.dev", "hashed")
	require.NoError(t, err)
}

func TestChatService_Transcript_Returns_Both_Directions_In_Order(t *testing.T) {
	req := require.New(t)
	service, messages, _ := newChatFixture(t)
	base := time.Now().UTC()

	// Given an exchange in both directions
	storeMessage(t, messages, "alice", "bob", "hi bob", base)
	storeMessage(t, messages, "bob", "alice", "hi alice", base.Add(time.Second))

	// When either side loads the transcript
	transcript, err := service.LoadTranscript("bob", "alice")

	// Then both messages come back oldest first
	req.NoError(err)
	req.Len(transcript, 2)
	req.Equal("hi bob", transcript[0].Text)
	req.Equal("hi alice", transcript[1].Text)
}

func TestChatService_Partners_Trusts_Known_List(t *testing.T) {
	req := require.New(t)
	service, _, users := newChatFixture(t)
	createUser(t, users, "bob")
	createUser(t, users, "charlie")

	// When the caller already knows its partners
	partners, err := service.LoadConversationPartners(context.Background(), "alice", []string{"bob", "charlie"})

	// Then the list is echoed back resolved, no history derivation
	req.NoError(err)
	req.Len(partners, 2)
	req.Equal("bob", partners[0].Username)
	req.Equal("charlie", partners[1].Username)
}

func TestChatService_Partners_Derived_From_History_Newest_First(t *testing.T) {
	req := require.New(t)
	service, messages, users := newChatFixture(t)
	createUser(t, users, "bob")
	createUser(t, users, "charlie")
	base := time.Now().UTC()

	// Given alice talked to bob, then charlie, then bob again
	storeMessage(t, messages, "alice", "bob", "one", base)
	storeMessage(t, messages, "charlie", "alice", "two", base.Add(time.Second))
	storeMessage(t, messages, "alice", "bob", "three", base.Add(2*time.Second))

	// When partners are derived from history
	partners, err := service.LoadConversationPartners(context.Background(), "alice", nil)

	// Then each partner appears once, most recent conversation first
	req.NoError(err)
	req.Len(partners, 2)
	req.Equal("bob", partners[0].Username)
	req.Equal("charlie", partners[1].Username)
}

func TestChatService_Partners_Cold_Start_Suggests_Others(t *testing.T) {
	req := require.New(t)
	service, _, users := newChatFixture(t)
	createUser(t, users, "alice")
	createUser(t, users, "bob")
	createUser(t, users, "charlie")

	// When a caller with no history asks for partners
	partners, err := service.LoadConversationPartners(context.Background(), "alice", nil)

	// Then the answer is never empty while other identities exist
	req.NoError(err)
	req.NotEmpty(partners)
	for _, partner := range partners {
		req.NotEqual("alice", partner.Username)
	}
}

func TestChatService_Partners_Skips_Unresolvable_Names(t *testing.T) {
	req := require.New(t)
	service, _, users := newChatFixture(t)
	createUser(t, users, "bob")

	// When the known list contains a name that no longer resolves
	partners, err := service.LoadConversationPartners(context.Background(), "alice", []string{"bob", "deleted"})

	// Then the resolvable partner survives and the rest is skipped
	req.NoError(err)
	req.Len(partners, 1)
	req.Equal("bob", partners[0].Username)
}

func TestChatService_LoadLatest_Previews_Newest(t *testing.T) {
	req := require.New(t)
	service, messages, _ := newChatFixture(t)
	base := time.Now().UTC()

	storeMessage(t, messages, "alice", "bob", "old", base)
	storeMessage(t, messages, "bob", "alice", "new", base.Add(time.Minute))

	latest, err := service.LoadLatest("alice", "bob")
	req.NoError(err)
	req.NotNil(latest)
	req.Equal("new", latest.Text)

	// And an empty conversation previews as nil
	none, err := service.LoadLatest("alice", "charlie")
	req.NoError(err)
	req.Nil(none)
}
