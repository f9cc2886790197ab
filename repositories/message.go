//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetTranscript(userA, userB string) ([]domain.Message, error)
	GetLatest(userA, userB string) (*domain.Message, error)
	GetInbox(username string) ([]domain.Message, error)
}

type MessageRepository struct {
	db         *badger.DB
	log        *slog.Logger
	inboxLimit *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, inboxLimit *int) MessageRepository {
	return MessageRepository{db: db, log: log, inboxLimit: inboxLimit}
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{conversation_key}:{timestamp_padded}:{uuid}" to:
//  1. Group both directions of a conversation under one prefix.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// A failed write surfaces as ErrStoreUnavailable; the caller must not
// relay a message whose persistence step failed.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	key := messageKey(message)
	bytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return nil
}

func messageKey(message domain.Message) string {
	return fmt.Sprintf("msg:%s:%019d:%s",
		domain.ConversationKey(message.Sender, message.Receiver),
		message.CreatedAt.UnixNano(),
		message.ID,
	)
}

// GetTranscript returns every message between the two users, both
// directions, ascending by creation time. Thanks to the padded timestamp
// in the key, a forward prefix scan yields messages already sorted.
// An empty conversation yields an empty slice, not an error.
func (m MessageRepository) GetTranscript(userA, userB string) ([]domain.Message, error) {
	prefix := []byte(fmt.Sprintf("msg:%s:", domain.ConversationKey(userA, userB)))

	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			message, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return messages, nil
}

// GetLatest returns the newest message of the conversation, used for
// conversation-list previews. Nil when the conversation is empty.
func (m MessageRepository) GetLatest(userA, userB string) (*domain.Message, error) {
	prefix := []byte(fmt.Sprintf("msg:%s:", domain.ConversationKey(userA, userB)))

	var latest *domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key of the prefix, then step back.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		it.Seek(seekKey)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		message, err := decodeItem(it.Item())
		if err != nil {
			return err
		}
		latest = &message
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return latest, nil
}

// GetInbox returns every message sent or received by the user, newest
// first, bounded by inboxLimit when configured. It scans the whole "msg:"
// keyspace; acceptable at this scale, flagged as the first thing to index
// if the store grows.
func (m MessageRepository) GetInbox(username string) ([]domain.Message, error) {
	prefix := []byte("msg:")

	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.inboxLimit != nil && len(messages) == *m.inboxLimit {
				m.log.Debug(fmt.Sprintf("Maximum of %d inbox messages reached", *m.inboxLimit))
				break
			}
			if !keyInvolves(string(it.Item().Key()), username) {
				continue
			}
			message, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	// Reverse key iteration is ordered per conversation, not globally.
	sortByCreatedAtDesc(messages)
	return messages, nil
}

// keyInvolves checks the conversation segment of "msg:{a}|{b}:..." for the
// username, avoiding a value read for messages the user is not part of.
func keyInvolves(key, username string) bool {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 {
		return false
	}
	pair := strings.SplitN(parts[1], "|", 2)
	if len(pair) < 2 {
		return false
	}
	return pair[0] == username || pair[1] == username
}

func sortByCreatedAtDesc(messages []domain.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
}

func decodeItem(item *badger.Item) (domain.Message, error) {
	var message domain.Message
	err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &message)
	})
	return message, err
}
