// This file defines Message records and conversation keys.
// Messages are immutable once persisted.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is an immutable chat record between two identities.
// CreatedAt is assigned exactly once by the persistence coordinator;
// UpdatedAt exists for wire compatibility and always equals CreatedAt.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConversationKey derives the stable key of the unordered identity pair
// {a, b}. Both directions of a conversation map to the same key, so a
// single prefix scan returns the full transcript. The "|" separator is
// unambiguous only because usernames are alphanumeric, enforced at
// registration.
func ConversationKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}
