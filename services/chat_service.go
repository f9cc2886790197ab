package services

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

// coldStartLimit bounds the fallback suggestion list returned to callers
// with no message history.
const coldStartLimit = 10

type IChatService interface {
	LoadConversationPartners(ctx context.Context, caller string, knownPartners []string) ([]domain.Summary, error)
	LoadTranscript(userA, userB string) ([]domain.Message, error)
	LoadLatest(userA, userB string) (*domain.Message, error)
}

// ChatService answers the synchronous inbox/history queries used for cold
// start and reconnect catch-up. It is read-only: pull-driven, independent
// of the realtime relay.
type ChatService struct {
	log      *slog.Logger
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
}

func NewChatService(log *slog.Logger, messages repositories.IMessageRepository,
	users repositories.IUserRepository) *ChatService {
	return &ChatService{log: log, messages: messages, users: users}
}

// LoadConversationPartners resolves the caller's conversation partner list.
// A non-empty knownPartners list is trusted and echoed back unchanged (no
// server-side revalidation). Otherwise partners are derived from the
// caller's message history, newest conversation first; a caller with no
// history at all gets a bounded suggestion list of other identities
// instead of an empty answer.
func (s *ChatService) LoadConversationPartners(ctx context.Context, caller string, knownPartners []string) ([]domain.Summary, error) {
	if len(knownPartners) > 0 {
		return s.resolveAll(ctx, knownPartners)
	}

	inbox, err := s.messages.GetInbox(caller)
	if err != nil {
		return nil, err
	}

	if len(inbox) == 0 {
		others, err := s.users.ListOthers(caller, coldStartLimit)
		if err != nil {
			return nil, err
		}
		s.log.Debug("no history, returning cold-start suggestions",
			"caller", caller, "count", len(others))
		return toSummaries(others), nil
	}

	partners := lo.Uniq(lo.Map(inbox, func(message domain.Message, _ int) string {
		if message.Sender == caller {
			return message.Receiver
		}
		return message.Sender
	}))

	return s.resolveAll(ctx, partners)
}

// LoadTranscript returns the full conversation between the two users,
// both directions, ascending by creation time. An empty conversation is
// an empty list, not an error.
func (s *ChatService) LoadTranscript(userA, userB string) ([]domain.Message, error) {
	return s.messages.GetTranscript(userA, userB)
}

// LoadLatest returns the newest message of the conversation for
// conversation-list previews, nil when none exists.
func (s *ChatService) LoadLatest(userA, userB string) (*domain.Message, error) {
	return s.messages.GetLatest(userA, userB)
}

// resolveAll maps usernames to credential-free identity summaries.
// Names that no longer resolve are skipped rather than failing the whole
// partner list.
func (s *ChatService) resolveAll(ctx context.Context, usernames []string) ([]domain.Summary, error) {
	summaries := make([]domain.Summary, 0, len(usernames))
	for _, username := range usernames {
		identity, err := s.users.ByUsername(ctx, username)
		if err != nil {
			s.log.Warn("partner no longer resolvable, skipping",
				"username", username, "error", err)
			continue
		}
		summaries = append(summaries, identity.Summary())
	}
	return summaries, nil
}

func toSummaries(identities []domain.Identity) []domain.Summary {
	return lo.Map(identities, func(identity domain.Identity, _ int) domain.Summary {
		return identity.Summary()
	})
}
