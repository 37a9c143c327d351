//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	rt "chat-relay/runtime"
)

// VoteBroadcastScope decides who sees vote tallies change. Under "global"
// every vote update reaches every connection, which reveals the existence
// of private messages to non-recipients; "audience" restricts updates on a
// private message to its author and recipients.
type VoteBroadcastScope string

const (
	VoteScopeGlobal   VoteBroadcastScope = "global"
	VoteScopeAudience VoteBroadcastScope = "audience"
)

type IChatService interface {
	Join(identity chat.Identity, sink contract.EventSink)
	Leave(sink contract.EventSink)
	PostPublic(ctx context.Context, cmd chat.PostPublicCommand) (chat.Message, error)
	PostPrivate(ctx context.Context, cmd chat.PostPrivateCommand) (chat.Message, error)
	Vote(ctx context.Context, cmd chat.VoteCommand) (chat.Message, error)
	ListPublic() ([]chat.Message, error)
	ListPrivateFor(identityID string) ([]chat.Message, error)
}

// ChatService is the single entry point for inbound events once a
// connection is active. The flow is always validate → persist → fan out:
// persistence success is the commit point, and no in-memory state is
// mutated before the store confirms.
type ChatService struct {
	messages         repositories.IMessageRepository
	users            repositories.IUserRepository
	registry         contract.IRegistry
	router           contract.IRouter
	moderator        *moderation.Moderator
	voteLocks        *rt.KeyedMutex
	voteScope        VoteBroadcastScope
	maxContentLength int
	log              *slog.Logger
}

func NewChatService(
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	registry contract.IRegistry,
	router contract.IRouter,
	moderator *moderation.Moderator,
	voteScope VoteBroadcastScope,
	maxContentLength int,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		messages:         messages,
		users:            users,
		registry:         registry,
		router:           router,
		moderator:        moderator,
		voteLocks:        rt.NewKeyedMutex(),
		voteScope:        voteScope,
		maxContentLength: maxContentLength,
		log:              log,
	}
}

func (s *ChatService) Join(identity chat.Identity, sink contract.EventSink) {
	s.registry.Register(identity, sink)
}

func (s *ChatService) Leave(sink contract.EventSink) {
	s.registry.Unregister(sink)
}

// PostPublic persists a broadcast message and fans it out to every
// registered connection, sender included.
func (s *ChatService) PostPublic(ctx context.Context, cmd chat.PostPublicCommand) (chat.Message, error) {
	content, err := s.sanitize(cmd.Sender, cmd.Content)
	if err != nil {
		return chat.Message{}, err
	}

	message, err := s.messages.CreateMessage(chat.Message{
		Author:    cmd.Sender,
		Content:   content,
		CreatedAt: createdAt(cmd.CreatedAt),
	})
	if err != nil {
		return chat.Message{}, err
	}

	s.router.Route(ctx, event.MessageCreated{Message: message}, contract.Everybody())
	return message, nil
}

// PostPrivate resolves every recipient username before anything is
// persisted; a single unknown name rejects the whole operation so there is
// never a partial send. The sender always belongs to the audience and sees
// its own message come back through the fan-out.
func (s *ChatService) PostPrivate(ctx context.Context, cmd chat.PostPrivateCommand) (chat.Message, error) {
	content, err := s.sanitize(cmd.Sender, cmd.Content)
	if err != nil {
		return chat.Message{}, err
	}

	names := lo.Uniq(cmd.Recipients)
	if len(names) == 0 {
		return chat.Message{}, errors.ErrRecipientNotFound
	}

	recipients, err := s.users.FindUsersByName(names)
	if err != nil {
		return chat.Message{}, err
	}
	if len(recipients) != len(names) {
		return chat.Message{}, errors.ErrRecipientNotFound
	}

	message, err := s.messages.CreateMessage(chat.Message{
		Author:    cmd.Sender,
		Content:   content,
		CreatedAt: createdAt(cmd.CreatedAt),
		Recipients: lo.Map(recipients, func(identity chat.Identity, _ int) string {
			return identity.ID
		}),
	})
	if err != nil {
		return chat.Message{}, err
	}

	s.router.Route(ctx, event.MessageCreated{Message: message},
		contract.Only(message.AudienceIDs()...))
	return message, nil
}

// Vote serializes against other votes on the same message, applies the
// toggle, persists the new ledger, then broadcasts the updated tallies.
// Votes on different messages run fully in parallel.
func (s *ChatService) Vote(ctx context.Context, cmd chat.VoteCommand) (chat.Message, error) {
	if !cmd.Verdict.Valid() {
		return chat.Message{}, errors.ErrInvalidVerdict
	}

	key := cmd.MessageID.String()
	s.voteLocks.Lock(key)
	defer s.voteLocks.Unlock(key)

	message, err := s.messages.FindMessage(cmd.MessageID)
	if err != nil {
		return chat.Message{}, err
	}

	if message.ApplyVote(cmd.Voter.ID, cmd.Verdict) {
		message, err = s.messages.UpdateMessage(message)
		if err != nil {
			return chat.Message{}, err
		}
	}

	s.router.Route(ctx, event.MessageUpdated{Message: message}, s.voteAudience(message))
	return message, nil
}

func (s *ChatService) ListPublic() ([]chat.Message, error) {
	return s.messages.ListPublic()
}

func (s *ChatService) ListPrivateFor(identityID string) ([]chat.Message, error) {
	return s.messages.ListPrivateFor(identityID)
}

// voteAudience applies the configured scope. Under the default global
// scope even votes on private messages reach everyone.
func (s *ChatService) voteAudience(message chat.Message) contract.Audience {
	if s.voteScope == VoteScopeAudience && !message.IsPublic() {
		return contract.Only(message.AudienceIDs()...)
	}
	return contract.Everybody()
}

// sanitize validates the raw content and runs it through moderation.
func (s *ChatService) sanitize(sender chat.Identity, raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", errors.ErrEmptyContent
	}
	if s.maxContentLength > 0 && len([]rune(content)) > s.maxContentLength {
		return "", errors.ErrContentTooLong
	}

	if s.moderator == nil {
		return content, nil
	}

	sanitized, foundWords := s.moderator.Censor(content)
	if len(foundWords) > 0 {
		info := whatlanggo.Detect(content)
		s.log.Warn("censored message content",
			"author", sender.Username,
			"lang", info.Lang.Iso6391(),
			"words", len(foundWords))
	}
	return sanitized, nil
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
