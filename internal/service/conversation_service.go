package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore is the persistence ConversationService needs.
type ConversationStore interface {
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, int, error)
	CreateMessage(ctx context.Context, m *model.Message) error
}

// MessagePage is one cached page of a conversation.
type MessagePage struct {
	Messages []model.Message `json:"messages"`
	Meta     model.PageMeta  `json:"meta"`
}

// ConversationService appends messages and fans them out to live streams.
type ConversationService struct {
	repo  ConversationStore
	cache *querycache.RedisStore
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewConversationService creates a new ConversationService.
func NewConversationService(repo ConversationStore, cache *querycache.RedisStore, rdb *redis.Client, log zerolog.Logger) *ConversationService {
	return &ConversationService{
		repo:  repo,
		cache: cache,
		rdb:   rdb,
		log:   log.With().Str("component", "conversation_service").Logger(),
	}
}

// Get retrieves a conversation.
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrConversationNotFound)
	}
	return c, nil
}

// ListMessages returns a page of messages in send order.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID string, page, take int) (*MessagePage, error) {
	if _, err := s.Get(ctx, conversationID); err != nil {
		return nil, err
	}
	page, take = model.NormalizePage(page, take, 50, 200)

	key := querycache.Tag(querycache.Messages).
		WithID(conversationID).
		WithInt("page", page).
		WithInt("take", take)

	return querycache.Remember(ctx, s.cache, key, func(ctx context.Context) (*MessagePage, error) {
		msgs, total, err := s.repo.ListMessages(ctx, conversationID, take, (page-1)*take)
		if err != nil {
			return nil, err
		}
		return &MessagePage{Messages: msgs, Meta: model.NewPageMeta(page, take, total)}, nil
	})
}

// Send appends a message from actor and publishes it to stream subscribers.
func (s *ConversationService) Send(ctx context.Context, actor model.Actor, conversationID string, req model.SendMessageRequest) (*model.Message, error) {
	content := strings.TrimSpace(req.Content)
	if err := lifecycle.ValidateMessage(content, len(req.Files)); err != nil {
		return nil, err
	}
	if !actor.Can(model.PermissionConversationsWrite) {
		return nil, lifecycle.ErrForbidden
	}
	if _, err := s.Get(ctx, conversationID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conversationID,
		Content:        content,
		Files:          req.Files,
		Sender:         actor.Sender(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if _, err := s.cache.Invalidate(ctx, querycache.Tag(querycache.Messages).WithID(conversationID)); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate message cache")
	}
	s.publish(ctx, msg)
	return msg, nil
}

// Subscribe opens a Redis subscription to a conversation's new messages.
// The caller must close the returned PubSub.
func (s *ConversationService) Subscribe(ctx context.Context, conversationID string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ConversationChannel(conversationID))
}

func (s *ConversationService) publish(ctx context.Context, msg *model.Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode message for stream")
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.ConversationChannel(msg.ConversationID), raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", msg.ConversationID).Msg("Failed to publish message")
	}
}
