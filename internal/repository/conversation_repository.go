package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/abroad-backend/internal/model"
)

// ConversationRepository handles conversations and their messages.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// GetByID retrieves a conversation.
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	c := &model.Conversation{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, application_id, type, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.ApplicationID, &c.Type, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var (
		m     model.Message
		files []byte
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Content, &files,
		&m.Sender.ID, &m.Sender.Name, &m.Sender.Role, &m.CreatedAt); err != nil {
		return nil, err
	}
	if decoded := model.DecodeSection[[]model.StoredFile](files); decoded != nil {
		m.Files = *decoded
	} else {
		m.Files = []model.StoredFile{}
	}
	return &m, nil
}

// ListMessages returns a page of messages in the order they were sent.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, content, files, sender_id, sender_name, sender_role, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *m)
	}
	return messages, total, rows.Err()
}

// CreateMessage appends a message. Messages are never updated.
func (r *ConversationRepository) CreateMessage(ctx context.Context, m *model.Message) error {
	if m.Files == nil {
		m.Files = []model.StoredFile{}
	}
	files, err := json.Marshal(m.Files)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, content, files, sender_id, sender_name, sender_role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		m.ConversationID, m.Content, files, m.Sender.ID, m.Sender.Name, m.Sender.Role,
	).Scan(&m.ID, &m.CreatedAt)
}
