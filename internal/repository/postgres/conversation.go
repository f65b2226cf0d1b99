package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"streamchat/internal/logger"
	"streamchat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateConversation inserts a conversation with a caller supplied id.
// If the id already exists the stored row is returned unchanged.
func (p *PostgresDB) CreateConversation(ctx context.Context, id, userID, title string) (*db.Conversation, error) {
	query := `
	INSERT INTO conversations (id, user_id, title)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO NOTHING
	`

	res, err := p.conn.ExecContext(ctx, query, id, userID, title)
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.Log.WithFields(logrus.Fields{"conversation_id": id, "user_id": userID}).Info("Created new conversation")
	}

	return p.GetConversation(ctx, id)
}

// GetConversationsByUser retrieves all conversations for a user
func (p *PostgresDB) GetConversationsByUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	query := `
	SELECT id, user_id, title, created_at
	FROM conversations
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	rows, err := p.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	conversations := []db.Conversation{}
	for rows.Next() {
		var conv db.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}

// GetConversation retrieves a specific conversation
func (p *PostgresDB) GetConversation(ctx context.Context, convID string) (*db.Conversation, error) {
	var conv db.Conversation
	query := `SELECT id, user_id, title, created_at FROM conversations WHERE id = $1`

	err := p.conn.QueryRowContext(ctx, query, convID).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}

	return &conv, nil
}

// UpdateConversationTitle overwrites the title of a conversation
func (p *PostgresDB) UpdateConversationTitle(ctx context.Context, convID, title string) error {
	res, err := p.conn.ExecContext(ctx, `UPDATE conversations SET title = $1 WHERE id = $2`, title, convID)
	if err != nil {
		return fmt.Errorf("error updating conversation title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// AddMessage adds a message to a conversation
func (p *PostgresDB) AddMessage(ctx context.Context, conversationID, role, content string) (*db.Message, error) {
	return addMessage(ctx, p.conn, conversationID, role, content)
}

func addMessage(ctx context.Context, q querier, conversationID, role, content string) (*db.Message, error) {
	msg := db.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}

	query := `
	INSERT INTO messages (id, conversation_id, role, content)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at
	`

	if err := q.QueryRowContext(ctx, query, msg.ID, conversationID, role, content).Scan(&msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("error adding message: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"conversation_id": conversationID, "role": role}).Debug("Added message")

	return &msg, nil
}

// messagesQuery orders by creation time; seq keeps insertion order for equal timestamps
func messagesQuery(limit int) string {
	query := `
	SELECT id, conversation_id, role, content, created_at
	FROM messages
	WHERE conversation_id = $1
	ORDER BY created_at ASC, seq ASC
	`
	if limit > 0 {
		query += ` LIMIT $2`
	}
	return query
}

// GetConversationMessages retrieves the messages of a conversation ordered by creation time
func (p *PostgresDB) GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error) {
	query := messagesQuery(limit)
	args := []any{conversationID}
	if limit > 0 {
		args = append(args, limit)
	}

	rows, err := p.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	messages := []db.Message{}
	for rows.Next() {
		var msg db.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
