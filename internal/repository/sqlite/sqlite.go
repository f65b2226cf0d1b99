// Package sqlite is a single-file store for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"streamchat/internal/logger"
	"streamchat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Timestamps are stored as unix nanoseconds so ordering never depends on text formatting.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT,
    password_hash TEXT NOT NULL,
    created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users(id),
    title      TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id);

CREATE TABLE IF NOT EXISTS messages (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL REFERENCES conversations(id),
    role            TEXT NOT NULL,
    content         TEXT NOT NULL,
    created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages(conversation_id, created_at);
`

var _ db.Database = (*Database)(nil)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Database struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the database file at path and applies the schema
func New(path string) (*Database, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error applying sqlite schema: %w", err)
	}

	logger.Log.WithField("path", path).Info("Opened SQLite database")

	return &Database{db: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*db.User, error) {
	user := db.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    d.now(),
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, email, name, passwordHash, user.CreatedAt.UnixNano())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, db.ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	logger.Log.WithField("user_id", user.ID).Info("Created new user")
	return &user, nil
}

func (d *Database) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	return d.getUser(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (d *Database) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	return d.getUser(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (d *Database) getUser(ctx context.Context, query, arg string) (*db.User, error) {
	var user db.User
	var name sql.NullString
	var createdAt int64

	err := d.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &name, &user.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	if name.Valid {
		user.Name = &name.String
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, nil
}

func (d *Database) CreateConversation(ctx context.Context, id, userID, title string) (*db.Conversation, error) {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, created_at) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		id, userID, title, d.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.Log.WithFields(logrus.Fields{"conversation_id": id, "user_id": userID}).Info("Created new conversation")
	}
	return d.GetConversation(ctx, id)
}

func (d *Database) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	var conv db.Conversation
	var createdAt int64

	err := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.UserID, &conv.Title, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}
	conv.CreatedAt = time.Unix(0, createdAt).UTC()
	return &conv, nil
}

func (d *Database) GetConversationsByUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at FROM conversations WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	conversations := []db.Conversation{}
	for rows.Next() {
		var conv db.Conversation
		var createdAt int64
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		conv.CreatedAt = time.Unix(0, createdAt).UTC()
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (d *Database) UpdateConversationTitle(ctx context.Context, id, title string) error {
	res, err := d.db.ExecContext(ctx, `UPDATE conversations SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("error updating conversation title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (d *Database) AddMessage(ctx context.Context, conversationID, role, content string) (*db.Message, error) {
	return addMessage(ctx, d.db, d.now(), conversationID, role, content)
}

func addMessage(ctx context.Context, q querier, now time.Time, conversationID, role, content string) (*db.Message, error) {
	msg := db.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, conversationID, role, content, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("error adding message: %w", err)
	}
	return &msg, nil
}

func (d *Database) GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error) {
	query := `SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	messages := []db.Message{}
	for rows.Next() {
		var msg db.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// NewSession checks out a dedicated connection from the pool
func (d *Database) NewSession(ctx context.Context) (db.Session, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("error acquiring connection: %w", err)
	}
	return &session{conn: conn, now: d.now}, nil
}

type session struct {
	conn *sql.Conn
	now  func() time.Time
}

func (s *session) AddMessage(ctx context.Context, conversationID, role, content string) (*db.Message, error) {
	return addMessage(ctx, s.conn, s.now(), conversationID, role, content)
}

func (s *session) Close() error {
	return s.conn.Close()
}
