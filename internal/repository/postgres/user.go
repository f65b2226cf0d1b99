package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"streamchat/internal/logger"
	"streamchat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

// CreateUser inserts a user with an already hashed password
func (p *PostgresDB) CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*db.User, error) {
	user := db.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
	}

	query := `
	INSERT INTO users (id, email, name, password_hash)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at
	`

	err := p.conn.QueryRowContext(ctx, query, user.ID, email, name, passwordHash).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, db.ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": user.ID}).Info("Created new user")

	return &user, nil
}

// GetUserByID retrieves a user by id
func (p *PostgresDB) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	return p.getUser(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by email
func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	return p.getUser(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (p *PostgresDB) getUser(ctx context.Context, query string, arg string) (*db.User, error) {
	var user db.User
	var name sql.NullString

	err := p.conn.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	if name.Valid {
		user.Name = &name.String
	}

	return &user, nil
}
