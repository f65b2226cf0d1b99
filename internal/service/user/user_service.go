package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streamchat/internal/auth"
	"streamchat/internal/logger"
	"streamchat/internal/repository/db"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password
var ErrInvalidCredentials = errors.New("incorrect email or password")

// Session is the result of a successful sign-up or sign-in
type Session struct {
	User  *db.User
	Token string
}

// UserService handles account creation and sign-in
type UserService struct {
	db     db.Database
	tokens *auth.TokenManager
}

func NewUserService(database db.Database, tokens *auth.TokenManager) *UserService {
	return &UserService{db: database, tokens: tokens}
}

// Signup creates the account and returns an access token for it.
// A taken email yields db.ErrEmailTaken.
func (s *UserService) Signup(ctx context.Context, email, password string, name *string) (*Session, error) {
	email = normalizeEmail(email)

	if _, err := s.db.GetUserByEmail(ctx, email); err == nil {
		return nil, db.ErrEmailTaken
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.db.CreateUser(ctx, email, name, hash)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	logger.Log.WithField("user_id", user.ID).Info("User signed up")
	return &Session{User: user, Token: token}, nil
}

// Signin checks the password and returns a fresh access token
func (s *UserService) Signin(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.db.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			logger.Log.Info("Sign-in failed: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		logger.Log.WithField("user_id", user.ID).Info("Sign-in failed: invalid password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	logger.Log.WithField("user_id", user.ID).Info("User signed in")
	return &Session{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
