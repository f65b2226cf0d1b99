package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"streamchat/internal/config"
	"streamchat/internal/repository/db"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUnauthenticated covers missing, malformed, expired and forged tokens
	ErrUnauthenticated = errors.New("could not validate credentials")
	// ErrUserNotFound is returned for a valid token whose user no longer exists
	ErrUserNotFound = errors.New("user not found")
)

type contextKey string

const userContextKey contextKey = "user"

// TokenManager issues and validates HS256 access tokens whose subject is the user id
type TokenManager struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret:     cfg.JWTSecret,
		expiration: cfg.TokenExpiration,
		now:        time.Now,
	}
}

func (m *TokenManager) GenerateToken(userID string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns the user id carried by a valid token
func (m *TokenManager) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrUnauthenticated
	}
	if claims.Subject == "" {
		return "", ErrUnauthenticated
	}
	return claims.Subject, nil
}

// Authenticator resolves bearer tokens to stored users
type Authenticator struct {
	tokens *TokenManager
	db     db.Database
}

func NewAuthenticator(tokens *TokenManager, database db.Database) *Authenticator {
	return &Authenticator{tokens: tokens, db: database}
}

// Authenticate returns the user for token, ErrUnauthenticated or ErrUserNotFound
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*db.User, error) {
	userID, err := a.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := a.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func WithUser(ctx context.Context, user *db.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user stored by the auth middleware
func UserFromContext(ctx context.Context) (*db.User, bool) {
	user, ok := ctx.Value(userContextKey).(*db.User)
	return user, ok && user != nil
}
