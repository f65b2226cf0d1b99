package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streamchat/internal/auth"
	"streamchat/internal/logger"
	"streamchat/internal/repository/db"
	userService "streamchat/internal/service/user"
	"streamchat/pkg/validation"
)

type SignupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

func newUserResponse(u *db.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func newTokenResponse(s *userService.Session) TokenResponse {
	return TokenResponse{
		AccessToken: s.Token,
		TokenType:   "bearer",
		User:        newUserResponse(s.User),
	}
}

// AuthHandlers serves sign-up, sign-in and the current-user endpoint
type AuthHandlers struct {
	validator   *validation.AuthRequestValidator
	userService *userService.UserService
}

func NewAuthHandlers(service *userService.UserService) *AuthHandlers {
	return &AuthHandlers{
		validator:   validation.NewAuthRequestValidator(),
		userService: service,
	}
}

// SignupHandler creates a new user account
func (ah *AuthHandlers) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := ah.validator.ValidateSignupRequest(req.Email, req.Password, req.Name); err != nil {
		sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	session, err := ah.userService.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			sendError(w, http.StatusBadRequest, "Email already registered", nil)
			return
		}
		logger.Log.WithError(err).Error("Error creating user")
		sendError(w, http.StatusInternalServerError, "Error creating user", err)
		return
	}

	sendJSON(w, http.StatusOK, newTokenResponse(session))
}

// SigninHandler authenticates a user and returns a JWT
func (ah *AuthHandlers) SigninHandler(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := ah.validator.ValidateSigninRequest(req.Email, req.Password); err != nil {
		sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	session, err := ah.userService.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, userService.ErrInvalidCredentials) {
			sendError(w, http.StatusUnauthorized, "Incorrect email or password", nil)
			return
		}
		logger.Log.WithError(err).Error("Error signing in")
		sendError(w, http.StatusInternalServerError, "Error signing in", err)
		return
	}

	sendJSON(w, http.StatusOK, newTokenResponse(session))
}

// MeHandler returns the authenticated user
func (ah *AuthHandlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		sendError(w, http.StatusUnauthorized, "Could not validate credentials", nil)
		return
	}
	sendJSON(w, http.StatusOK, newUserResponse(user))
}
