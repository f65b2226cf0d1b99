package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// bcrypt ignores everything past 72 bytes and x/crypto rejects longer input
const maxPasswordBytes = 72

// AuthRequestValidator validates authentication-related requests
type AuthRequestValidator struct{}

// NewAuthRequestValidator creates a new AuthRequestValidator
func NewAuthRequestValidator() *AuthRequestValidator {
	return &AuthRequestValidator{}
}

// ValidateEmail validates an email address (basic validation)
func (v *AuthRequestValidator) ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}

	if len(email) > 255 {
		return fmt.Errorf("email must be at most 255 characters long, got %d", len(email))
	}

	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}

	return nil
}

// ValidatePassword validates a password
func (v *AuthRequestValidator) ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters long, got %d", len(password))
	}

	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes long, got %d", maxPasswordBytes, len(password))
	}

	return nil
}

// ValidateName validates the optional display name
func (v *AuthRequestValidator) ValidateName(name *string) error {
	if name == nil {
		return nil
	}

	if strings.TrimSpace(*name) == "" {
		return errors.New("name cannot be blank")
	}

	if n := utf8.RuneCountInString(*name); n > 100 {
		return fmt.Errorf("name must be at most 100 characters long, got %d", n)
	}

	return nil
}

// ValidateSigninRequest validates a sign-in request
func (v *AuthRequestValidator) ValidateSigninRequest(email, password string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}

	if password == "" {
		return errors.New("password cannot be empty")
	}

	return nil
}

// ValidateSignupRequest validates a sign-up request
func (v *AuthRequestValidator) ValidateSignupRequest(email, password string, name *string) error {
	if err := v.ValidateEmail(email); err != nil {
		return err
	}

	if err := v.ValidatePassword(password); err != nil {
		return err
	}

	if err := v.ValidateName(name); err != nil {
		return err
	}

	return nil
}
