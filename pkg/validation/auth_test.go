package validation

import (
	"strings"
	"testing"
)

func TestAuthRequestValidator_ValidateEmail(t *testing.T) {
	validator := NewAuthRequestValidator()

	tests := []struct {
		name    string
		email   string
		wantErr bool
		errMsg  string
	}{
		{name: "valid email", email: "user@example.com"},
		{name: "valid email with plus", email: "user+tag@example.co.uk"},
		{name: "empty email", email: "", wantErr: true, errMsg: "email cannot be empty"},
		{name: "missing at", email: "userexample.com", wantErr: true, errMsg: "invalid email format"},
		{name: "missing tld", email: "user@example", wantErr: true, errMsg: "invalid email format"},
		{name: "too long", email: strings.Repeat("a", 250) + "@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" && err.Error() != tt.errMsg {
				t.Errorf("ValidateEmail() error message = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestAuthRequestValidator_ValidatePassword(t *testing.T) {
	validator := NewAuthRequestValidator()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid password", password: "secret123"},
		{name: "minimum length", password: "123456"},
		{name: "maximum length", password: strings.Repeat("a", 72)},
		{name: "empty", password: "", wantErr: true},
		{name: "too short", password: "12345", wantErr: true},
		{name: "too long", password: strings.Repeat("a", 73), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthRequestValidator_ValidateName(t *testing.T) {
	validator := NewAuthRequestValidator()
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name    string
		input   *string
		wantErr bool
	}{
		{name: "absent", input: nil},
		{name: "valid", input: ptr("Ann Lee")},
		{name: "blank", input: ptr("   "), wantErr: true},
		{name: "too long", input: ptr(strings.Repeat("é", 101)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthRequestValidator_ValidateSigninRequest(t *testing.T) {
	validator := NewAuthRequestValidator()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{name: "valid", email: "a@example.com", password: "x"},
		{name: "missing email", password: "x", wantErr: true},
		{name: "missing password", email: "a@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateSigninRequest(tt.email, tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSigninRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthRequestValidator_ValidateSignupRequest(t *testing.T) {
	validator := NewAuthRequestValidator()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{name: "valid", email: "a@example.com", password: "secret123"},
		{name: "bad email", email: "nope", password: "secret123", wantErr: true},
		{name: "short password", email: "a@example.com", password: "123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateSignupRequest(tt.email, tt.password, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSignupRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
