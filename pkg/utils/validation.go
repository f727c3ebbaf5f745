package utils

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxCommentLength  = 500
	MinRating         = 1
	MaxRating         = 5
	MaxTitleLength    = 200
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NormalizeEmail converts email to lowercase for storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "Email is not valid"}
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	if len(password) > MaxPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at most 128 characters"}
	}
	return nil
}

// ValidateRating checks a single 1-5 star value.
func ValidateRating(field string, v int) error {
	if v < MinRating || v > MaxRating {
		return &ValidationError{Field: field, Message: "Rating must be between 1 and 5"}
	}
	return nil
}

// NormalizeComment trims the comment and enforces the length bound.
// An empty comment comes back as nil.
func NormalizeComment(comment string) (*string, error) {
	c := strings.TrimSpace(comment)
	if c == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(c) > MaxCommentLength {
		return nil, &ValidationError{Field: "comment", Message: "Comment must be at most 500 characters"}
	}
	return &c, nil
}

// RequireText trims s and reports a ValidationError when it is empty or too long.
func RequireText(field, label, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: field, Message: label + " is required"}
	}
	if utf8.RuneCountInString(s) > MaxTitleLength {
		return "", &ValidationError{Field: field, Message: label + " is too long"}
	}
	return s, nil
}
