package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyContent is returned when a question or answer body is blank.
var ErrEmptyContent = errors.New("content is required")

// Question is a user-posted question. OwnerID is the posting account and never changes.
type Question struct {
	ID        string
	OwnerID   string
	Content   string
	CreatedAt time.Time
}

// ValidateContent trims content and rejects blank input.
func ValidateContent(content string) (string, error) {
	c := strings.TrimSpace(content)
	if c == "" {
		return "", ErrEmptyContent
	}
	return c, nil
}
