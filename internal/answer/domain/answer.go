package domain

import "time"

// Answer is a reply to a question. OwnerID is the posting account and never changes.
type Answer struct {
	ID         string
	QuestionID string
	OwnerID    string
	Content    string
	CreatedAt  time.Time
}
