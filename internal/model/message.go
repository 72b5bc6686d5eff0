// Package model defines data structure.
package model

import (
	"time"
)

// Sender describes who wrote a message, as seen by the current viewer.
type Sender struct {
	UserID     string
	ImageURL   string
	IsVerified bool
	IsSelf     bool
}

// ChatMessage holds information about a single message of the chat history.
// Text is markup as received from upstream; rendering decides how much of it
// survives.
type ChatMessage struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time

	// DateKey is the date portion of the upstream time string. It is the
	// grouping key; Timestamp is the ordering key inside a group.
	DateKey string
}

// Date returns the grouping key, falling back to the timestamp's calendar date
// when upstream gave no date token.
func (m ChatMessage) Date() string {
	if m.DateKey != "" {
		return m.DateKey
	}
	return m.Timestamp.Format(time.DateOnly)
}
