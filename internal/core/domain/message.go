package domain

import (
	"time"
)

// MessageRef is a lightweight handle to a mailbox message.
type MessageRef struct {
	ID       string
	ThreadID string
}

// EmailMessage is the fetched content of a mailbox message.
type EmailMessage struct {
	ID       string
	ThreadID string
	Subject  string
	Sender   string
	Body     string
}

// FailedMessage records a message whose classification failed and is
// awaiting retry on a later run.
type FailedMessage struct {
	MessageID   string    `json:"message_id"`
	Reason      string    `json:"reason"`
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
	CreatedAt   time.Time `json:"created_at"`
}
