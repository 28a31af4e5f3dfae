package domain

import (
	"time"
)

// Communication is a single message exchanged with an applicant.
// Communications are unique by source message id.
type Communication struct {
	ID          int64
	ApplicantID int64
	MessageID   string
	ThreadID    string
	Sender      string
	Subject     string
	Body        string
	Direction   Direction
	CreatedAt   time.Time
}

type Direction string

const (
	DirectionIncoming Direction = "Incoming"
	DirectionOutgoing Direction = "Outgoing"
)
