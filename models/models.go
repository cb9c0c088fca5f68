package models

import "time"

// StoredMessage is one private message held for an offline recipient.
// Rows are created when the recipient has no live session and deleted
// as a batch when the recipient next logs in.
type StoredMessage struct {
	ID        int64
	Sender    string
	Recipient string
	Body      string
	CreatedAt time.Time
}
