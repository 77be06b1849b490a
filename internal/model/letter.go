package model

import "time"

// LetterType distinguishes player mail from system-generated mail.
type LetterType int8

const (
	LetterPlayer LetterType = iota
	LetterSystem
)

// Attachment is one item stack riding along with a Letter.
type Attachment struct {
	ItemID int32
	Amount int32
}

// Letter is one piece of mail in a character's inbox (spec.md §3).
type Letter struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Type       LetterType
	Text       string
	Expiry     time.Time
	Sent       time.Time

	Attachments []Attachment
}
