package models

import "time"

// Report is a repérage, the parent entity of a conversation.
// Only the fields the chat needs are modelled here.
type Report struct {
	ID        int64     `json:"id"`
	Title     string    `json:"titre,omitempty"`
	FixerName string    `json:"fixer_nom,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
