// Package models defines the data types shared by the chat client and the message store.
package models

import (
	"fmt"
	"strings"
	"time"
)

// AuthorType identifies which side of a conversation wrote a message.
type AuthorType string

const (
	AuthorFixer      AuthorType = "fixer"
	AuthorProduction AuthorType = "production"
)

// Valid reports whether the author type is one of the known roles.
func (a AuthorType) Valid() bool {
	return a == AuthorFixer || a == AuthorProduction
}

// Perspective is the participant a view or unread count is computed for.
// It uses the same values as AuthorType.
type Perspective = AuthorType

// Counterpart returns the other participant of the conversation.
func Counterpart(p Perspective) AuthorType {
	if p == AuthorProduction {
		return AuthorFixer
	}
	return AuthorProduction
}

// ParseAuthorType normalizes and validates an author type string.
func ParseAuthorType(raw string) (AuthorType, error) {
	normalized := AuthorType(strings.ToLower(strings.TrimSpace(raw)))
	if !normalized.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAuthorType, raw)
	}
	return normalized, nil
}

// Message is a single chat entry between a fixer and production.
// Everything except Read is immutable once the store has created it.
type Message struct {
	// ID is the store-assigned identifier.
	ID int64 `json:"id"`

	// ReportID is the repérage that owns the conversation.
	ReportID int64 `json:"reperage_id"`

	// AuthorType is fixer or production.
	AuthorType AuthorType `json:"auteur_type"`

	// AuthorName is the display name of the author.
	AuthorName string `json:"auteur_nom"`

	// Content is free text; it may contain newlines and carries no markup.
	Content string `json:"contenu"`

	// CreatedAt is when the store accepted the message.
	CreatedAt time.Time `json:"created_at"`

	// Read flips from false to true once the counterpart has seen the message.
	Read bool `json:"lu"`
}

// UnreadBy reports whether the message is still unread from the given perspective,
// i.e. it was written by the counterpart and has not been marked read.
func (m Message) UnreadBy(p Perspective) bool {
	return m.AuthorType == Counterpart(p) && !m.Read
}

// NewMessage is the payload used to create a message.
type NewMessage struct {
	AuthorType AuthorType `json:"auteur_type"`
	AuthorName string     `json:"auteur_nom"`
	Content    string     `json:"contenu"`
}

// Normalize trims the payload and validates it.
func (n NewMessage) Normalize() (NewMessage, error) {
	out := NewMessage{
		AuthorType: AuthorType(strings.ToLower(strings.TrimSpace(string(n.AuthorType)))),
		AuthorName: strings.TrimSpace(n.AuthorName),
		Content:    strings.TrimSpace(n.Content),
	}

	validation := &ValidationErrors{}
	if !out.AuthorType.Valid() {
		validation.Add("auteur_type", ErrInvalidAuthorType)
	}
	if out.Content == "" {
		validation.Add("contenu", ErrEmptyContent)
	}
	if err := validation.Err(); err != nil {
		return NewMessage{}, err
	}
	return out, nil
}

// UnreadCount is the body returned by the unread-count endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}
