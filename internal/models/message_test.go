package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewMessageNormalize(t *testing.T) {
	out, err := NewMessage{AuthorType: " Fixer ", AuthorName: " Ana ", Content: "  bonjour\n"}.Normalize()
	require.NoError(t, err)
	require.Equal(t, AuthorFixer, out.AuthorType)
	require.Equal(t, "Ana", out.AuthorName)
	require.Equal(t, "bonjour", out.Content)
}

func TestNewMessageNormalizeRejectsBlankContentAndBadAuthor(t *testing.T) {
	_, err := NewMessage{AuthorType: "director", Content: " \t\n"}.Normalize()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEmptyContent))
	require.True(t, errors.Is(err, ErrInvalidAuthorType))

	var list *ValidationErrors
	require.True(t, errors.As(err, &list))
	require.Len(t, list.Errors, 2)
	require.Equal(t, "auteur_type", list.Errors[0].Field)
}

func TestUnreadByUsesCounterpart(t *testing.T) {
	msg := Message{AuthorType: AuthorProduction}
	require.True(t, msg.UnreadBy(AuthorFixer))
	require.False(t, msg.UnreadBy(AuthorProduction))

	msg.Read = true
	require.False(t, msg.UnreadBy(AuthorFixer))
	require.Equal(t, AuthorFixer, Counterpart(AuthorProduction))
}

func TestMessageWireNames(t *testing.T) {
	payload := `{"id":7,"reperage_id":3,"auteur_type":"production","auteur_nom":"Prod","contenu":"a\nb","created_at":"2026-03-01T09:30:00Z","lu":false}`
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	require.Equal(t, int64(7), msg.ID)
	require.Equal(t, int64(3), msg.ReportID)
	require.Equal(t, AuthorProduction, msg.AuthorType)
	require.Equal(t, "a\nb", msg.Content)
	require.True(t, msg.CreatedAt.Equal(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)))
}

func TestParseAuthorType(t *testing.T) {
	got, err := ParseAuthorType("PRODUCTION")
	require.NoError(t, err)
	require.Equal(t, AuthorProduction, got)

	_, err = ParseAuthorType("")
	require.ErrorIs(t, err, ErrInvalidAuthorType)
}
