package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/reperage/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func TestCreateAndListMessagesInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	report, err := s.CreateReport(ctx, "Marseille docks", "Karim")
	require.NoError(t, err)

	_, err = s.CreateMessage(ctx, report.ID, models.NewMessage{AuthorType: models.AuthorFixer, AuthorName: "Karim", Content: "first"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, report.ID, models.NewMessage{AuthorType: models.AuthorProduction, AuthorName: "Prod", Content: "second\nline"})
	require.NoError(t, err)

	msgs, err := s.ListMessages(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].Content)
	require.Equal(t, "second\nline", msgs[1].Content)
	require.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
	require.False(t, msgs[1].Read)
}

func TestListMessagesOrdersByTimeAcrossFractionWidths(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	report, err := s.CreateReport(ctx, "Calanques", "Karim")
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inserts := []struct {
		content string
		at      time.Time
	}{
		{"a", base.Add(time.Second)},
		{"b", base.Add(1200 * time.Millisecond)},
		{"c", base.Add(1500 * time.Millisecond)},
		{"d", base.Add(1510 * time.Millisecond)},
		{"e", base.Add(900 * time.Millisecond)},
	}
	for _, in := range inserts {
		at := in.at
		s.now = func() time.Time { return at }
		_, err := s.CreateMessage(ctx, report.ID, models.NewMessage{AuthorType: models.AuthorFixer, Content: in.content})
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, report.ID)
	require.NoError(t, err)
	var order string
	for _, msg := range msgs {
		order += msg.Content
	}
	require.Equal(t, "eabcd", order)
	require.True(t, msgs[1].CreatedAt.Equal(base.Add(time.Second)))
}

func TestListMessagesEmptyAndUnknownReport(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	report, err := s.CreateReport(ctx, "", "")
	require.NoError(t, err)
	msgs, err := s.ListMessages(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, msgs)
	require.Empty(t, msgs)

	_, err = s.ListMessages(ctx, 999)
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestCreateMessageDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	report, err := s.CreateReport(ctx, "", "")
	require.NoError(t, err)

	msg, err := s.CreateMessage(ctx, report.ID, models.NewMessage{Content: "hi"})
	require.NoError(t, err)
	require.Equal(t, models.AuthorFixer, msg.AuthorType)
	require.Equal(t, "Anonyme", msg.AuthorName)

	_, err = s.CreateMessage(ctx, report.ID, models.NewMessage{Content: "   "})
	require.ErrorIs(t, err, ErrInvalidMessage)
	require.True(t, errors.Is(err, models.ErrEmptyContent))

	_, err = s.CreateMessage(ctx, 404, models.NewMessage{Content: "x"})
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	report, err := s.CreateReport(ctx, "", "")
	require.NoError(t, err)

	p1, err := s.CreateMessage(ctx, report.ID, models.NewMessage{AuthorType: models.AuthorProduction, Content: "a"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, report.ID, models.NewMessage{AuthorType: models.AuthorProduction, Content: "b"})
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, report.ID, models.NewMessage{AuthorType: models.AuthorFixer, Content: "c"})
	require.NoError(t, err)

	count, err := s.UnreadCount(ctx, report.ID, models.AuthorFixer)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	count, err = s.UnreadCount(ctx, report.ID, models.AuthorProduction)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	read, err := s.MarkRead(ctx, p1.ID)
	require.NoError(t, err)
	require.True(t, read.Read)

	// Idempotent.
	_, err = s.MarkRead(ctx, p1.ID)
	require.NoError(t, err)

	count, err = s.UnreadCount(ctx, report.ID, models.AuthorFixer)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = s.MarkRead(ctx, 12345)
	require.ErrorIs(t, err, ErrMessageNotFound)

	_, err = s.UnreadCount(ctx, 777, models.AuthorFixer)
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestGetReport(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateReport(ctx, " Lisbon ", "Rui")
	require.NoError(t, err)
	got, err := s.GetReport(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Lisbon", got.Title)
	require.Equal(t, "Rui", got.FixerName)

	_, err = s.GetReport(ctx, created.ID+1)
	require.ErrorIs(t, err, ErrReportNotFound)
}
