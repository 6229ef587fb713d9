package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/reperage/internal/models"
)

func sampleMessages() []models.Message {
	at := time.Date(2024, 5, 3, 14, 7, 0, 0, time.UTC)
	return []models.Message{
		{ID: 1, ReportID: 7, AuthorType: models.AuthorProduction, AuthorName: "Prod", Content: "Bonjour", CreatedAt: at},
		{ID: 2, ReportID: 7, AuthorType: models.AuthorFixer, AuthorName: "Ana", Content: "Salut", CreatedAt: at.Add(time.Minute), Read: true},
	}
}

func TestDetectSuppressesIdenticalLists(t *testing.T) {
	snap, changed := Detect(Snapshot{}, sampleMessages())
	require.True(t, changed)
	require.False(t, snap.IsZero())

	next, changed := Detect(snap, sampleMessages())
	require.False(t, changed)
	require.True(t, next.Equal(snap))
}

func TestDetectSeesEveryDisplayedField(t *testing.T) {
	base, _ := Detect(Snapshot{}, sampleMessages())

	mutations := map[string]func(m []models.Message){
		"read flag": func(m []models.Message) { m[0].Read = true },
		"content":   func(m []models.Message) { m[1].Content = "Salut!" },
		"author":    func(m []models.Message) { m[1].AuthorName = "Anna" },
		"timestamp": func(m []models.Message) { m[0].CreatedAt = m[0].CreatedAt.Add(time.Second) },
		"order":     func(m []models.Message) { m[0], m[1] = m[1], m[0] },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			msgs := sampleMessages()
			mutate(msgs)
			_, changed := Detect(base, msgs)
			require.True(t, changed)
		})
	}
}

func TestSentinelNeverMatches(t *testing.T) {
	_, changed := Detect(Snapshot{}, nil)
	require.True(t, changed, "first empty fetch still renders the placeholder")
	require.False(t, Snapshot{}.Equal(Snapshot{}))
}

func TestNilAndEmptyListsAreEqual(t *testing.T) {
	a := TakeSnapshot(nil)
	b := TakeSnapshot([]models.Message{})
	require.True(t, a.Equal(b))
}
