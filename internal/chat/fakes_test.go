package chat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tOgg1/reperage/internal/chatapi"
	"github.com/tOgg1/reperage/internal/models"
)

type fakeAPI struct {
	mu        sync.Mutex
	messages  map[int64][]models.Message
	gates     map[int64]chan struct{}
	failMark  map[int64]bool
	sendErr   error
	nextID    int64
	listCalls map[int64]int
	markCalls []int64
	calls     []string
	listed    chan int64
	sent      []models.NewMessage
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		messages:  make(map[int64][]models.Message),
		gates:     make(map[int64]chan struct{}),
		failMark:  make(map[int64]bool),
		listCalls: make(map[int64]int),
		listed:    make(chan int64, 256),
		nextID:    100,
	}
}

func (f *fakeAPI) addReport(id int64, msgs ...models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range msgs {
		msgs[i].ReportID = id
	}
	f.messages[id] = append(f.messages[id], msgs...)
}

func (f *fakeAPI) gate(reportID int64) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[reportID] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeAPI) setFailMark(messageID int64, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMark[messageID] = fail
}

func (f *fakeAPI) lists(reportID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[reportID]
}

func (f *fakeAPI) marked() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.markCalls...)
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) ListMessages(ctx context.Context, reportID int64) ([]models.Message, error) {
	f.mu.Lock()
	f.listCalls[reportID]++
	f.calls = append(f.calls, fmt.Sprintf("list %d", reportID))
	gate := f.gates[reportID]
	f.mu.Unlock()

	select {
	case f.listed <- reportID:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", chatapi.ErrNetwork, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	msgs, ok := f.messages[reportID]
	if !ok {
		return nil, fmt.Errorf("list: %w", chatapi.ErrNotFound)
	}
	return append([]models.Message{}, msgs...), nil
}

func (f *fakeAPI) SendMessage(_ context.Context, reportID int64, msg models.NewMessage) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("send %d", reportID))
	if f.sendErr != nil {
		return models.Message{}, f.sendErr
	}
	if _, ok := f.messages[reportID]; !ok {
		return models.Message{}, fmt.Errorf("send: %w", chatapi.ErrNotFound)
	}
	f.sent = append(f.sent, msg)
	f.nextID++
	out := models.Message{
		ID:         f.nextID,
		ReportID:   reportID,
		AuthorType: msg.AuthorType,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		CreatedAt:  time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC),
	}
	f.messages[reportID] = append(f.messages[reportID], out)
	return out, nil
}

func (f *fakeAPI) MarkRead(_ context.Context, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls = append(f.markCalls, messageID)
	f.calls = append(f.calls, fmt.Sprintf("mark %d", messageID))
	if f.failMark[messageID] {
		return fmt.Errorf("mark %d: %w", messageID, chatapi.ErrNetwork)
	}
	for reportID, msgs := range f.messages {
		for i := range msgs {
			if msgs[i].ID == messageID {
				f.messages[reportID][i].Read = true
			}
		}
	}
	return nil
}

func (f *fakeAPI) UnreadCount(_ context.Context, reportID int64, perspective models.Perspective) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("unread %d", reportID))
	msgs, ok := f.messages[reportID]
	if !ok {
		return 0, fmt.Errorf("unread: %w", chatapi.ErrNotFound)
	}
	n := 0
	for _, m := range msgs {
		if m.UnreadBy(perspective) {
			n++
		}
	}
	return n, nil
}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

type fakeTicker struct {
	every   time.Duration
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{every: d, ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) live() []*fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*fakeTicker, 0, 1)
	for _, t := range c.tickers {
		if !t.stopped.Load() {
			out = append(out, t)
		}
	}
	return out
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) sink(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) ofKind(kind UpdateKind) []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Update, 0)
	for _, u := range r.updates {
		if u.Kind == kind {
			out = append(out, u)
		}
	}
	return out
}
