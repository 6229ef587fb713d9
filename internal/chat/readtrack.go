package chat

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/tOgg1/reperage/internal/models"
)

const defaultMarkConcurrency = 8

// ReadAPI is the subset of the transport used by read tracking.
type ReadAPI interface {
	MarkRead(ctx context.Context, messageID int64) error
	UnreadCount(ctx context.Context, reportID int64, perspective models.Perspective) (int, error)
}

// MarkResult is the outcome of one mark-read request.
type MarkResult struct {
	MessageID int64
	Err       error
}

// ReadResult is the outcome of a read-tracking pass.
type ReadResult struct {
	Marks     []MarkResult
	Unread    int
	UnreadErr error
}

// Failed counts mark-read requests that returned an error.
func (r ReadResult) Failed() int {
	n := 0
	for _, m := range r.Marks {
		if m.Err != nil {
			n++
		}
	}
	return n
}

// PendingReads returns the counterpart's unread messages, one per id.
func PendingReads(msgs []models.Message, perspective models.Perspective) []models.Message {
	seen := make(map[int64]struct{}, len(msgs))
	out := make([]models.Message, 0)
	for _, msg := range msgs {
		if !msg.UnreadBy(perspective) {
			continue
		}
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		out = append(out, msg)
	}
	return out
}

// Coordinator marks messages read and refreshes the unread count.
type Coordinator struct {
	api         ReadAPI
	perspective models.Perspective
	concurrency int
	logger      zerolog.Logger
}

// NewCoordinator builds a coordinator acting for perspective.
func NewCoordinator(api ReadAPI, perspective models.Perspective, concurrency int, logger zerolog.Logger) *Coordinator {
	if concurrency <= 0 {
		concurrency = defaultMarkConcurrency
	}
	return &Coordinator{api: api, perspective: perspective, concurrency: concurrency, logger: logger}
}

// Run issues one mark-read per pending message. Requests are independent: a
// failure is logged and does not stop the others. Once every request has
// settled, the unread count is fetched once.
func (c *Coordinator) Run(ctx context.Context, reportID int64, pending []models.Message) ReadResult {
	var result ReadResult
	if len(pending) > 0 {
		p := pool.NewWithResults[MarkResult]().WithMaxGoroutines(c.concurrency)
		for _, msg := range pending {
			id := msg.ID
			p.Go(func() MarkResult {
				return MarkResult{MessageID: id, Err: c.api.MarkRead(ctx, id)}
			})
		}
		result.Marks = p.Wait()
		for _, m := range result.Marks {
			if m.Err != nil {
				c.logger.Warn().Err(m.Err).Int64("message_id", m.MessageID).Msg("mark read failed")
			}
		}
	}

	count, err := c.api.UnreadCount(ctx, reportID, c.perspective)
	if err != nil {
		c.logger.Warn().Err(err).Msg("unread count refresh failed")
		result.UnreadErr = err
		return result
	}
	result.Unread = count
	return result
}
