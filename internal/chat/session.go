package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/tOgg1/reperage/internal/chatapi"
	"github.com/tOgg1/reperage/internal/logging"
	"github.com/tOgg1/reperage/internal/models"
)

const (
	DefaultForegroundInterval = 5 * time.Second
	DefaultBackgroundInterval = 10 * time.Second

	eventBuffer = 32
)

var (
	// ErrSessionClosed is returned by intents posted after Run has returned.
	ErrSessionClosed = errors.New("chat session closed")
	// ErrNoReport is returned by Submit when no report is selected.
	ErrNoReport = fmt.Errorf("%w: no report selected", chatapi.ErrValidation)

	errAlreadyRunning = errors.New("chat session already running")
)

// API is the transport used by a session.
type API interface {
	ListMessages(ctx context.Context, reportID int64) ([]models.Message, error)
	SendMessage(ctx context.Context, reportID int64, msg models.NewMessage) (models.Message, error)
	ReadAPI
}

// NoticeLevel grades a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a transient message for the user.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// UpdateKind tags an Update.
type UpdateKind int

const (
	// UpdateMessages carries a new Display.
	UpdateMessages UpdateKind = iota
	// UpdateUnread carries a new unread count.
	UpdateUnread
	// UpdateNotice carries a Notice.
	UpdateNotice
	// UpdateSent reports that a submitted message was accepted; input can be cleared.
	UpdateSent
	// UpdateReport reports that the session switched report.
	UpdateReport
)

// Update is pushed to the sink from the session loop.
type Update struct {
	Kind     UpdateKind
	ReportID int64
	Display  Display
	Unread   int
	Notice   Notice
	Message  models.Message
}

// Sink receives updates. It is called from the session goroutine and must not
// call back into the session synchronously.
type Sink func(Update)

// ChannelSink forwards updates to ch until done is closed.
func ChannelSink(ch chan<- Update, done <-chan struct{}) Sink {
	return func(u Update) {
		select {
		case ch <- u:
		case <-done:
		}
	}
}

// Config configures a Session.
type Config struct {
	ReportID int64
	// Open starts the session with the panel open.
	Open               bool
	Perspective        models.Perspective
	AuthorName         string
	ForegroundInterval time.Duration
	BackgroundInterval time.Duration
	Language           Language
	Location           *time.Location
	MarkConcurrency    int
	Clock              Clock
	Logger             *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if !c.Perspective.Valid() {
		c.Perspective = models.AuthorFixer
	}
	if c.ForegroundInterval <= 0 {
		c.ForegroundInterval = DefaultForegroundInterval
	}
	if c.BackgroundInterval <= 0 {
		c.BackgroundInterval = DefaultBackgroundInterval
	}
	if c.Language == "" {
		c.Language = LanguageFR
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Clock == nil {
		c.Clock = RealClock()
	}
	if c.ReportID < 0 {
		c.ReportID = 0
	}
	return c
}

type intentKind int

const (
	intentOpen intentKind = iota
	intentClose
	intentToggle
	intentSwitch
	intentSubmit
	intentRefresh
)

type intentEvent struct {
	kind     intentKind
	reportID int64
	content  string
	reply    chan error
}

type fetchDone struct {
	reportID int64
	forced   bool
	msgs     []models.Message
	err      error
}

type readDone struct {
	reportID int64
	ids      []int64
	result   ReadResult
}

type unreadDone struct {
	reportID int64
	count    int
	err      error
}

type sendDone struct {
	reportID int64
	msg      models.Message
	err      error
}

type stateQuery struct {
	reply chan State
}

type tickEvent struct {
	class TimerClass
}

// Session drives the chat for one client. All state is owned by the goroutine
// running Run; other methods only post intents to it.
type Session struct {
	api      API
	sink     Sink
	cfg      Config
	renderer *Renderer
	reads    *Coordinator
	base     zerolog.Logger
	logger   zerolog.Logger

	events  chan any
	done    chan struct{}
	started atomic.Bool

	// Owned by the loop goroutine.
	state         State
	ticker        Ticker
	tickClass     TimerClass
	fetchingFor   int64
	pendingForce  bool
	refreshingFor int64
	marking       map[int64]struct{}
	inflight      conc.WaitGroup

	// afterEvent observes each handled event; tests use it to synchronize.
	afterEvent func(ev any)
}

// NewSession builds a session. Nothing happens until Run is called.
func NewSession(api API, sink Sink, cfg Config) *Session {
	cfg = cfg.withDefaults()
	base := logging.Component("chat")
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	s := &Session{
		api:      api,
		sink:     sink,
		cfg:      cfg,
		renderer: NewRenderer(cfg.Location, cfg.Language),
		base:     base,
		events:   make(chan any, eventBuffer),
		done:     make(chan struct{}),
		state:    State{ReportID: cfg.ReportID, Open: cfg.Open},
		marking:  make(map[int64]struct{}),
	}
	s.logger = logging.WithReport(base, cfg.ReportID)
	s.reads = NewCoordinator(api, cfg.Perspective, cfg.MarkConcurrency, base)
	return s
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run processes intents, timer fires and network results until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer func() {
		s.stopTimer()
		close(s.done)
		s.inflight.Wait()
	}()

	s.logger.Debug().Str("mode", s.state.Mode().String()).Msg("chat session started")
	s.transition(ctx, Start)

	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C()
		}
		select {
		case <-ctx.Done():
			s.logger.Debug().Msg("chat session stopped")
			return nil
		case <-tick:
			s.handle(ctx, tickEvent{class: s.tickClass})
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

// Open opens the panel.
func (s *Session) Open() error { return s.post(intentEvent{kind: intentOpen}) }

// Close closes the panel.
func (s *Session) Close() error { return s.post(intentEvent{kind: intentClose}) }

// Toggle flips the panel.
func (s *Session) Toggle() error { return s.post(intentEvent{kind: intentToggle}) }

// Refresh forces one fetch of the current report.
func (s *Session) Refresh() error { return s.post(intentEvent{kind: intentRefresh}) }

// SwitchReport moves the session to reportID. Zero selects no report.
func (s *Session) SwitchReport(reportID int64) error {
	return s.post(intentEvent{kind: intentSwitch, reportID: reportID})
}

// Submit sends content as a message from the session's perspective. Blank
// content and a missing report are rejected before any request; the outcome
// of the send itself arrives as updates.
func (s *Session) Submit(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("%w: %w", chatapi.ErrValidation, models.ErrEmptyContent)
	}
	reply := make(chan error, 1)
	if err := s.post(intentEvent{kind: intentSubmit, content: trimmed, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// State returns a copy of the session record.
func (s *Session) State(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := s.post(stateQuery{reply: reply}); err != nil {
		return State{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return State{}, ErrSessionClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (s *Session) post(ev any) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case intentEvent:
		s.handleIntent(ctx, ev)
	case fetchDone:
		s.onFetch(ctx, ev)
	case readDone:
		s.onRead(ev)
	case unreadDone:
		s.onUnread(ev)
	case sendDone:
		s.onSend(ctx, ev)
	case tickEvent:
		s.transition(ctx, func(st State) (State, []Action) { return Tick(st, ev.class) })
	case stateQuery:
		ev.reply <- s.state
	}
	if s.afterEvent != nil {
		s.afterEvent(ev)
	}
}

func (s *Session) handleIntent(ctx context.Context, ev intentEvent) {
	switch ev.kind {
	case intentOpen:
		s.transition(ctx, OpenPanel)
	case intentClose:
		s.transition(ctx, ClosePanel)
	case intentToggle:
		s.transition(ctx, TogglePanel)
	case intentRefresh:
		s.transition(ctx, Invalidate)
	case intentSwitch:
		if ev.reportID == s.state.ReportID {
			return
		}
		s.logger = logging.WithReport(s.base, ev.reportID)
		s.pendingForce = false
		s.transition(ctx, func(st State) (State, []Action) { return SwitchReport(st, ev.reportID) })
		s.logger.Info().Msg("switched report")
		s.emit(Update{Kind: UpdateReport, ReportID: s.state.ReportID})
		s.emit(Update{Kind: UpdateUnread, ReportID: s.state.ReportID, Unread: 0})
	case intentSubmit:
		s.submit(ctx, ev)
	}
}

func (s *Session) transition(ctx context.Context, fn func(State) (State, []Action)) {
	next, actions := fn(s.state)
	s.state = next
	for _, action := range actions {
		s.perform(ctx, action)
	}
}

func (s *Session) perform(ctx context.Context, action Action) {
	switch action {
	case ActionStopTimer:
		s.stopTimer()
	case ActionArmForeground:
		s.arm(TimerForeground, s.cfg.ForegroundInterval)
	case ActionArmBackground:
		s.arm(TimerBackground, s.cfg.BackgroundInterval)
	case ActionFetch:
		s.fetch(ctx, false)
	case ActionForceFetch:
		s.fetch(ctx, true)
	case ActionRefreshUnread:
		s.refreshUnread(ctx)
	}
}

func (s *Session) arm(class TimerClass, every time.Duration) {
	s.stopTimer()
	s.ticker = s.cfg.Clock.NewTicker(every)
	s.tickClass = class
	s.logger.Trace().Str("timer", class.String()).Dur("every", every).Msg("timer armed")
}

func (s *Session) stopTimer() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	s.tickClass = TimerNone
}

// fetch starts a message fetch. While one is in flight for the same report,
// plain requests are dropped and a forced one is queued behind it.
func (s *Session) fetch(ctx context.Context, forced bool) {
	reportID := s.state.ReportID
	if reportID <= 0 {
		return
	}
	if s.fetchingFor == reportID {
		if forced {
			s.pendingForce = true
		}
		return
	}
	s.fetchingFor = reportID
	s.pendingForce = false
	s.inflight.Go(func() {
		msgs, err := s.api.ListMessages(ctx, reportID)
		_ = s.post(fetchDone{reportID: reportID, forced: forced, msgs: msgs, err: err})
	})
}

func (s *Session) onFetch(ctx context.Context, ev fetchDone) {
	if ev.reportID == s.fetchingFor {
		s.fetchingFor = 0
	}
	if ev.reportID != s.state.ReportID {
		s.logger.Debug().Int64("stale_report_id", ev.reportID).Msg("discarding stale fetch")
		return
	}
	s.applyFetch(ctx, ev)
	if s.pendingForce {
		s.pendingForce = false
		s.fetch(ctx, true)
	}
}

func (s *Session) applyFetch(ctx context.Context, ev fetchDone) {
	if ev.err != nil {
		if errors.Is(ev.err, chatapi.ErrNotFound) {
			s.logger.Info().Err(ev.err).Msg("report not found")
			return
		}
		s.logger.Warn().Err(ev.err).Msg("fetch messages failed")
		return
	}

	snap, changed := Detect(s.state.Snapshot, ev.msgs)
	if !changed && !ev.forced {
		s.logger.Trace().Uint64("digest", snap.Digest()).Msg("messages unchanged")
		return
	}
	s.state.Snapshot = snap
	s.emit(Update{
		Kind:     UpdateMessages,
		ReportID: ev.reportID,
		Display:  s.renderer.Render(ev.msgs),
	})
	if s.state.Open {
		s.trackReads(ctx, ev.msgs)
	}
}

func (s *Session) trackReads(ctx context.Context, msgs []models.Message) {
	reportID := s.state.ReportID
	pending := make([]models.Message, 0)
	ids := make([]int64, 0)
	for _, msg := range PendingReads(msgs, s.cfg.Perspective) {
		if _, busy := s.marking[msg.ID]; busy {
			continue
		}
		s.marking[msg.ID] = struct{}{}
		pending = append(pending, msg)
		ids = append(ids, msg.ID)
	}
	s.inflight.Go(func() {
		result := s.reads.Run(ctx, reportID, pending)
		_ = s.post(readDone{reportID: reportID, ids: ids, result: result})
	})
}

func (s *Session) onRead(ev readDone) {
	for _, id := range ev.ids {
		delete(s.marking, id)
	}
	if ev.reportID != s.state.ReportID {
		return
	}
	if failed := ev.result.Failed(); failed > 0 {
		s.logger.Debug().Int("failed", failed).Int("total", len(ev.result.Marks)).Msg("read tracking incomplete")
	}
	if ev.result.UnreadErr == nil {
		s.setUnread(ev.result.Unread)
	}
}

func (s *Session) refreshUnread(ctx context.Context) {
	reportID := s.state.ReportID
	if reportID <= 0 || s.refreshingFor == reportID {
		return
	}
	s.refreshingFor = reportID
	perspective := s.cfg.Perspective
	s.inflight.Go(func() {
		count, err := s.api.UnreadCount(ctx, reportID, perspective)
		_ = s.post(unreadDone{reportID: reportID, count: count, err: err})
	})
}

func (s *Session) onUnread(ev unreadDone) {
	if ev.reportID == s.refreshingFor {
		s.refreshingFor = 0
	}
	if ev.reportID != s.state.ReportID {
		return
	}
	if ev.err != nil {
		if errors.Is(ev.err, chatapi.ErrNotFound) {
			s.logger.Debug().Err(ev.err).Msg("unread count for unknown report")
			return
		}
		s.logger.Warn().Err(ev.err).Msg("unread count failed")
		return
	}
	s.setUnread(ev.count)
}

func (s *Session) setUnread(count int) {
	if count < 0 {
		count = 0
	}
	if count == s.state.Unread {
		return
	}
	s.state.Unread = count
	s.emit(Update{Kind: UpdateUnread, ReportID: s.state.ReportID, Unread: count})
}

func (s *Session) submit(ctx context.Context, ev intentEvent) {
	text := s.cfg.Language.strings()
	reportID := s.state.ReportID
	if reportID <= 0 {
		s.notice(NoticeError, text.noReport)
		ev.reply <- ErrNoReport
		return
	}
	ev.reply <- nil

	msg := models.NewMessage{
		AuthorType: s.cfg.Perspective,
		AuthorName: s.cfg.AuthorName,
		Content:    ev.content,
	}
	s.inflight.Go(func() {
		out, err := s.api.SendMessage(ctx, reportID, msg)
		_ = s.post(sendDone{reportID: reportID, msg: out, err: err})
	})
}

func (s *Session) onSend(ctx context.Context, ev sendDone) {
	text := s.cfg.Language.strings()
	if ev.err != nil {
		s.logger.Warn().Err(ev.err).Msg("send message failed")
		switch {
		case errors.Is(ev.err, chatapi.ErrNotFound):
			s.notice(NoticeError, text.unknownRepo)
		case errors.Is(ev.err, models.ErrEmptyContent):
			s.notice(NoticeError, text.emptyInput)
		default:
			s.notice(NoticeError, text.sendFailed)
		}
		return
	}
	s.logger.Info().Int64("message_id", ev.msg.ID).Msg("message sent")
	s.emit(Update{Kind: UpdateSent, ReportID: ev.reportID, Message: ev.msg})
	s.notice(NoticeInfo, text.sent)
	if ev.reportID == s.state.ReportID {
		s.transition(ctx, Invalidate)
	}
}

func (s *Session) notice(level NoticeLevel, text string) {
	s.emit(Update{Kind: UpdateNotice, ReportID: s.state.ReportID, Notice: Notice{Level: level, Text: text}})
}

func (s *Session) emit(u Update) {
	if s.sink != nil {
		s.sink(u)
	}
}
