package chattui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/tOgg1/reperage/internal/chat"
	"github.com/tOgg1/reperage/internal/logging"
)

const noticeTTL = 3 * time.Second

// Controller is the session surface the UI drives.
type Controller interface {
	Open() error
	Close() error
	Toggle() error
	Refresh() error
	Submit(content string) error
}

// Config configures the chat UI.
type Config struct {
	ReportID int64
	Title    string
	Open     bool
	Theme    string
	Language chat.Language
}

type Model struct {
	ctrl    Controller
	updates <-chan chat.Update
	theme   Theme
	styles  styles
	lang    chat.Language
	title   string
	logger  zerolog.Logger

	width  int
	height int

	reportID int64
	open     bool
	display  chat.Display
	loaded   bool
	unread   int

	input   string
	sending bool
	// scroll is the number of lines above the bottom of the thread.
	scroll int

	notice    chat.Notice
	noticeSeq int
}

type updateMsg struct {
	update chat.Update
	ok     bool
}

type intentErrMsg struct {
	err error
}

type noticeExpiredMsg struct {
	seq int
}

// NewModel builds the UI model. updates is the channel fed by the session sink.
func NewModel(ctrl Controller, updates <-chan chat.Update, cfg Config) (*Model, error) {
	theme, err := LookupTheme(cfg.Theme)
	if err != nil {
		return nil, err
	}
	lang := cfg.Language
	if lang == "" {
		lang = chat.LanguageFR
	}
	return &Model{
		ctrl:     ctrl,
		updates:  updates,
		theme:    theme,
		styles:   theme.styles(),
		lang:     lang,
		title:    cfg.Title,
		logger:   logging.Component("chattui"),
		reportID: cfg.ReportID,
		open:     cfg.Open,
	}, nil
}

// Run drives the UI until the user quits or ctx is done.
func Run(ctx context.Context, ctrl Controller, updates <-chan chat.Update, cfg Config) error {
	model, err := NewModel(ctrl, updates, cfg)
	if err != nil {
		return err
	}
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(ch <-chan chat.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		return updateMsg{update: u, ok: ok}
	}
}

// intentCmd posts an intent off the UI goroutine.
func intentCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return intentErrMsg{err: err}
		}
		return nil
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case updateMsg:
		if !typed.ok {
			return m, tea.Quit
		}
		cmd := m.applyUpdate(typed.update)
		return m, tea.Batch(cmd, waitForUpdate(m.updates))
	case intentErrMsg:
		m.sending = false
		m.logger.Debug().Err(typed.err).Msg("intent rejected")
		return m, nil
	case noticeExpiredMsg:
		if typed.seq == m.noticeSeq {
			m.notice = chat.Notice{}
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	}
	return m, nil
}

func (m *Model) applyUpdate(u chat.Update) tea.Cmd {
	switch u.Kind {
	case chat.UpdateMessages:
		m.display = u.Display
		m.loaded = true
		m.scroll = 0
	case chat.UpdateUnread:
		m.unread = u.Unread
	case chat.UpdateReport:
		m.reportID = u.ReportID
		m.display = chat.Display{}
		m.loaded = false
		m.scroll = 0
		m.title = ""
	case chat.UpdateSent:
		m.input = ""
		m.sending = false
	case chat.UpdateNotice:
		if u.Notice.Level == chat.NoticeError {
			m.sending = false
		}
		return m.setNotice(u.Notice)
	}
	return nil
}

func (m *Model) setNotice(n chat.Notice) tea.Cmd {
	m.notice = n
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "ctrl+t":
		m.open = !m.open
		return intentCmd(m.ctrl.Toggle)
	}
	if !m.open {
		switch msg.String() {
		case "q":
			return tea.Quit
		case "enter", "o":
			m.open = true
			return intentCmd(m.ctrl.Open)
		}
		return nil
	}

	switch msg.String() {
	case "esc":
		m.open = false
		return intentCmd(m.ctrl.Close)
	case "ctrl+r":
		return intentCmd(m.ctrl.Refresh)
	case "pgup":
		m.scroll += m.pageSize()
		return nil
	case "pgdown":
		m.scroll -= m.pageSize()
		if m.scroll < 0 {
			m.scroll = 0
		}
		return nil
	case "end":
		m.scroll = 0
		return nil
	}
	return m.handleComposeKey(msg)
}

func (m *Model) pageSize() int {
	if m.height <= 0 {
		return 10
	}
	return maxInt(1, m.threadHeight()/2)
}

func (m *Model) headerLabel() string {
	if m.title != "" {
		return m.title
	}
	if m.reportID <= 0 {
		return "Chat"
	}
	return fmt.Sprintf("Chat · #%d", m.reportID)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
