package chattui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/reperage/internal/chat"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

func (m *Model) View() string {
	width, height := m.size()
	header := m.renderHeader(width)
	footer := m.renderFooter(width)
	if !m.open {
		body := lipgloss.NewStyle().Height(maxInt(0, height-2)).Render("")
		return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	}

	panel := m.renderPanel(width, height-2)
	return lipgloss.JoinVertical(lipgloss.Left, header, panel, footer)
}

func (m *Model) size() (int, int) {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return width, height
}

func (m *Model) renderHeader(width int) string {
	title := m.styles.accent.Render(m.headerLabel())
	badge := ""
	if m.unread > 0 {
		badge = m.styles.badge.Render(fmt.Sprintf("%d", m.unread))
	}
	gap := maxInt(1, width-lipgloss.Width(title)-lipgloss.Width(badge))
	return title + strings.Repeat(" ", gap) + badge
}

func (m *Model) renderFooter(width int) string {
	if m.notice.Text != "" {
		style := m.styles.infoNotice
		if m.notice.Level == chat.NoticeError {
			style = m.styles.errNotice
		}
		return truncate(style.Render(m.notice.Text), width)
	}
	hint := "ctrl+t chat · q quit"
	if m.open {
		hint = "enter send · alt+enter newline · pgup/pgdn scroll · esc close"
	}
	return truncate(m.styles.muted.Render(hint), width)
}

func (m *Model) threadHeight() int {
	_, height := m.size()
	// header, footer, panel border, input separator and at least one input line
	return maxInt(1, height-2-2-1-m.inputHeight())
}

func (m *Model) inputHeight() int {
	return maxInt(1, strings.Count(m.input, "\n")+1)
}

func (m *Model) renderPanel(width, height int) string {
	inner := maxInt(10, width-4)
	threadRows := maxInt(1, height-2-1-m.inputHeight())

	lines := m.threadLines(inner)
	if m.scroll > len(lines)-threadRows {
		m.scroll = maxInt(0, len(lines)-threadRows)
	}
	end := len(lines) - m.scroll
	start := maxInt(0, end-threadRows)
	visible := lines[start:end]
	for len(visible) < threadRows {
		visible = append([]string{""}, visible...)
	}

	thread := strings.Join(visible, "\n")
	input := m.styles.input.Width(inner).Render(m.renderInput())
	return m.styles.panel.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, thread, input))
}

func (m *Model) threadLines(width int) []string {
	if m.reportID <= 0 {
		return []string{m.styles.muted.Render(noReportText(m.lang))}
	}
	if !m.loaded {
		return []string{m.styles.muted.Render("…")}
	}
	if m.display.Empty() {
		return []string{
			m.styles.base.Render(m.display.Placeholder.Title),
			m.styles.muted.Render(m.display.Placeholder.Hint),
		}
	}

	out := make([]string, 0, len(m.display.Entries)*3)
	for i, entry := range m.display.Entries {
		if i > 0 {
			out = append(out, "")
		}
		head := m.styles.author(entry.AuthorClass).Render(entry.AuthorName)
		if entry.Time != "" {
			head += " " + m.styles.muted.Render(entry.Time)
		}
		out = append(out, head)
		for _, line := range entry.Lines {
			out = append(out, wrap(line, width)...)
		}
	}
	return out
}

func (m *Model) renderInput() string {
	prompt := m.styles.accent.Render("> ")
	body := m.input
	if m.sending {
		body = m.styles.muted.Render(body)
	}
	lines := strings.Split(body, "\n")
	lines[len(lines)-1] += "█"
	return prompt + strings.Join(lines, "\n  ")
}

func noReportText(lang chat.Language) string {
	if lang == chat.LanguageEN {
		return "No report selected. Run `reperage use <id>`."
	}
	return "Aucun repérage sélectionné. Lancez `reperage use <id>`."
}

func wrap(line string, width int) []string {
	runes := []rune(line)
	if width <= 0 || len(runes) <= width {
		return []string{line}
	}
	out := make([]string, 0, len(runes)/width+1)
	for len(runes) > width {
		cut := width
		for i := width; i > width/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	return append(out, string(runes))
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
