package chattui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleComposeKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		return m.submit()
	case "alt+enter", "ctrl+j":
		m.input += "\n"
		return nil
	case "backspace", "delete", "ctrl+h":
		m.deleteRune()
		return nil
	case "ctrl+u":
		m.input = ""
		return nil
	}

	switch msg.Type {
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		if len(msg.Runes) == 0 {
			return nil
		}
		m.input += string(msg.Runes)
	}
	return nil
}

// submit hands the input to the session. Blank input is ignored. The input is
// cleared only once the send succeeds.
func (m *Model) submit() tea.Cmd {
	if m.sending || strings.TrimSpace(m.input) == "" {
		return nil
	}
	m.sending = true
	content := m.input
	return intentCmd(func() error { return m.ctrl.Submit(content) })
}

func (m *Model) deleteRune() {
	if m.input == "" {
		return
	}
	runes := []rune(m.input)
	m.input = string(runes[:len(runes)-1])
}
