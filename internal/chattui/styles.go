package chattui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/reperage/internal/models"
)

// Palette holds ANSI-256 color codes for the chat UI.
type Palette struct {
	Foreground string
	Muted      string
	Accent     string
	Border     string
	Fixer      string
	Production string
	Badge      string
	BadgeText  string
	Error      string
	Info       string
}

// Theme is a named palette.
type Theme struct {
	Name    string
	Palette Palette
}

var defaultTheme = Theme{
	Name: "default",
	Palette: Palette{
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
		Fixer:      "81",
		Production: "147",
		Badge:      "203",
		BadgeText:  "231",
		Error:      "203",
		Info:       "41",
	},
}

var highContrastTheme = Theme{
	Name: "high-contrast",
	Palette: Palette{
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
		Fixer:      "226",
		Production: "51",
		Badge:      "196",
		BadgeText:  "231",
		Error:      "196",
		Info:       "46",
	},
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	defaultTheme.Name:      defaultTheme,
	highContrastTheme.Name: highContrastTheme,
}

// LookupTheme resolves a theme by name; empty selects the default.
func LookupTheme(name string) (Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return defaultTheme, nil
	}
	theme, ok := Themes[name]
	if !ok {
		names := make([]string, 0, len(Themes))
		for n := range Themes {
			names = append(names, n)
		}
		sort.Strings(names)
		return Theme{}, fmt.Errorf("invalid theme %q (expected one of %s)", name, strings.Join(names, ", "))
	}
	return theme, nil
}

type styles struct {
	base       lipgloss.Style
	muted      lipgloss.Style
	accent     lipgloss.Style
	panel      lipgloss.Style
	input      lipgloss.Style
	fixer      lipgloss.Style
	production lipgloss.Style
	badge      lipgloss.Style
	errNotice  lipgloss.Style
	infoNotice lipgloss.Style
}

func (t Theme) styles() styles {
	p := t.Palette
	return styles{
		base:       lipgloss.NewStyle().Foreground(lipgloss.Color(p.Foreground)),
		muted:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		accent:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true),
		panel:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.Border)).Padding(0, 1),
		input:      lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(lipgloss.Color(p.Border)),
		fixer:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.Fixer)).Bold(true),
		production: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Production)).Bold(true),
		badge:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.BadgeText)).Background(lipgloss.Color(p.Badge)).Bold(true).Padding(0, 1),
		errNotice:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)),
		infoNotice: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Info)),
	}
}

func (s styles) author(class models.AuthorType) lipgloss.Style {
	if class == models.AuthorProduction {
		return s.production
	}
	return s.fixer
}
