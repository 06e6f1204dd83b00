package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/muesli/termenv"
)

// Theme is the small palette used by help output and result tables.
type Theme struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Command lipgloss.Style
	Flag    lipgloss.Style
	Muted   lipgloss.Style
	Italic  lipgloss.Style
	Error   lipgloss.Style
	Header  lipgloss.Style
	Border  lipgloss.TerminalColor

	categories map[models.Kind]lipgloss.Style
}

var (
	orange = lipgloss.AdaptiveColor{Light: "#CC6B4E", Dark: "#FFA066"}
	blue   = lipgloss.AdaptiveColor{Light: "#4F7CAC", Dark: "#7FB4CA"}
	cyan   = lipgloss.AdaptiveColor{Light: "#5B8BBE", Dark: "#7E9CD8"}
	violet = lipgloss.AdaptiveColor{Light: "#674D7A", Dark: "#957FB8"}
	green  = lipgloss.AdaptiveColor{Light: "#4E7C5A", Dark: "#98BB6C"}
	yellow = lipgloss.AdaptiveColor{Light: "#A68A64", Dark: "#FF9E3B"}
	red    = lipgloss.AdaptiveColor{Light: "#C34043", Dark: "#FF5D62"}
	muted  = lipgloss.AdaptiveColor{Light: "#6C7086", Dark: "#727169"}
	border = lipgloss.AdaptiveColor{Light: "#B5BDC5", Dark: "#363646"}
)

// DefaultTheme is the Kanagawa-derived palette.
var DefaultTheme = newTheme()

func newTheme() *Theme {
	t := &Theme{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(orange),
		Section: lipgloss.NewStyle().Italic(true).Foreground(orange),
		Command: lipgloss.NewStyle().Bold(true).Foreground(blue),
		Flag:    lipgloss.NewStyle().Foreground(violet),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Italic:  lipgloss.NewStyle().Italic(true),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(red),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(orange).Padding(0, 1),
		Border:  border,
	}
	t.categories = map[models.Kind]lipgloss.Style{
		models.KindConda:        lipgloss.NewStyle().Foreground(green),
		models.KindPyenv:        lipgloss.NewStyle().Foreground(cyan),
		models.KindHomebrew:     lipgloss.NewStyle().Foreground(yellow),
		models.KindSystem:       lipgloss.NewStyle().Foreground(muted),
		models.KindOtherGlobal:  lipgloss.NewStyle().Foreground(muted),
		models.KindMicrosoftStore: lipgloss.NewStyle().Foreground(blue),
	}
	return t
}

// Category styles an environment kind for display. Virtual environments
// share one color.
func (t *Theme) Category(kind models.Kind) string {
	if style, ok := t.categories[kind]; ok {
		return style.Render(string(kind))
	}
	if kind.IsVirtual() {
		return lipgloss.NewStyle().Foreground(violet).Render(string(kind))
	}
	return string(kind)
}

// InitColor honours CLICOLOR_FORCE, COLORTERM and NO_COLOR so output is
// styled consistently when not attached to a terminal.
func InitColor() {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
