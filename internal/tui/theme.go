package tui

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PanelColors defines color scheme for the dashboard panels
type PanelColors struct {
	Background tcell.Color
	Foreground tcell.Color
	Border     tcell.Color
	Title      tcell.Color
}

// Theme is a named color scheme
type Theme struct {
	Name  string
	Panel PanelColors
}

// DefaultTheme is used when the config names none
const DefaultTheme = "elite"

var themes = map[string]Theme{
	"elite": {
		Name: "elite",
		Panel: PanelColors{
			Background: tcell.ColorBlack,
			Foreground: tcell.ColorWhite,
			Border:     tcell.ColorDarkOrange,
			Title:      tcell.ColorOrange,
		},
	},
	"mono": {
		Name: "mono",
		Panel: PanelColors{
			Background: tcell.ColorDefault,
			Foreground: tcell.ColorDefault,
			Border:     tcell.ColorGray,
			Title:      tcell.ColorWhite,
		},
	},
}

// LookupTheme returns the theme called name; empty selects the default
func LookupTheme(name string) (Theme, error) {
	if name == "" {
		name = DefaultTheme
	}
	if t, ok := themes[name]; ok {
		return t, nil
	}
	return Theme{}, fmt.Errorf("theme '%s' not found (available: %v)", name, ThemeNames())
}

// ThemeNames lists the built-in themes
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyPanel styles one panel
func (t Theme) applyPanel(view *tview.TextView) {
	view.SetBackgroundColor(t.Panel.Background)
	view.SetTextColor(t.Panel.Foreground)
	view.SetBorderColor(t.Panel.Border)
	view.SetTitleColor(t.Panel.Title)
}
