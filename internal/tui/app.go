// Package tui is a read-only terminal dashboard over the live ledgers.
package tui

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"edtrack/internal/bus"
	"edtrack/internal/ingest"
	"edtrack/internal/log"
)

const (
	panelCommander   = "Commander"
	panelMissions    = "Missions"
	panelCargo       = "Cargo"
	panelMining      = "Mining"
	panelExploration = "Exploration"
	panelCombat      = "Combat"
)

// Dashboard renders ledger snapshots into a grid of panels
type Dashboard struct {
	app     *tview.Application
	grid    *tview.Grid
	panels  map[string]*tview.TextView
	ledgers *ingest.Ledgers
	theme   Theme
	subs    map[bus.Channel]string

	// Redraw coalescing
	updateChan chan struct{}
	now        func() time.Time
}

// NewDashboard creates the dashboard for l
func NewDashboard(l *ingest.Ledgers, theme Theme) *Dashboard {
	d := &Dashboard{
		app:        tview.NewApplication(),
		panels:     make(map[string]*tview.TextView),
		ledgers:    l,
		theme:      theme,
		subs:       make(map[bus.Channel]string),
		updateChan: make(chan struct{}, 1),
		now:        time.Now,
	}
	d.setupUI()
	d.app.SetInputCapture(d.handleKey)
	return d
}

// setupUI lays the panels out in three columns
func (d *Dashboard) setupUI() {
	for _, name := range []string{panelCommander, panelMissions, panelCargo, panelMining, panelExploration, panelCombat} {
		view := tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(false)
		view.SetBorder(true).SetTitle(" " + name + " ")
		d.theme.applyPanel(view)
		d.panels[name] = view
	}

	d.grid = tview.NewGrid().
		SetRows(7, 0, 0).
		SetColumns(0, 0, 0).
		SetBorders(false)
	d.grid.AddItem(d.panels[panelCommander], 0, 0, 1, 2, 0, 0, false)
	d.grid.AddItem(d.panels[panelCombat], 0, 2, 1, 1, 0, 0, false)
	d.grid.AddItem(d.panels[panelMissions], 1, 0, 2, 1, 0, 0, false)
	d.grid.AddItem(d.panels[panelCargo], 1, 1, 2, 1, 0, 0, false)
	d.grid.AddItem(d.panels[panelMining], 1, 2, 1, 1, 0, 0, false)
	d.grid.AddItem(d.panels[panelExploration], 2, 2, 1, 1, 0, 0, false)

	d.app.SetRoot(d.grid, true)
}

// handleKey quits on q, Esc or Ctrl-C
func (d *Dashboard) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		d.app.Stop()
		return nil
	case tcell.KeyRune:
		if event.Rune() == 'q' {
			d.app.Stop()
			return nil
		}
	}
	return event
}

// onChange requests a redraw; bursts collapse into one
func (d *Dashboard) onChange(bus.Channel) {
	select {
	case d.updateChan <- struct{}{}:
	default:
	}
}

// refresh copies every ledger and rewrites the panels
func (d *Dashboard) refresh() {
	for name, text := range renderAll(d.ledgers.Snapshot(), d.now()) {
		d.panels[name].SetText(text)
	}
}

// Run shows the dashboard until the user quits
func (d *Dashboard) Run() error {
	for _, ch := range bus.Channels {
		d.subs[ch] = d.ledgers.Bus.Subscribe(ch, d.onChange)
	}
	defer func() {
		for ch, id := range d.subs {
			d.ledgers.Bus.Unsubscribe(ch, id)
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-d.updateChan:
			case <-ticker.C:
				// mining durations keep moving without events
			}
			d.app.QueueUpdateDraw(d.refresh)
		}
	}()

	d.refresh()
	log.Info("dashboard started")
	return d.app.Run()
}

// Stop closes the dashboard from another goroutine
func (d *Dashboard) Stop() {
	d.app.Stop()
}
