package tui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edtrack/internal/bus"
	"edtrack/internal/ingest"
	"edtrack/internal/journal"
	"edtrack/internal/ledger"
)

var base = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

func TestCredits(t *testing.T) {
	for in, want := range map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	} {
		assert.Equal(t, want, credits(in))
	}
}

func TestBar(t *testing.T) {
	assert.Equal(t, "----", bar(1, 0, 4))
	assert.Equal(t, "[green]##[-]..", bar(2, 4, 4))
	assert.Equal(t, "[green]####[-]", bar(9, 4, 4))
}

func TestRenderCommander(t *testing.T) {
	assert.Contains(t, renderCommander(ledger.Profile{}), "Waiting")

	out := renderCommander(ledger.Profile{FID: "F1", Name: "Jameson", Online: true, CurrentSystem: "Sol", CurrentStation: "Abraham Lincoln", Docked: true})
	assert.Contains(t, out, "CMDR Jameson")
	assert.Contains(t, out, "online")
	assert.Contains(t, out, "Docked at Abraham Lincoln")
}

func TestRenderMissions(t *testing.T) {
	assert.Contains(t, renderMissions(nil), "No active missions")

	out := renderMissions([]ledger.Mission{
		{ID: "1", Massacre: true, Status: ledger.MissionActive, CurrentCount: 3, TargetCount: 12, Faction: "Alpha", TargetFaction: "Beta"},
		{ID: "2", Name: "Courier", Status: ledger.MissionActive, DestinationSystem: "Lave"},
		{ID: "3", Name: "Old", Status: ledger.MissionCompleted},
	})
	assert.Contains(t, out, "3/12[-] Alpha -> Beta")
	assert.Contains(t, out, "Courier  Lave")
	assert.NotContains(t, out, "Old")
}

func TestRenderCargoShowsDiscrepancy(t *testing.T) {
	out := renderCargo(ledger.CargoSnapshot{
		Used:        10,
		MaxCapacity: 64,
		Reported:    12,
		Items:       []ledger.CargoItem{{Commodity: "painite", Name: "Painite", Count: 10, Refined: true}},
	})
	assert.Contains(t, out, "10/64 t")
	assert.Contains(t, out, "game says 12")
	assert.Contains(t, out, "* Painite")

	assert.NotContains(t, renderCargo(ledger.CargoSnapshot{Reported: -1}), "game says")
}

func TestRenderMining(t *testing.T) {
	assert.Contains(t, renderMining(nil, nil, base), "No mining session")

	current := &ledger.MiningSession{
		System:    "Borann",
		Ring:      "Borann A 2 A Ring",
		StartTime: base,
		Refined:   map[string]int{"lowtemperaturediamond": 4},
		Active:    true,
		Suspended: true,
	}
	out := renderMining(current, nil, base.Add(90*time.Second))
	assert.Contains(t, out, "suspended")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "Refined 4")

	last := []ledger.MiningSession{{Ring: "Old Ring", StartTime: base, EndTime: base.Add(time.Minute)}}
	assert.Contains(t, renderMining(nil, last, base), "last session[-] Old Ring")
}

func TestRenderExploration(t *testing.T) {
	out := renderExploration(
		ledger.SaleTotals{Systems: 2, TotalEarnings: 1500000},
		[]ledger.ExplorationSale{{TotalEarnings: 2000}},
		[]ledger.Body{{Name: "Col 285 A 1", BioSignals: 2, Genuses: []string{"Bacterium", "Stratum"}}, {Name: "Barren"}},
	)
	assert.Contains(t, out, "On hold: 2 systems, 1,500,000 cr")
	assert.Contains(t, out, "Last sale: 2,000 cr")
	assert.Contains(t, out, "Col 285 A 1[-] 2 bio (Bacterium, Stratum)")
	assert.NotContains(t, out, "Barren")
}

func TestRenderCombat(t *testing.T) {
	out := renderCombat(ledger.BountySnapshot{Kills: 2, Bounties: map[string]int64{"A": 1000, "B": 500}})
	assert.Contains(t, out, "Kills 2")
	assert.Contains(t, out, "Bounties 1,500 cr")
}

func TestDashboardRefreshFillsEveryPanel(t *testing.T) {
	l := ingest.NewLedgers(bus.New(), ingest.Options{MatchInterval: time.Hour})
	t.Cleanup(l.Close)
	ctrl := ingest.NewController(l, &journal.MemorySource{}, nil)
	require.NoError(t, ctrl.Ingest(testContext(t), journal.NewRecord("Commander", base, journal.Fields{"FID": "F1", "Name": "Jameson"})))

	d := NewDashboard(l, themes[DefaultTheme])
	d.now = func() time.Time { return base }
	d.refresh()

	require.Len(t, d.panels, 6)
	assert.Contains(t, d.panels[panelCommander].GetText(false), "CMDR Jameson")
	for name, view := range d.panels {
		assert.NotEmpty(t, view.GetText(false), name)
	}
}

func TestDashboardCoalescesChanges(t *testing.T) {
	l := ingest.NewLedgers(bus.New(), ingest.Options{MatchInterval: time.Hour})
	t.Cleanup(l.Close)
	d := NewDashboard(l, themes[DefaultTheme])

	for i := 0; i < 10; i++ {
		d.onChange(bus.ChannelCargo)
	}
	assert.Len(t, d.updateChan, 1)
}

func TestDashboardKeys(t *testing.T) {
	l := ingest.NewLedgers(bus.New(), ingest.Options{MatchInterval: time.Hour})
	t.Cleanup(l.Close)
	d := NewDashboard(l, themes[DefaultTheme])

	assert.Nil(t, d.handleKey(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.Nil(t, d.handleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))

	other := tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)
	assert.Equal(t, other, d.handleKey(other))
}

func TestLookupTheme(t *testing.T) {
	th, err := LookupTheme("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTheme, th.Name)

	th, err = LookupTheme("mono")
	require.NoError(t, err)
	assert.Equal(t, tcell.ColorGray, th.Panel.Border)

	_, err = LookupTheme("telix")
	assert.ErrorContains(t, err, "available: [elite mono]")
}
