package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccumulator(t *testing.T, interval time.Duration, attempts int) *ExplorationAccumulator {
	t.Helper()
	e := NewExplorationAccumulator(nil, ExplorationConfig{PollInterval: interval, MaxAttempts: attempts})
	t.Cleanup(e.Close)
	return e
}

func TestSaleLinesAccumulateUntilFlush(t *testing.T) {
	e := newTestAccumulator(t, time.Hour, 0)
	e.VisitSystem("Sol", at(0))
	e.SetBodyCount("Sol", 10)

	e.AddToCurrentSale([]string{"Sol", "Alpha Centauri"}, 1000, 200, 1200, at(5))
	e.AddToCurrentSale([]string{"Barnard's Star"}, 500, 0, 500, at(6))

	totals := e.Totals()
	assert.Equal(t, SaleTotals{BaseValue: 1500, Bonus: 200, TotalEarnings: 1700, Systems: 3}, totals)
	assert.Empty(t, e.History())

	sale, ok := e.Flush(at(7))
	require.True(t, ok)
	assert.Equal(t, int64(1700), sale.TotalEarnings)
	assert.Equal(t, at(5), sale.StartedAt)
	require.Len(t, sale.Systems, 3)
	assert.Equal(t, "Alpha Centauri", sale.Systems[0].Name)
	assert.Equal(t, "Sol", sale.Systems[2].Name)
	assert.Equal(t, 10, sale.Systems[2].Bodies)
	assert.True(t, sale.Systems[2].Sold)

	assert.Equal(t, SaleTotals{}, e.Totals())
	assert.Empty(t, e.OnHold())
	assert.Len(t, e.History(), 1)

	_, ok = e.Flush(at(8))
	assert.False(t, ok, "nothing on hold")
	assert.Len(t, e.History(), 1)
}

func TestClearOnHoldDropsSale(t *testing.T) {
	e := newTestAccumulator(t, time.Hour, 0)
	e.AddToCurrentSale([]string{"Sol"}, 100, 0, 100, at(0))
	e.ClearOnHold()

	_, ok := e.Flush(at(1))
	assert.False(t, ok)
	assert.Empty(t, e.History())
}

func TestBioSignalsMatchKnownBody(t *testing.T) {
	e := newTestAccumulator(t, time.Hour, 0)
	e.VisitSystem("Colonia", at(0))
	e.RegisterBody(Body{ID: 7, Name: "Colonia 7 a"})

	e.AddBioSignals(BioSignal{BodyID: 7, Count: 3, Genuses: []string{"Bacterium", "Stratum"}})

	b, ok := e.Body(7)
	require.True(t, ok)
	assert.Equal(t, 3, b.BioSignals)
	assert.Equal(t, []string{"Bacterium", "Stratum"}, b.Genuses)
	assert.Equal(t, "Colonia", b.System)
	assert.Equal(t, 0, e.Pending())
}

func TestBioSignalsBeforeBodyMatchOnRegistration(t *testing.T) {
	e := newTestAccumulator(t, time.Hour, 0)
	e.VisitSystem("Colonia", at(0))

	e.AddBioSignals(BioSignal{BodyID: 4, Count: 2})
	e.AddOrganicScan(OrganicScan{BodyID: 4, Species: "Bacterium Aurasus", ScanType: "Log"})
	assert.Equal(t, 2, e.Pending())

	e.RegisterBody(Body{ID: 4, Name: "Colonia 4"})

	assert.Equal(t, 0, e.Pending())
	b, ok := e.Body(4)
	require.True(t, ok)
	assert.Equal(t, 2, b.BioSignals)
	assert.Equal(t, "Log", b.Organics["Bacterium Aurasus"])
}

func TestOrganicScanStageOnlyAdvances(t *testing.T) {
	e := newTestAccumulator(t, time.Hour, 0)
	e.VisitSystem("Sys", at(0))
	e.RegisterBody(Body{ID: 1})

	e.AddOrganicScan(OrganicScan{BodyID: 1, Species: "Tussock", ScanType: "Sample"})
	e.AddOrganicScan(OrganicScan{BodyID: 1, Species: "Tussock", ScanType: "Log"})
	b, _ := e.Body(1)
	assert.Equal(t, "Sample", b.Organics["Tussock"])

	e.AddOrganicScan(OrganicScan{BodyID: 1, Species: "Tussock", ScanType: "Analyse"})
	b, _ = e.Body(1)
	assert.Equal(t, "Analyse", b.Organics["Tussock"])
}

func TestSystemChangeDropsPendingAndBodies(t *testing.T) {
	e := newTestAccumulator(t, time.Hour, 0)
	e.VisitSystem("First", at(0))
	e.RegisterBody(Body{ID: 1})
	e.AddBioSignals(BioSignal{BodyID: 9, Count: 1})
	require.Equal(t, 1, e.Pending())

	e.VisitSystem("Second", at(1))
	assert.Equal(t, 0, e.Pending())
	assert.Empty(t, e.Bodies())

	// Body 9 in the new system is a different body; the old signal must not land on it.
	e.RegisterBody(Body{ID: 9})
	b, _ := e.Body(9)
	assert.Equal(t, 0, b.BioSignals)

	e.VisitSystem("second", at(2))
	assert.Len(t, e.Bodies(), 1, "same system, different case")
}

func TestPollerGivesUpAfterMaxAttempts(t *testing.T) {
	e := newTestAccumulator(t, 5*time.Millisecond, 3)
	e.VisitSystem("Sys", at(0))
	e.AddBioSignals(BioSignal{BodyID: 42, Count: 1})

	assert.Eventually(t, func() bool { return e.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !e.pending.Running() }, time.Second, 5*time.Millisecond)
}

func TestAccumulatorReset(t *testing.T) {
	e := newTestAccumulator(t, time.Hour, 0)
	e.VisitSystem("Sys", at(0))
	e.AddToCurrentSale([]string{"Sys"}, 1, 1, 2, at(1))
	e.Flush(at(2))
	e.AddBioSignals(BioSignal{BodyID: 1})

	e.Reset()
	assert.Empty(t, e.History())
	assert.Equal(t, "", e.CurrentSystem())
	assert.Equal(t, 0, e.Pending())
	_, ok := e.Visited("Sys")
	assert.False(t, ok)
}
