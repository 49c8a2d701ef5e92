package ingest

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"edtrack/internal/journal"
	"edtrack/internal/ledger"
	"edtrack/internal/metrics"
)

func TestUnknownKindsAreIgnored(t *testing.T) {
	m := metrics.New(metrics.Config{Enabled: true})
	r := NewRouter(m)

	r.Dispatch(journal.NewRecord("Music", base, nil))
	r.Dispatch(journal.NewRecord("", base, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsIgnored.WithLabelValues("Music")))
	assert.False(t, r.Handles("Music"))
}

func TestHandlerPanicIsContained(t *testing.T) {
	m := metrics.New(metrics.Config{Enabled: true})
	r := NewRouter(m)
	var handled []string

	r.AddHandlerFunc("Bad", func(journal.Record) error {
		var missing map[string]int
		missing["boom"]++
		return nil
	})
	r.AddHandlerFunc("Good", func(rec journal.Record) error {
		handled = append(handled, rec.String("Name"))
		return nil
	})

	r.Dispatch(journal.NewRecord("Good", base, journal.Fields{"Name": "first"}))
	assert.NotPanics(t, func() { r.Dispatch(journal.NewRecord("Bad", base, nil)) })
	r.Dispatch(journal.NewRecord("Good", base, journal.Fields{"Name": "second"}))

	assert.Equal(t, []string{"first", "second"}, handled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsFailed.WithLabelValues("Bad")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsDispatched.WithLabelValues("Good")))
}

func TestHandlerErrorsAreClassified(t *testing.T) {
	m := metrics.New(metrics.Config{Enabled: true})
	r := NewRouter(m)
	r.AddHandlerFunc("Missing", func(journal.Record) error {
		return ledger.ErrUnknownMission
	})
	r.AddHandlerFunc("Broken", func(journal.Record) error {
		return errors.New("bad field")
	})

	r.Dispatch(journal.NewRecord("Missing", base, nil))
	r.Dispatch(journal.NewRecord("Broken", base, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDispatched.WithLabelValues("Missing")), "tolerated")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsFailed.WithLabelValues("Broken")))
}

func TestSafeHandleWrapsPanic(t *testing.T) {
	err := safeHandle(HandlerFunc(func(journal.Record) error { panic("nope") }), journal.Record{})
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.Contains(t, err.Error(), "nope")
}

func TestEveryListedKindIsRegistered(t *testing.T) {
	h := newHarness(t)
	kinds := []string{
		"Commander", "LoadGame", "Shutdown", "Location", "Embark", "Disembark", "Died",
		"FSDJump", "CarrierJump", "StartJump", "SupercruiseEntry", "SupercruiseExit", "Docked", "Undocked",
		"MissionAccepted", "MissionRedirected", "MissionCompleted", "MissionAbandoned", "MissionFailed", "MissionExpired", "Missions",
		"Bounty", "FactionKillBond", "RedeemVoucher",
		"Loadout", "Cargo", "MarketBuy", "MarketSell", "EjectCargo", "CollectCargo", "BuyDrones", "SellDrones", "LaunchDrone", "MiningRefined", "ProspectedAsteroid",
		"SellExplorationData", "MultiSellExplorationData", "FSSDiscoveryScan", "Scan", "FSSBodySignals", "SAASignalsFound", "ScanOrganic",
	}
	for _, k := range kinds {
		assert.True(t, h.ctrl.Router().Handles(k), k)
	}
	assert.Equal(t, len(kinds), h.ctrl.Router().Kinds())
}
