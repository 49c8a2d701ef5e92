// Package ingest routes journal records to the ledgers and runs replays.
package ingest

import (
	"time"

	"edtrack/internal/bus"
	"edtrack/internal/ledger"
)

// Options tunes the ledgers built by NewLedgers
type Options struct {
	MatchInterval    time.Duration
	MatchMaxAttempts int
}

// Ledgers bundles every ledger of one commander profile together with the
// bus they announce changes on
type Ledgers struct {
	Bus         *bus.Bus
	Commander   *ledger.CommanderProfile
	Missions    *ledger.MissionTable
	Cargo       *ledger.CargoLedger
	Mining      *ledger.MiningTracker
	Exploration *ledger.ExplorationAccumulator
	Bounties    *ledger.BountyLedger
	Travel      *ledger.TravelLog
}

// NewLedgers creates empty ledgers wired to b
func NewLedgers(b *bus.Bus, opts Options) *Ledgers {
	if opts.MatchInterval <= 0 {
		opts.MatchInterval = time.Second
	}
	return &Ledgers{
		Bus:       b,
		Commander: ledger.NewCommanderProfile(b),
		Missions:  ledger.NewMissionTable(b),
		Cargo:     ledger.NewCargoLedger(b),
		Mining:    ledger.NewMiningTracker(b),
		Exploration: ledger.NewExplorationAccumulator(b, ledger.ExplorationConfig{
			PollInterval: opts.MatchInterval,
			MaxAttempts:  opts.MatchMaxAttempts,
		}),
		Bounties: ledger.NewBountyLedger(b),
		Travel:   ledger.NewTravelLog(b),
	}
}

// Reset empties every ledger, as if no journal line had been read
func (l *Ledgers) Reset() {
	l.Commander.Reset()
	l.Missions.Reset()
	l.Cargo.Clear()
	l.Mining.Reset()
	l.Exploration.Reset()
	l.Bounties.Reset()
	l.Travel.Reset()
}

// Close stops the background matcher
func (l *Ledgers) Close() {
	l.Exploration.Close()
}

// State is a point-in-time copy of every ledger, used for summaries and for
// comparing two ingestions of the same journal
type State struct {
	Profile          ledger.Profile
	Missions         []ledger.Mission
	MissionHistory   []ledger.MissionRecord
	Cargo            ledger.CargoSnapshot
	Mining           *ledger.MiningSession
	MiningHistory    []ledger.MiningSession
	OnHold           []ledger.SystemVisited
	SaleTotals       ledger.SaleTotals
	Sales            []ledger.ExplorationSale
	Bodies           []ledger.Body
	Combat           ledger.BountySnapshot
	Jumps            []ledger.Jump
	TravelledSystems int
}

// Snapshot copies the current state of every ledger
func (l *Ledgers) Snapshot() State {
	s := State{
		Profile:          l.Commander.Profile(),
		Missions:         l.Missions.All(),
		MissionHistory:   l.Missions.History(),
		Cargo:            l.Cargo.Snapshot(),
		MiningHistory:    l.Mining.History(),
		OnHold:           l.Exploration.OnHold(),
		SaleTotals:       l.Exploration.Totals(),
		Sales:            l.Exploration.History(),
		Bodies:           l.Exploration.Bodies(),
		Combat:           l.Bounties.Snapshot(),
		Jumps:            l.Travel.Jumps(),
		TravelledSystems: l.Travel.Systems(),
	}
	if cur, ok := l.Mining.Current(); ok {
		s.Mining = &cur
	}
	return s
}
