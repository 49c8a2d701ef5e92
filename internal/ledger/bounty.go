package ledger

import (
	"strings"
	"sync"

	"edtrack/internal/bus"
)

// BountySnapshot is a copy of the combat ledger
type BountySnapshot struct {
	Bounties         map[string]int64
	Bonds            map[string]int64
	Kills            int
	RedeemedBounties int64
	RedeemedBonds    int64
}

// UnclaimedBounties sums the bounty vouchers not yet cashed in
func (s BountySnapshot) UnclaimedBounties() int64 {
	return sum(s.Bounties)
}

// UnclaimedBonds sums the combat bonds not yet cashed in
func (s BountySnapshot) UnclaimedBonds() int64 {
	return sum(s.Bonds)
}

func sum(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}

// BountyLedger keeps unclaimed bounty vouchers and combat bonds per faction
type BountyLedger struct {
	mu               sync.RWMutex
	bounties         map[string]int64
	bonds            map[string]int64
	kills            int
	redeemedBounties int64
	redeemedBonds    int64
	notifier         Notifier
}

// NewBountyLedger creates an empty ledger
func NewBountyLedger(n Notifier) *BountyLedger {
	return &BountyLedger{
		bounties: make(map[string]int64),
		bonds:    make(map[string]int64),
		notifier: n,
	}
}

// RecordBounty adds the vouchers of one kill, keyed by paying faction
func (l *BountyLedger) RecordBounty(rewards map[string]int64) {
	l.mu.Lock()
	for faction, amount := range rewards {
		if amount > 0 {
			l.bounties[faction] += amount
		}
	}
	l.kills++
	l.mu.Unlock()

	notify(l.notifier, bus.ChannelCombat)
}

// RecordBond adds a combat bond from a conflict zone kill
func (l *BountyLedger) RecordBond(faction string, amount int64) {
	l.mu.Lock()
	if amount > 0 {
		l.bonds[faction] += amount
	}
	l.kills++
	l.mu.Unlock()

	notify(l.notifier, bus.ChannelCombat)
}

// Redeem cashes in vouchers. kind is the journal voucher type ("bounty" or
// "CombatBond"); an empty faction list redeems every faction of that kind.
func (l *BountyLedger) Redeem(kind string, factions []string, amount int64) {
	l.mu.Lock()
	var book map[string]int64
	switch strings.ToLower(kind) {
	case "bounty":
		book = l.bounties
		l.redeemedBounties += amount
	case "combatbond":
		book = l.bonds
		l.redeemedBonds += amount
	default:
		l.mu.Unlock()
		return
	}
	if len(factions) == 0 {
		for f := range book {
			delete(book, f)
		}
	}
	for _, f := range factions {
		delete(book, f)
	}
	l.mu.Unlock()

	notify(l.notifier, bus.ChannelCombat)
}

// LoseUnclaimed drops every voucher; they do not survive the ship
func (l *BountyLedger) LoseUnclaimed() {
	l.mu.Lock()
	l.bounties = make(map[string]int64)
	l.bonds = make(map[string]int64)
	l.mu.Unlock()

	notify(l.notifier, bus.ChannelCombat)
}

// Snapshot copies the ledger
func (l *BountyLedger) Snapshot() BountySnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := BountySnapshot{
		Bounties:         make(map[string]int64, len(l.bounties)),
		Bonds:            make(map[string]int64, len(l.bonds)),
		Kills:            l.kills,
		RedeemedBounties: l.redeemedBounties,
		RedeemedBonds:    l.redeemedBonds,
	}
	for k, v := range l.bounties {
		snap.Bounties[k] = v
	}
	for k, v := range l.bonds {
		snap.Bonds[k] = v
	}
	return snap
}

// Reset clears everything
func (l *BountyLedger) Reset() {
	l.mu.Lock()
	l.bounties = make(map[string]int64)
	l.bonds = make(map[string]int64)
	l.kills = 0
	l.redeemedBounties = 0
	l.redeemedBonds = 0
	l.mu.Unlock()

	notify(l.notifier, bus.ChannelCombat)
}
