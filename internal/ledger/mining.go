package ledger

import (
	"sort"
	"sync"
	"time"

	"edtrack/internal/bus"
	"edtrack/internal/log"
)

// MiningState is where the tracker sits in NONE → ACTIVE ⇄ SUSPENDED → (ended)
type MiningState int

const (
	MiningNone MiningState = iota
	MiningActive
	MiningSuspended
)

// String returns a string representation of the MiningState
func (s MiningState) String() string {
	switch s {
	case MiningNone:
		return "NONE"
	case MiningActive:
		return "ACTIVE"
	case MiningSuspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// MiningSession is one stay in a planetary ring. A suspended session is
// still Active; only ending it clears Active.
type MiningSession struct {
	System          string
	Ring            string
	StartTime       time.Time
	EndTime         time.Time
	Refined         map[string]int
	Prospected      int
	Motherlodes     int
	LimpetsLaunched int
	Active          bool
	Suspended       bool
}

// TotalRefined sums the refined tonnage across minerals
func (s MiningSession) TotalRefined() int {
	total := 0
	for _, n := range s.Refined {
		total += n
	}
	return total
}

// Minerals returns the refined mineral names, sorted
func (s MiningSession) Minerals() []string {
	out := make([]string, 0, len(s.Refined))
	for m := range s.Refined {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Duration is the session length; open sessions measure up to now
func (s MiningSession) Duration(now time.Time) time.Duration {
	end := s.EndTime
	if end.IsZero() {
		end = now
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}

func (s MiningSession) clone() MiningSession {
	refined := make(map[string]int, len(s.Refined))
	for k, v := range s.Refined {
		refined[k] = v
	}
	s.Refined = refined
	return s
}

// MiningTracker holds at most one active session plus the completed ones
type MiningTracker struct {
	mu       sync.RWMutex
	active   *MiningSession
	history  []MiningSession
	notifier Notifier
}

// NewMiningTracker creates a tracker with no session
func NewMiningTracker(n Notifier) *MiningTracker {
	return &MiningTracker{notifier: n}
}

// Start opens a session in a ring. An open session is ended first so at most
// one is ever active.
func (t *MiningTracker) Start(system, ring string, at time.Time) {
	t.mu.Lock()
	if t.active != nil {
		log.Debug("mining session replaced by a new ring", "ring", t.active.Ring, "new_ring", ring)
		t.endLocked(at)
	}
	t.active = &MiningSession{
		System:    system,
		Ring:      ring,
		StartTime: at,
		Refined:   make(map[string]int),
		Active:    true,
	}
	t.mu.Unlock()

	log.Info("mining session started", "system", system, "ring", ring)
	notify(t.notifier, bus.ChannelMining)
}

// End closes the active session into the history. It reports whether a
// session was open.
func (t *MiningTracker) End(at time.Time) bool {
	t.mu.Lock()
	if t.active == nil {
		t.mu.Unlock()
		return false
	}
	t.endLocked(at)
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMining)
	return true
}

func (t *MiningTracker) endLocked(at time.Time) {
	s := *t.active
	s.EndTime = at
	s.Active = false
	s.Suspended = false
	t.history = append(t.history, s)
	t.active = nil
	log.Info("mining session ended", "ring", s.Ring, "refined", s.TotalRefined())
}

// Suspend parks the active session while the commander is offline. The
// accumulated counts are kept.
func (t *MiningTracker) Suspend() bool {
	t.mu.Lock()
	if t.active == nil || t.active.Suspended {
		t.mu.Unlock()
		return false
	}
	t.active.Suspended = true
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMining)
	return true
}

// Resume reactivates a suspended session
func (t *MiningTracker) Resume() bool {
	t.mu.Lock()
	if t.active == nil || !t.active.Suspended {
		t.mu.Unlock()
		return false
	}
	t.active.Suspended = false
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMining)
	return true
}

// RecordRefined counts one refined ton of mineral against the open session
func (t *MiningTracker) RecordRefined(mineral string) bool {
	mineral = NormalizeCommodity(mineral)
	t.mu.Lock()
	if t.active == nil || mineral == "" {
		t.mu.Unlock()
		return false
	}
	t.active.Refined[mineral]++
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMining)
	return true
}

// RecordProspect counts a prospected asteroid
func (t *MiningTracker) RecordProspect(motherlode bool) bool {
	t.mu.Lock()
	if t.active == nil {
		t.mu.Unlock()
		return false
	}
	t.active.Prospected++
	if motherlode {
		t.active.Motherlodes++
	}
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMining)
	return true
}

// RecordLimpet counts a limpet launched during the session
func (t *MiningTracker) RecordLimpet() bool {
	t.mu.Lock()
	if t.active == nil {
		t.mu.Unlock()
		return false
	}
	t.active.LimpetsLaunched++
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMining)
	return true
}

// State returns the tracker state
func (t *MiningTracker) State() MiningState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	switch {
	case t.active == nil:
		return MiningNone
	case t.active.Suspended:
		return MiningSuspended
	default:
		return MiningActive
	}
}

// Current returns a copy of the open session
func (t *MiningTracker) Current() (MiningSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.active == nil {
		return MiningSession{}, false
	}
	return t.active.clone(), true
}

// History returns the completed sessions, oldest first
func (t *MiningTracker) History() []MiningSession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]MiningSession, 0, len(t.history))
	for _, s := range t.history {
		out = append(out, s.clone())
	}
	return out
}

// Reset drops the open session and the history
func (t *MiningTracker) Reset() {
	t.mu.Lock()
	t.active = nil
	t.history = nil
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMining)
}
