package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"edtrack/internal/bus"
	"edtrack/internal/log"
)

// MissionStatus is the lifecycle state of a mission
type MissionStatus int

const (
	MissionActive MissionStatus = iota
	MissionCompleted
	MissionFailed
)

// String returns a string representation of the MissionStatus
func (s MissionStatus) String() string {
	switch s {
	case MissionActive:
		return "ACTIVE"
	case MissionCompleted:
		return "COMPLETED"
	case MissionFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// TargetType classifies who a mission wants killed
type TargetType int

const (
	TargetNone TargetType = iota
	TargetPirate
	TargetDeserter
	TargetHumanoid
	TargetUnknown
)

// String returns a string representation of the TargetType
func (t TargetType) String() string {
	switch t {
	case TargetNone:
		return "none"
	case TargetPirate:
		return "pirate"
	case TargetDeserter:
		return "deserter"
	case TargetHumanoid:
		return "humanoid"
	default:
		return "unknown"
	}
}

// ParseTargetType reads the journal's target tag, e.g. "$MissionUtil_FactionTag_Pirate;"
func ParseTargetType(tag string) TargetType {
	t := strings.ToLower(tag)
	switch {
	case strings.TrimSpace(t) == "":
		return TargetNone
	case strings.Contains(t, "pirate"):
		return TargetPirate
	case strings.Contains(t, "deserter"):
		return TargetDeserter
	case strings.Contains(t, "human"), strings.Contains(t, "civilian"):
		return TargetHumanoid
	default:
		return TargetUnknown
	}
}

// ClassifyMission derives the massacre and wing flags from the mission's
// internal name, e.g. "Mission_MassacreWing_Legal_name".
func ClassifyMission(name string) (massacre, wing bool) {
	n := strings.ToLower(name)
	return strings.Contains(n, "massacre"), strings.Contains(n, "wing")
}

// Mission is one accepted mission. CurrentCount stays within [0, TargetCount].
type Mission struct {
	ID                 string
	Name               string
	Faction            string
	TargetFaction      string
	TargetType         TargetType
	OriginSystem       string
	OriginStation      string
	DestinationSystem  string
	DestinationStation string
	TargetCount        int
	CurrentCount       int
	Reward             int64
	Status             MissionStatus
	AcceptedAt         time.Time
	Expiry             time.Time
	Wing               bool
	Massacre           bool
}

// Remaining is how many kills are still outstanding
func (m Mission) Remaining() int {
	return m.TargetCount - m.CurrentCount
}

// MissionRecord is the immutable history entry appended on completion
type MissionRecord struct {
	MissionID     string
	Faction       string
	TargetFaction string
	Kills         int
	Reward        int64
	CompletedAt   time.Time
}

// MissionTable owns every mission of the current profile
type MissionTable struct {
	mu       sync.RWMutex
	missions map[string]*Mission
	order    []string
	history  []MissionRecord
	notifier Notifier
}

// NewMissionTable creates an empty mission table
func NewMissionTable(n Notifier) *MissionTable {
	return &MissionTable{
		missions: make(map[string]*Mission),
		notifier: n,
	}
}

// Accept adds a new ACTIVE mission with a zero kill count. Accepting a
// mission that is already ACTIVE changes nothing.
func (t *MissionTable) Accept(m Mission) error {
	if m.ID == "" {
		return fmt.Errorf("accept mission: empty id")
	}
	if m.TargetCount < 0 {
		m.TargetCount = 0
	}
	m.CurrentCount = 0
	m.Status = MissionActive

	t.mu.Lock()
	if prev, exists := t.missions[m.ID]; exists {
		if prev.Status == MissionActive {
			t.mu.Unlock()
			log.Warn("mission accepted twice, keeping active entry", "mission", m.ID, "count", prev.CurrentCount)
			return nil
		}
		log.Warn("closed mission accepted again, replacing", "mission", m.ID)
	} else {
		t.order = append(t.order, m.ID)
	}
	t.missions[m.ID] = &m
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMissions)
	return nil
}

// RecordKill credits one kill against every active massacre mission that
// targets victimFaction. It returns the IDs whose count moved.
func (t *MissionTable) RecordKill(victimFaction string) []string {
	if victimFaction == "" {
		return nil
	}

	var credited []string
	t.mu.Lock()
	for _, id := range t.order {
		m := t.missions[id]
		if m.Status != MissionActive || !m.Massacre {
			continue
		}
		if !strings.EqualFold(m.TargetFaction, victimFaction) {
			continue
		}
		if m.CurrentCount >= m.TargetCount {
			continue
		}
		m.CurrentCount++
		credited = append(credited, id)
	}
	t.mu.Unlock()

	if len(credited) > 0 {
		notify(t.notifier, bus.ChannelMissions)
	}
	return credited
}

// Redirect records the new destination. The game only redirects a massacre
// mission once every kill is in, so an active massacre mission that still
// shows outstanding kills had kill events missing from the journal; the
// count is forced to the target. It reports whether that correction applied.
func (t *MissionTable) Redirect(id, system, station string) (bool, error) {
	t.mu.Lock()
	m, ok := t.missions[id]
	if !ok {
		t.mu.Unlock()
		return false, fmt.Errorf("redirect %s: %w", id, ErrUnknownMission)
	}
	if m.Status != MissionActive {
		t.mu.Unlock()
		return false, fmt.Errorf("redirect %s: %w", id, ErrMissionClosed)
	}
	if system != "" {
		m.DestinationSystem = system
	}
	if station != "" {
		m.DestinationStation = station
	}
	corrected := false
	if m.Massacre && m.CurrentCount != m.TargetCount {
		log.Info("redirect reconciled kill count", "mission", id, "counted", m.CurrentCount, "target", m.TargetCount)
		m.CurrentCount = m.TargetCount
		corrected = true
	}
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMissions)
	return corrected, nil
}

// Complete closes a mission as COMPLETED and appends it to the history.
// A zero reward keeps the reward quoted on acceptance.
func (t *MissionTable) Complete(id string, reward int64, at time.Time) error {
	t.mu.Lock()
	m, ok := t.missions[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("complete %s: %w", id, ErrUnknownMission)
	}
	if m.Status != MissionActive {
		t.mu.Unlock()
		return fmt.Errorf("complete %s: %w", id, ErrMissionClosed)
	}
	m.Status = MissionCompleted
	m.CurrentCount = m.TargetCount
	if reward > 0 {
		m.Reward = reward
	}
	t.history = append(t.history, MissionRecord{
		MissionID:     m.ID,
		Faction:       m.Faction,
		TargetFaction: m.TargetFaction,
		Kills:         m.CurrentCount,
		Reward:        m.Reward,
		CompletedAt:   at,
	})
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMissions)
	return nil
}

// Fail closes a mission as FAILED (abandoned, failed or expired)
func (t *MissionTable) Fail(id string) error {
	t.mu.Lock()
	m, ok := t.missions[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("fail %s: %w", id, ErrUnknownMission)
	}
	if m.Status != MissionActive {
		t.mu.Unlock()
		return fmt.Errorf("fail %s: %w", id, ErrMissionClosed)
	}
	m.Status = MissionFailed
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMissions)
	return nil
}

// FailAllActive forces every ACTIVE mission to FAILED. Used when the game
// reports that nothing is active. Returns how many missions changed.
func (t *MissionTable) FailAllActive() int {
	failed := 0
	t.mu.Lock()
	for _, id := range t.order {
		if m := t.missions[id]; m.Status == MissionActive {
			m.Status = MissionFailed
			failed++
		}
	}
	t.mu.Unlock()

	if failed > 0 {
		notify(t.notifier, bus.ChannelMissions)
	}
	return failed
}

// Get returns a copy of one mission
func (t *MissionTable) Get(id string) (Mission, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.missions[id]
	if !ok {
		return Mission{}, false
	}
	return *m, true
}

// All returns every mission in acceptance order
func (t *MissionTable) All() []Mission {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Mission, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.missions[id])
	}
	return out
}

// Active returns the ACTIVE missions in acceptance order
func (t *MissionTable) Active() []Mission {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Mission
	for _, id := range t.order {
		if m := t.missions[id]; m.Status == MissionActive {
			out = append(out, *m)
		}
	}
	return out
}

// History returns the completed-mission records, oldest first
func (t *MissionTable) History() []MissionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]MissionRecord, len(t.history))
	copy(out, t.history)
	return out
}

// Reset drops every mission and the history
func (t *MissionTable) Reset() {
	t.mu.Lock()
	t.missions = make(map[string]*Mission)
	t.order = nil
	t.history = nil
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelMissions)
}
