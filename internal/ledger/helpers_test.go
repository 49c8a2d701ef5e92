package ledger

import (
	"sync"
	"time"

	"edtrack/internal/bus"
)

// countingNotifier records how often each channel fired
type countingNotifier struct {
	mu     sync.Mutex
	counts map[bus.Channel]int
}

func newCountingNotifier() *countingNotifier {
	return &countingNotifier{counts: make(map[bus.Channel]int)}
}

func (n *countingNotifier) Notify(ch bus.Channel) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[ch]++
}

func (n *countingNotifier) count(ch bus.Channel) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[ch]
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func massacre(id, faction, target string, kills int) Mission {
	return Mission{
		ID:            id,
		Name:          "Mission_Massacre",
		Faction:       faction,
		TargetFaction: target,
		TargetType:    TargetPirate,
		TargetCount:   kills,
		Massacre:      true,
		Reward:        1_000_000,
	}
}
