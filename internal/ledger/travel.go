package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dominikbraun/graph"

	"edtrack/internal/bus"
	"edtrack/internal/log"
)

// Jump is one hyperspace jump between systems
type Jump struct {
	From     string
	To       string
	Distance float64
	At       time.Time
}

// TravelLog records jumps as a directed graph of systems, so routes already
// flown can be looked up
type TravelLog struct {
	mu       sync.RWMutex
	g        graph.Graph[string, string]
	jumps    []Jump
	current  string
	distance float64
	notifier Notifier
}

// NewTravelLog creates an empty log
func NewTravelLog(n Notifier) *TravelLog {
	return &TravelLog{
		g:        graph.New(graph.StringHash, graph.Directed()),
		notifier: n,
	}
}

// SetPosition places the commander without recording a jump (game load,
// carrier moves)
func (t *TravelLog) SetPosition(system string) {
	if system == "" {
		return
	}
	t.mu.Lock()
	t.addVertexLocked(system)
	changed := t.current != system
	t.current = system
	t.mu.Unlock()

	if changed {
		notify(t.notifier, bus.ChannelTravel)
	}
}

// RecordJump adds a jump from the current position to system
func (t *TravelLog) RecordJump(system string, distance float64, at time.Time) {
	if system == "" {
		return
	}
	t.mu.Lock()
	from := t.current
	t.addVertexLocked(system)
	if from != "" && from != system {
		if err := t.g.AddEdge(from, system); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			log.Warn("travel graph edge rejected", "from", from, "to", system, "error", err)
		}
	}
	t.jumps = append(t.jumps, Jump{From: from, To: system, Distance: distance, At: at})
	t.distance += distance
	t.current = system
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelTravel)
}

func (t *TravelLog) addVertexLocked(system string) {
	if err := t.g.AddVertex(system); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		log.Warn("travel graph vertex rejected", "system", system, "error", err)
	}
}

// Route returns the fewest-jump path between two systems using only jumps
// already flown
func (t *TravelLog) Route(from, to string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, err := graph.ShortestPath(t.g, from, to)
	if err != nil {
		return nil, fmt.Errorf("route %s -> %s: %w", from, to, err)
	}
	return path, nil
}

// Systems returns how many distinct systems were seen
func (t *TravelLog) Systems() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := t.g.Order()
	if err != nil {
		return 0
	}
	return n
}

// Current returns the last known system
func (t *TravelLog) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Jumps returns every recorded jump, oldest first
func (t *TravelLog) Jumps() []Jump {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Jump(nil), t.jumps...)
}

// TotalDistance sums the light years jumped
func (t *TravelLog) TotalDistance() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.distance
}

// Reset starts a fresh graph
func (t *TravelLog) Reset() {
	t.mu.Lock()
	t.g = graph.New(graph.StringHash, graph.Directed())
	t.jumps = nil
	t.current = ""
	t.distance = 0
	t.mu.Unlock()

	notify(t.notifier, bus.ChannelTravel)
}
