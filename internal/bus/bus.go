// Package bus fans out "something changed" notifications from the ledgers to
// whoever renders them. Each ledger family has its own channel so a listener
// only hears about what it displays.
package bus

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"edtrack/internal/log"
)

// Channel identifies a ledger family
type Channel int

const (
	ChannelMissions Channel = iota
	ChannelCargo
	ChannelMining
	ChannelExploration
	ChannelCommander
	ChannelCombat
	ChannelTravel
)

// Channels lists every channel in declaration order
var Channels = []Channel{
	ChannelMissions,
	ChannelCargo,
	ChannelMining,
	ChannelExploration,
	ChannelCommander,
	ChannelCombat,
	ChannelTravel,
}

// String returns a string representation of the Channel
func (c Channel) String() string {
	switch c {
	case ChannelMissions:
		return "missions"
	case ChannelCargo:
		return "cargo"
	case ChannelMining:
		return "mining"
	case ChannelExploration:
		return "exploration"
	case ChannelCommander:
		return "commander"
	case ChannelCombat:
		return "combat"
	case ChannelTravel:
		return "travel"
	default:
		return "unknown"
	}
}

// Listener is called synchronously on the ingestion goroutine. It must return
// quickly; expensive work belongs on the listener's own goroutine.
type Listener func(Channel)

// Bus delivers notifications per channel. While suspended (batch mode)
// notifications are swallowed; Resume then fires every channel once.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Channel]map[string]Listener
	nextID      int
	suspended   bool
}

// New creates an empty bus
func New() *Bus {
	return &Bus{
		subscribers: make(map[Channel]map[string]Listener),
		nextID:      1,
	}
}

// Subscribe registers a listener on a channel and returns its subscription ID
func (b *Bus) Subscribe(ch Channel, listener Listener) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub_%d", b.nextID)
	b.nextID++

	if b.subscribers[ch] == nil {
		b.subscribers[ch] = make(map[string]Listener)
	}
	b.subscribers[ch][id] = listener
	return id
}

// Unsubscribe removes a listener. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(ch Channel, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if listeners, ok := b.subscribers[ch]; ok {
		delete(listeners, id)
		if len(listeners) == 0 {
			delete(b.subscribers, ch)
		}
	}
}

// Notify tells every listener on ch that its ledger changed
func (b *Bus) Notify(ch Channel) {
	b.mu.RLock()
	if b.suspended {
		b.mu.RUnlock()
		return
	}
	listeners := b.snapshot(ch)
	b.mu.RUnlock()

	for _, l := range listeners {
		deliver(ch, l)
	}
}

// Suspend starts batch mode
func (b *Bus) Suspend() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.suspended = true
}

// Resume ends batch mode and fires every channel exactly once. Calling it
// when not suspended does nothing.
func (b *Bus) Resume() {
	b.mu.Lock()
	if !b.suspended {
		b.mu.Unlock()
		return
	}
	b.suspended = false
	b.mu.Unlock()

	for _, ch := range Channels {
		b.Notify(ch)
	}
}

// Suspended reports whether the bus is in batch mode
func (b *Bus) Suspended() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.suspended
}

// SubscriberCount returns the number of listeners on a channel
func (b *Bus) SubscriberCount(ch Channel) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[ch])
}

// snapshot copies the listeners in subscription order; caller holds the lock
func (b *Bus) snapshot(ch Channel) []Listener {
	listeners := b.subscribers[ch]
	if len(listeners) == 0 {
		return nil
	}
	ids := make([]string, 0, len(listeners))
	for id := range listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return subscriptionNumber(ids[i]) < subscriptionNumber(ids[j])
	})
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, listeners[id])
	}
	return out
}

func subscriptionNumber(id string) int {
	var n int
	fmt.Sscanf(id, "sub_%d", &n)
	return n
}

func deliver(ch Channel, l Listener) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("notification listener panicked", "channel", ch.String(), "panic", r, "stack", string(debug.Stack()))
		}
	}()
	l(ch)
}
