package ledger

import (
	"sort"
	"sync"

	"edtrack/internal/bus"
	"edtrack/internal/log"
)

// Limpets are tracked as an ordinary commodity under this identity
const Limpets = "drones"

// CargoItem is one commodity line of a cargo snapshot
type CargoItem struct {
	Commodity string
	Name      string
	Count     int64
	Refined   bool
}

// CargoSnapshot is a point-in-time copy of the hold
type CargoSnapshot struct {
	Items       []CargoItem
	Used        int64
	MaxCapacity int64
	// Reported is the last hold total the game announced, -1 if none yet
	Reported int64
}

// Free returns the unused capacity, never negative
func (s CargoSnapshot) Free() int64 {
	if free := s.MaxCapacity - s.Used; free > 0 {
		return free
	}
	return 0
}

// CargoLedger is a multiset of commodities in the ship's hold. Quantities
// never go below zero; the journal occasionally omits cargo events, so a
// removal of more than is held clamps and is logged as a discrepancy.
type CargoLedger struct {
	mu            sync.RWMutex
	items         map[string]int64
	names         map[string]string
	refined       map[string]bool
	maxCapacity   int64
	reported      int64
	discrepancies int
	onDiscrepancy func(reason string)
	notifier      Notifier
}

// NewCargoLedger creates an empty hold
func NewCargoLedger(n Notifier) *CargoLedger {
	return &CargoLedger{
		items:    make(map[string]int64),
		names:    make(map[string]string),
		refined:  make(map[string]bool),
		reported: -1,
		notifier: n,
	}
}

// OnDiscrepancy installs a hook called for every tolerated mismatch
func (c *CargoLedger) OnDiscrepancy(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDiscrepancy = fn
}

// Add puts qty units of commodity in the hold
func (c *CargoLedger) Add(commodity string, qty int64) {
	commodity = NormalizeCommodity(commodity)
	if commodity == "" || qty <= 0 {
		return
	}
	c.mu.Lock()
	c.items[commodity] += qty
	c.mu.Unlock()

	notify(c.notifier, bus.ChannelCargo)
}

// Remove takes qty units out, clamping at zero. It returns how many units
// were actually removed.
func (c *CargoLedger) Remove(commodity string, qty int64) int64 {
	commodity = NormalizeCommodity(commodity)
	if commodity == "" || qty <= 0 {
		return 0
	}

	c.mu.Lock()
	held := c.items[commodity]
	removed := qty
	var hook func(string)
	if qty > held {
		removed = held
		c.discrepancies++
		hook = c.onDiscrepancy
	}
	c.setLocked(commodity, held-removed)
	c.mu.Unlock()

	if removed != qty {
		log.Warn("cargo removal exceeds holdings", "commodity", commodity, "requested", qty, "held", held)
		if hook != nil {
			hook("remove_exceeds_held")
		}
	}
	notify(c.notifier, bus.ChannelCargo)
	return removed
}

// RemoveAll empties one commodity and returns how many units were held
func (c *CargoLedger) RemoveAll(commodity string) int64 {
	commodity = NormalizeCommodity(commodity)
	c.mu.Lock()
	held := c.items[commodity]
	c.setLocked(commodity, 0)
	c.mu.Unlock()

	notify(c.notifier, bus.ChannelCargo)
	return held
}

// setLocked stores qty, dropping empty lines; caller holds the lock
func (c *CargoLedger) setLocked(commodity string, qty int64) {
	if qty <= 0 {
		delete(c.items, commodity)
		delete(c.refined, commodity)
		return
	}
	c.items[commodity] = qty
}

// MarkRefined flags a commodity as produced by the refinery
func (c *CargoLedger) MarkRefined(commodity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refined[NormalizeCommodity(commodity)] = true
}

// IsRefined reports whether the commodity came out of the refinery
func (c *CargoLedger) IsRefined(commodity string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refined[NormalizeCommodity(commodity)]
}

// SetDisplayName records the localised label the journal gave a commodity
func (c *CargoLedger) SetDisplayName(commodity, name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[NormalizeCommodity(commodity)] = name
}

// Replace swaps the whole hold for an authoritative inventory
func (c *CargoLedger) Replace(inventory map[string]int64) {
	c.mu.Lock()
	items := make(map[string]int64, len(inventory))
	for name, qty := range inventory {
		if name = NormalizeCommodity(name); name != "" && qty > 0 {
			items[name] += qty
		}
	}
	for name := range c.refined {
		if _, still := items[name]; !still {
			delete(c.refined, name)
		}
	}
	c.items = items
	c.mu.Unlock()

	notify(c.notifier, bus.ChannelCargo)
}

// SetReported records the hold total announced by the game and checks it
// against the derived sum. A mismatch is logged, never corrected here.
func (c *CargoLedger) SetReported(total int64) {
	c.mu.Lock()
	c.reported = total
	used := c.usedLocked()
	var hook func(string)
	if used != total {
		c.discrepancies++
		hook = c.onDiscrepancy
	}
	c.mu.Unlock()

	if used != total {
		log.Warn("cargo total disagrees with ledger", "reported", total, "derived", used)
		if hook != nil {
			hook("reported_total_mismatch")
		}
	}
	notify(c.notifier, bus.ChannelCargo)
}

// SetCapacity records the hold size from the ship loadout
func (c *CargoLedger) SetCapacity(capacity int64) {
	if capacity < 0 {
		capacity = 0
	}
	c.mu.Lock()
	changed := c.maxCapacity != capacity
	c.maxCapacity = capacity
	c.mu.Unlock()

	if changed {
		notify(c.notifier, bus.ChannelCargo)
	}
}

// Quantity returns how many units of commodity are held
func (c *CargoLedger) Quantity(commodity string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[NormalizeCommodity(commodity)]
}

// Used returns the derived hold total
func (c *CargoLedger) Used() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usedLocked()
}

func (c *CargoLedger) usedLocked() int64 {
	var total int64
	for _, qty := range c.items {
		total += qty
	}
	return total
}

// Discrepancies returns how many mismatches were tolerated so far
func (c *CargoLedger) Discrepancies() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.discrepancies
}

// Snapshot copies the hold, items sorted by commodity
func (c *CargoLedger) Snapshot() CargoSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := CargoSnapshot{
		Items:       make([]CargoItem, 0, len(c.items)),
		Used:        c.usedLocked(),
		MaxCapacity: c.maxCapacity,
		Reported:    c.reported,
	}
	for commodity, qty := range c.items {
		name := c.names[commodity]
		if name == "" {
			name = DisplayName(commodity)
		}
		snap.Items = append(snap.Items, CargoItem{
			Commodity: commodity,
			Name:      name,
			Count:     qty,
			Refined:   c.refined[commodity],
		})
	}
	sort.Slice(snap.Items, func(i, j int) bool {
		return snap.Items[i].Commodity < snap.Items[j].Commodity
	})
	return snap
}

// Reset empties the hold. Capacity survives; it belongs to the ship.
func (c *CargoLedger) Reset() {
	c.mu.Lock()
	c.items = make(map[string]int64)
	c.refined = make(map[string]bool)
	c.reported = -1
	c.mu.Unlock()

	notify(c.notifier, bus.ChannelCargo)
}

// Clear wipes everything including capacity, for a new profile
func (c *CargoLedger) Clear() {
	c.mu.Lock()
	c.items = make(map[string]int64)
	c.names = make(map[string]string)
	c.refined = make(map[string]bool)
	c.maxCapacity = 0
	c.reported = -1
	c.discrepancies = 0
	c.mu.Unlock()

	notify(c.notifier, bus.ChannelCargo)
}
