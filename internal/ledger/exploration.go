package ledger

import (
	"sort"
	"strings"
	"sync"
	"time"

	"edtrack/internal/bus"
	"edtrack/internal/log"
)

// SystemVisited tracks one star system for exploration sales
type SystemVisited struct {
	Name         string
	Bodies       int
	Sold         bool
	FirstVisited time.Time
	SoldAt       time.Time
}

// SaleTotals are the running sums of the sale on hold
type SaleTotals struct {
	BaseValue     int64
	Bonus         int64
	TotalEarnings int64
	Systems       int
}

// ExplorationSale is a flushed, logically complete sale. The game may split
// one sale across several journal lines; they are summed here.
type ExplorationSale struct {
	Systems       []SystemVisited
	BaseValue     int64
	Bonus         int64
	TotalEarnings int64
	StartedAt     time.Time
	FlushedAt     time.Time
}

// Body is a scanned body in the current system
type Body struct {
	ID          int64
	Name        string
	System      string
	PlanetClass string
	BioSignals  int
	Genuses     []string
	// Organics maps species to the furthest scan stage seen (Log, Sample, Analyse)
	Organics map[string]string
}

func (b Body) clone() Body {
	b.Genuses = append([]string(nil), b.Genuses...)
	organics := make(map[string]string, len(b.Organics))
	for k, v := range b.Organics {
		organics[k] = v
	}
	b.Organics = organics
	return b
}

// BioSignal is a biological signal report for a body
type BioSignal struct {
	BodyID   int64
	BodyName string
	Count    int
	Genuses  []string
}

// OrganicScan is one step of scanning an organism on a body
type OrganicScan struct {
	BodyID   int64
	Species  string
	ScanType string
}

// pendingMatch is a signal or scan waiting for its body to be registered
type pendingMatch struct {
	signal *BioSignal
	scan   *OrganicScan
}

// ExplorationConfig tunes the deferred body matcher
type ExplorationConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
}

// ExplorationAccumulator keeps the on-hold exploration sale, the sale
// history, and the bodies of the current system with their bio signals.
type ExplorationAccumulator struct {
	mu        sync.RWMutex
	visited   map[string]*SystemVisited
	onHold    map[string]SystemVisited
	totals    SaleTotals
	saleStart time.Time
	history   []ExplorationSale
	system    string
	bodies    map[int64]*Body
	pending   *Deferred[pendingMatch]
	notifier  Notifier
}

// NewExplorationAccumulator creates an empty accumulator
func NewExplorationAccumulator(n Notifier, cfg ExplorationConfig) *ExplorationAccumulator {
	e := &ExplorationAccumulator{
		visited:  make(map[string]*SystemVisited),
		onHold:   make(map[string]SystemVisited),
		bodies:   make(map[int64]*Body),
		notifier: n,
	}
	e.pending = NewDeferred("bio-signals", cfg.PollInterval, cfg.MaxAttempts, e.tryMatch)
	return e
}

// VisitSystem records arrival in a system. Bodies and pending signals of the
// previous system are dropped; they can never match now.
func (e *ExplorationAccumulator) VisitSystem(name string, at time.Time) {
	if name == "" {
		return
	}
	e.mu.Lock()
	changed := !strings.EqualFold(e.system, name)
	e.system = name
	if _, ok := e.visited[name]; !ok {
		e.visited[name] = &SystemVisited{Name: name, FirstVisited: at}
	}
	if changed {
		e.bodies = make(map[int64]*Body)
	}
	e.mu.Unlock()

	if changed {
		e.pending.Clear()
	}
	notify(e.notifier, bus.ChannelExploration)
}

// CurrentSystem returns the system the bodies belong to
func (e *ExplorationAccumulator) CurrentSystem() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.system
}

// SetBodyCount records the body count from a discovery scan
func (e *ExplorationAccumulator) SetBodyCount(system string, count int) {
	if system == "" {
		return
	}
	e.mu.Lock()
	sv, ok := e.visited[system]
	if !ok {
		sv = &SystemVisited{Name: system}
		e.visited[system] = sv
	}
	sv.Bodies = count
	e.mu.Unlock()

	notify(e.notifier, bus.ChannelExploration)
}

// RegisterBody adds a scanned body and retries pending signals for it
func (e *ExplorationAccumulator) RegisterBody(b Body) {
	e.mu.Lock()
	if b.System == "" {
		b.System = e.system
	}
	if existing, ok := e.bodies[b.ID]; ok {
		existing.Name = b.Name
		if b.PlanetClass != "" {
			existing.PlanetClass = b.PlanetClass
		}
	} else {
		if b.Organics == nil {
			b.Organics = make(map[string]string)
		}
		e.bodies[b.ID] = &b
	}
	e.mu.Unlock()

	if e.pending.Len() > 0 {
		e.pending.Retry()
	}
	notify(e.notifier, bus.ChannelExploration)
}

// AddBioSignals attaches a bio signal report to its body, deferring it when
// the body has not been scanned yet
func (e *ExplorationAccumulator) AddBioSignals(sig BioSignal) {
	m := pendingMatch{signal: &sig}
	if !e.tryMatch(m) {
		log.Debug("bio signals deferred until body is scanned", "body", sig.BodyName, "body_id", sig.BodyID)
		e.pending.Push(m)
	}
}

// AddOrganicScan records an organic scan step, deferring it like signals
func (e *ExplorationAccumulator) AddOrganicScan(scan OrganicScan) {
	m := pendingMatch{scan: &scan}
	if !e.tryMatch(m) {
		log.Debug("organic scan deferred until body is scanned", "body_id", scan.BodyID, "species", scan.Species)
		e.pending.Push(m)
	}
}

// tryMatch applies a pending item if its body is known
func (e *ExplorationAccumulator) tryMatch(m pendingMatch) bool {
	e.mu.Lock()
	var matched bool
	switch {
	case m.signal != nil:
		if b, ok := e.bodies[m.signal.BodyID]; ok {
			b.BioSignals = m.signal.Count
			if len(m.signal.Genuses) > 0 {
				b.Genuses = append([]string(nil), m.signal.Genuses...)
			}
			matched = true
		}
	case m.scan != nil:
		if b, ok := e.bodies[m.scan.BodyID]; ok {
			if scanStage(m.scan.ScanType) >= scanStage(b.Organics[m.scan.Species]) {
				b.Organics[m.scan.Species] = m.scan.ScanType
			}
			matched = true
		}
	}
	e.mu.Unlock()

	if matched {
		notify(e.notifier, bus.ChannelExploration)
	}
	return matched
}

func scanStage(scanType string) int {
	switch strings.ToLower(scanType) {
	case "log":
		return 1
	case "sample":
		return 2
	case "analyse", "analyze":
		return 3
	default:
		return 0
	}
}

// AddToCurrentSale folds one sale line into the sale on hold
func (e *ExplorationAccumulator) AddToCurrentSale(systems []string, baseValue, bonus, total int64, at time.Time) {
	e.mu.Lock()
	if e.saleStart.IsZero() {
		e.saleStart = at
	}
	for _, name := range systems {
		if name == "" {
			continue
		}
		sv := SystemVisited{Name: name}
		if known, ok := e.visited[name]; ok {
			known.Sold = true
			known.SoldAt = at
			sv = *known
		} else {
			sv.Sold = true
			sv.SoldAt = at
		}
		e.onHold[name] = sv
	}
	e.totals.BaseValue += baseValue
	e.totals.Bonus += bonus
	e.totals.TotalEarnings += total
	e.totals.Systems = len(e.onHold)
	e.mu.Unlock()

	notify(e.notifier, bus.ChannelExploration)
}

// Flush closes the sale on hold into the history. It reports false when
// nothing was on hold.
func (e *ExplorationAccumulator) Flush(at time.Time) (ExplorationSale, bool) {
	e.mu.Lock()
	if len(e.onHold) == 0 && e.totals.TotalEarnings == 0 && e.totals.BaseValue == 0 {
		e.mu.Unlock()
		return ExplorationSale{}, false
	}
	sale := ExplorationSale{
		Systems:       sortedSystems(e.onHold),
		BaseValue:     e.totals.BaseValue,
		Bonus:         e.totals.Bonus,
		TotalEarnings: e.totals.TotalEarnings,
		StartedAt:     e.saleStart,
		FlushedAt:     at,
	}
	e.history = append(e.history, sale)
	e.clearOnHoldLocked()
	e.mu.Unlock()

	log.Info("exploration sale closed", "systems", len(sale.Systems), "earnings", sale.TotalEarnings)
	notify(e.notifier, bus.ChannelExploration)
	return sale, true
}

// ClearOnHold discards the sale on hold without recording it
func (e *ExplorationAccumulator) ClearOnHold() {
	e.mu.Lock()
	e.clearOnHoldLocked()
	e.mu.Unlock()

	notify(e.notifier, bus.ChannelExploration)
}

func (e *ExplorationAccumulator) clearOnHoldLocked() {
	e.onHold = make(map[string]SystemVisited)
	e.totals = SaleTotals{}
	e.saleStart = time.Time{}
}

// OnHold returns the systems in the sale on hold, sorted by name
func (e *ExplorationAccumulator) OnHold() []SystemVisited {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedSystems(e.onHold)
}

// Totals returns the running totals of the sale on hold
func (e *ExplorationAccumulator) Totals() SaleTotals {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totals
}

// History returns the flushed sales, oldest first
func (e *ExplorationAccumulator) History() []ExplorationSale {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ExplorationSale, len(e.history))
	for i, s := range e.history {
		s.Systems = append([]SystemVisited(nil), s.Systems...)
		out[i] = s
	}
	return out
}

// Visited returns a copy of one visited system
func (e *ExplorationAccumulator) Visited(name string) (SystemVisited, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sv, ok := e.visited[name]
	if !ok {
		return SystemVisited{}, false
	}
	return *sv, true
}

// Bodies returns the bodies of the current system ordered by ID
func (e *ExplorationAccumulator) Bodies() []Body {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Body, 0, len(e.bodies))
	for _, b := range e.bodies {
		out = append(out, b.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Body returns one body of the current system
func (e *ExplorationAccumulator) Body(id int64) (Body, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.bodies[id]
	if !ok {
		return Body{}, false
	}
	return b.clone(), true
}

// Pending returns how many signals are waiting for their body
func (e *ExplorationAccumulator) Pending() int {
	return e.pending.Len()
}

// Reset forgets everything, including the sale history
func (e *ExplorationAccumulator) Reset() {
	e.pending.Clear()
	e.mu.Lock()
	e.visited = make(map[string]*SystemVisited)
	e.clearOnHoldLocked()
	e.history = nil
	e.system = ""
	e.bodies = make(map[int64]*Body)
	e.mu.Unlock()

	notify(e.notifier, bus.ChannelExploration)
}

// Close stops the deferred matcher
func (e *ExplorationAccumulator) Close() {
	e.pending.Close()
}

func sortedSystems(m map[string]SystemVisited) []SystemVisited {
	out := make([]SystemVisited, 0, len(m))
	for _, sv := range m {
		out = append(out, sv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
