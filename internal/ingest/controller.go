package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"edtrack/internal/bus"
	"edtrack/internal/journal"
	"edtrack/internal/log"
	"edtrack/internal/metrics"
)

// Source yields the whole journal available right now, oldest first
type Source interface {
	Records(ctx context.Context) ([]journal.Record, error)
}

// Controller is the single gate records pass through. It serialises live
// dispatch and replays, and rebuilds every ledger when the journal switches
// to another commander profile.
type Controller struct {
	mu      sync.Mutex
	ledgers *Ledgers
	router  *Router
	source  Source
	metrics *metrics.Metrics
}

// NewController wires a router with every handler to ledgers. m may be nil.
func NewController(l *Ledgers, src Source, m *metrics.Metrics) *Controller {
	r := NewRouter(m)
	registerHandlers(r, l, m)
	l.Cargo.OnDiscrepancy(m.RecordDiscrepancy)

	return &Controller{
		ledgers: l,
		router:  r,
		source:  src,
		metrics: m,
	}
}

// Ledgers returns the ledgers the controller writes to
func (c *Controller) Ledgers() *Ledgers {
	return c.ledgers
}

// Router returns the dispatch table, for registering extra handlers
func (c *Controller) Router() *Router {
	return c.router
}

// Ingest dispatches one live record. A profile announcement carrying a new
// FID triggers a full reset and replay instead.
func (c *Controller) Ingest(ctx context.Context, rec journal.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fid, switched := c.profileSwitch(rec); switched {
		log.Info("commander profile changed, rebuilding state", "from", c.ledgers.Commander.FID(), "to", fid)
		return c.replayLocked(ctx, &rec)
	}
	c.router.Dispatch(rec)
	return nil
}

// Replay resets every ledger and re-ingests the whole source in batch mode
func (c *Controller) Replay(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replayLocked(ctx, nil)
}

// ResetForNewProfile rebuilds state for the profile fid from the source
func (c *Controller) ResetForNewProfile(ctx context.Context, fid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.replayLocked(ctx, nil); err != nil {
		return err
	}
	if current := c.ledgers.Commander.FID(); fid != "" && current != fid {
		log.Warn("replayed journal ends on another profile", "expected", fid, "found", current)
		c.ledgers.Reset()
		c.ledgers.Commander.Announce(fid, "")
	}
	return nil
}

// EnterBatchMode silences the bus until ExitBatchMode
func (c *Controller) EnterBatchMode() {
	c.ledgers.Bus.Suspend()
}

// ExitBatchMode fires every channel once
func (c *Controller) ExitBatchMode() {
	c.ledgers.Bus.Resume()
}

// profileSwitch reports whether rec announces a commander other than the
// one already known
func (c *Controller) profileSwitch(rec journal.Record) (string, bool) {
	if rec.Kind != "Commander" && rec.Kind != "LoadGame" {
		return "", false
	}
	fid := rec.String("FID")
	known := c.ledgers.Commander.FID()
	return fid, fid != "" && known != "" && fid != known
}

// replayLocked rebuilds every ledger from the source. trigger is the live
// record that caused the replay, if any. When the source already holds it the
// replay stops there, since the live caller still owns every later record.
// Otherwise the trigger is dispatched after the whole source.
func (c *Controller) replayLocked(ctx context.Context, trigger *journal.Record) error {
	start := time.Now()
	records, err := c.source.Records(ctx)
	if err != nil {
		if trigger != nil {
			c.ledgers.Reset()
			c.router.Dispatch(*trigger)
		}
		return fmt.Errorf("read journal for replay: %w", err)
	}
	seen := false
	if trigger != nil {
		if i := lastIndexOf(records, *trigger); i >= 0 {
			records = records[:i+1]
			seen = true
		}
	}

	c.EnterBatchMode()
	defer c.ExitBatchMode()

	c.ledgers.Reset()
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("replay interrupted after %d of %d records: %w", i, len(records), err)
		}
		if _, switched := c.profileSwitch(rec); switched {
			// An older profile's stretch of the journal ended here.
			c.ledgers.Reset()
		}
		c.router.Dispatch(rec)
	}
	if trigger != nil && !seen {
		if _, switched := c.profileSwitch(*trigger); switched {
			c.ledgers.Reset()
		}
		c.router.Dispatch(*trigger)
	}

	elapsed := time.Since(start)
	c.metrics.RecordReplay(elapsed)
	log.Info("journal replayed", "records", len(records), "duration", elapsed, "commander", c.ledgers.Commander.FID())
	return nil
}

// Snapshot copies every ledger while no record is being applied, so the
// copy never mixes two commander profiles
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledgers.Snapshot()
}

// Subscribe is a shortcut to the bus for listeners
func (c *Controller) Subscribe(ch bus.Channel, l bus.Listener) string {
	return c.ledgers.Bus.Subscribe(ch, l)
}

func sameRecord(a, b journal.Record) bool {
	return a.Kind == b.Kind && a.Timestamp.Equal(b.Timestamp) && a.String("FID") == b.String("FID")
}

func lastIndexOf(records []journal.Record, rec journal.Record) int {
	for i := len(records) - 1; i >= 0; i-- {
		if sameRecord(records[i], rec) {
			return i
		}
	}
	return -1
}
