package ingest

import (
	"sync"
	"testing"
	"time"

	"edtrack/internal/bus"
	"edtrack/internal/journal"
	"edtrack/internal/metrics"
)

var base = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

// clock hands out strictly increasing timestamps so replays stay comparable
type clock struct{ n int }

func (c *clock) next() time.Time {
	c.n++
	return base.Add(time.Duration(c.n) * time.Second)
}

// recorder builds records with increasing timestamps
type recorder struct {
	clock
}

func (r *recorder) rec(kind string, fields journal.Fields) journal.Record {
	return journal.NewRecord(kind, r.next(), fields)
}

type harness struct {
	t       *testing.T
	ctrl    *Controller
	ledgers *Ledgers
	source  *journal.MemorySource
	metrics *metrics.Metrics
	recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := bus.New()
	l := NewLedgers(b, Options{MatchInterval: time.Hour})
	t.Cleanup(l.Close)
	src := &journal.MemorySource{}
	m := metrics.New(metrics.Config{Enabled: true})
	return &harness{
		t:       t,
		ctrl:    NewController(l, src, m),
		ledgers: l,
		source:  src,
		metrics: m,
	}
}

// live appends rec to the journal and ingests it, like the tailer does
func (h *harness) live(kind string, fields journal.Fields) journal.Record {
	h.t.Helper()
	rec := h.rec(kind, fields)
	h.source.Append(rec)
	if err := h.ctrl.Ingest(testContext(h.t), rec); err != nil {
		h.t.Fatalf("ingest %s: %v", kind, err)
	}
	return rec
}

// channelCounter counts notifications per channel
type channelCounter struct {
	mu     sync.Mutex
	counts map[bus.Channel]int
}

func countChannels(b *bus.Bus) *channelCounter {
	c := &channelCounter{counts: make(map[bus.Channel]int)}
	for _, ch := range bus.Channels {
		b.Subscribe(ch, func(ch bus.Channel) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.counts[ch]++
		})
	}
	return c
}

func (c *channelCounter) count(ch bus.Channel) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[ch]
}

func massacreAccepted(id, faction, target string, kills int) journal.Fields {
	return journal.Fields{
		"MissionID":     id,
		"Name":          "Mission_Massacre",
		"Faction":       faction,
		"TargetFaction": target,
		"TargetType":    "$MissionUtil_FactionTag_Pirate;",
		"KillCount":     kills,
		"Reward":        1_000_000,
	}
}

func bounty(victim string) journal.Fields {
	return journal.Fields{
		"VictimFaction": victim,
		"Rewards":       []any{map[string]any{"Faction": "Alpha", "Reward": 10_000}},
	}
}
