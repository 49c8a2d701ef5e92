package archive

import (
	"context"
	"sync"

	"edtrack/internal/bus"
	"edtrack/internal/ingest"
	"edtrack/internal/log"
)

// Sink exports history in the background whenever a ledger with history
// announces a change. The bus listener only signals; the export runs on the
// sink's own goroutine so ingestion never waits on disk.
type Sink struct {
	archive *Archive
	ctrl    *ingest.Controller
	wake    chan struct{}
	ids     map[bus.Channel]string
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// historyChannels are the channels whose ledgers keep a history
var historyChannels = []bus.Channel{bus.ChannelMissions, bus.ChannelMining, bus.ChannelExploration}

// NewSink creates a sink for the ledgers behind ctrl
func NewSink(a *Archive, ctrl *ingest.Controller) *Sink {
	return &Sink{
		archive: a,
		ctrl:    ctrl,
		wake:    make(chan struct{}, 1),
		ids:     make(map[bus.Channel]string),
	}
}

// Start subscribes to the bus and runs the export loop until Stop or ctx ends
func (s *Sink) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, ch := range historyChannels {
		s.ids[ch] = s.ctrl.Subscribe(ch, s.onChange)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				if _, err := s.archive.Export(ctx, s.ctrl.Snapshot()); err != nil && ctx.Err() == nil {
					log.Warn("history export failed", "error", err)
				}
			}
		}
	}()
}

// onChange coalesces bursts of notifications into one pending export
func (s *Sink) onChange(bus.Channel) {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop unsubscribes, waits for the loop to exit and runs a final export
func (s *Sink) Stop() {
	for ch, id := range s.ids {
		s.ctrl.Ledgers().Bus.Unsubscribe(ch, id)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if _, err := s.archive.Export(context.Background(), s.ctrl.Snapshot()); err != nil {
		log.Warn("final history export failed", "error", err)
	}
}
