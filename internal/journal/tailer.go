package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"edtrack/internal/log"
)

// Tailer follows the newest journal in a directory and hands each new record
// to a callback, one at a time, on the goroutine that called Run.
type Tailer struct {
	dir  string
	pos  Position
	poll time.Duration
}

// NewTailer creates a tailer that resumes at pos. A zero Position starts at
// the end of the newest journal present when Run begins.
func NewTailer(dir string, pos Position) *Tailer {
	return &Tailer{
		dir:  dir,
		pos:  pos,
		poll: 2 * time.Second,
	}
}

// SetPollInterval sets the fallback poll interval. The game flushes its
// journal lazily and some filesystems drop write notifications, so the
// tailer re-reads on a timer as well as on fsnotify events.
func (t *Tailer) SetPollInterval(d time.Duration) {
	if d > 0 {
		t.poll = d
	}
}

// Position returns how far the tailer has read
func (t *Tailer) Position() Position {
	return t.pos
}

// Run blocks until ctx is done or the watcher fails
func (t *Tailer) Run(ctx context.Context, handle func(Record)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create journal watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(t.dir); err != nil {
		return fmt.Errorf("watch %s: %w", t.dir, err)
	}

	if t.pos.Path == "" {
		if err := t.seekNewest(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	log.Info("tailing journal", "dir", t.dir, "file", t.pos.Path, "offset", t.pos.Offset)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsJournalFile(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) && ev.Name > t.pos.Path {
				// Drain the old file before switching to the new session.
				t.drain(handle)
				log.Info("new journal file", "file", ev.Name)
				t.pos = Position{Path: ev.Name}
			}
			if ev.Name == t.pos.Path && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				t.drain(handle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("journal watcher error", "error", err)
		case <-ticker.C:
			t.checkNewer(handle)
			t.drain(handle)
		}
	}
}

func (t *Tailer) seekNewest() error {
	files, err := JournalFiles(t.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	newest := files[len(files)-1]
	_, end, err := ReadFile(newest, 0)
	if err != nil {
		return err
	}
	t.pos = Position{Path: newest, Offset: end}
	return nil
}

// checkNewer picks up a journal created while a notification was missed
func (t *Tailer) checkNewer(handle func(Record)) {
	files, err := JournalFiles(t.dir)
	if err != nil || len(files) == 0 {
		return
	}
	newest := files[len(files)-1]
	if newest > t.pos.Path {
		t.drain(handle)
		t.pos = Position{Path: newest}
	}
}

func (t *Tailer) drain(handle func(Record)) {
	if t.pos.Path == "" {
		return
	}
	records, offset, err := ReadFile(t.pos.Path, t.pos.Offset)
	if err != nil {
		log.Warn("reading journal failed", "file", t.pos.Path, "error", err)
		return
	}
	t.pos.Offset = offset
	for _, rec := range records {
		handle(rec)
	}
}
