package ingest

import (
	"errors"
	"fmt"
	"runtime/debug"

	"edtrack/internal/journal"
	"edtrack/internal/ledger"
	"edtrack/internal/log"
	"edtrack/internal/metrics"
)

// ErrHandlerPanic wraps a panic recovered from a handler
var ErrHandlerPanic = errors.New("handler panicked")

// Handler reconciles one journal record into the ledgers
type Handler interface {
	Handle(rec journal.Record) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(rec journal.Record) error

// Handle calls f(rec)
func (f HandlerFunc) Handle(rec journal.Record) error {
	return f(rec)
}

// noop is the handler for every kind nobody registered
var noop = HandlerFunc(func(journal.Record) error { return nil })

// Router maps an event kind to its handler. The table is filled once at
// startup; Dispatch runs one record at a time, in the order given.
type Router struct {
	handlers map[string]Handler
	metrics  *metrics.Metrics
}

// NewRouter creates an empty router. m may be nil.
func NewRouter(m *metrics.Metrics) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		metrics:  m,
	}
}

// AddHandler registers h for kind, replacing any earlier handler
func (r *Router) AddHandler(kind string, h Handler) {
	r.handlers[kind] = h
}

// AddHandlerFunc registers a plain function for kind
func (r *Router) AddHandlerFunc(kind string, fn func(journal.Record) error) {
	r.AddHandler(kind, HandlerFunc(fn))
}

// Handles reports whether kind has a registered handler
func (r *Router) Handles(kind string) bool {
	_, ok := r.handlers[kind]
	return ok
}

// Kinds returns the number of registered kinds
func (r *Router) Kinds() int {
	return len(r.handlers)
}

// Dispatch hands rec to its handler. Unknown kinds are ignored. A handler
// error or panic is logged and the record dropped; it never reaches the caller.
func (r *Router) Dispatch(rec journal.Record) {
	h, ok := r.handlers[rec.Kind]
	if !ok {
		r.metrics.RecordIgnored(rec.Kind)
		_ = noop.Handle(rec)
		return
	}

	err := safeHandle(h, rec)
	switch {
	case err == nil:
		r.metrics.RecordDispatched(rec.Kind)
	case errors.Is(err, ledger.ErrUnknownMission), errors.Is(err, ledger.ErrMissionClosed), errors.Is(err, ledger.ErrUnknownBody):
		log.Debug("event refers to something no longer tracked", "event", rec.Kind, "error", err)
		r.metrics.RecordDispatched(rec.Kind)
	case errors.Is(err, ErrHandlerPanic):
		log.Error("event handler panicked, record dropped", "event", rec.Kind, "timestamp", rec.Timestamp, "error", err)
		r.metrics.RecordFailed(rec.Kind)
	default:
		log.Warn("event handler failed, record dropped", "event", rec.Kind, "timestamp", rec.Timestamp, "error", err)
		r.metrics.RecordFailed(rec.Kind)
	}
}

// safeHandle turns a handler panic into an error
func safeHandle(h Handler, rec journal.Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Debug("handler panic stack", "event", rec.Kind, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
	}()
	return h.Handle(rec)
}
