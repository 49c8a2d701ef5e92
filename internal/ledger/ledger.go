// Package ledger holds the derived game state rebuilt from the journal:
// missions, cargo, mining sessions, exploration sales, bounties, the
// commander profile and the travel log. Every ledger is safe to read from
// any goroutine; writes come from the ingest handlers only.
package ledger

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"edtrack/internal/bus"
)

var (
	// ErrUnknownMission is returned when an event names a mission that is not in the table
	ErrUnknownMission = errors.New("unknown mission")
	// ErrMissionClosed is returned when an event tries to move a terminal mission
	ErrMissionClosed = errors.New("mission already closed")
	// ErrUnknownBody is returned when an event names a body not yet scanned
	ErrUnknownBody = errors.New("unknown body")
)

// Notifier is the part of the notification bus a ledger needs
type Notifier interface {
	Notify(ch bus.Channel)
}

// notify is nil-safe so ledgers can be built without a bus in tests
func notify(n Notifier, ch bus.Channel) {
	if n != nil {
		n.Notify(ch)
	}
}

var titleCaser = cases.Title(language.English)

// NormalizeCommodity turns a journal symbol such as "$lowtemperaturediamond_name;"
// into the bare lowercase identity "lowtemperaturediamond".
func NormalizeCommodity(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, ";")
	s = strings.TrimSuffix(s, "_name")
	return s
}

// DisplayName is the fallback label for a commodity with no localised name
func DisplayName(commodity string) string {
	return titleCaser.String(strings.ReplaceAll(NormalizeCommodity(commodity), "_", " "))
}
