package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyLine is returned for blank journal lines
	ErrEmptyLine = errors.New("empty journal line")
	// ErrNoEvent is returned when a line decodes but carries no event name
	ErrNoEvent = errors.New("journal line has no event field")
)

// Decode parses one journal line into a Record. Numbers are kept as
// json.Number so large identifiers (MissionID, FID digits) survive intact.
func Decode(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Record{}, ErrEmptyLine
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	fields := Fields{}
	if err := dec.Decode(&fields); err != nil {
		return Record{}, fmt.Errorf("decode journal line: %w", err)
	}

	kind := fields.String("event")
	if kind == "" {
		return Record{}, ErrNoEvent
	}

	var ts time.Time
	if raw := fields.String("timestamp"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Record{}, fmt.Errorf("decode %s timestamp %q: %w", kind, raw, err)
		}
		ts = parsed.UTC()
	}

	delete(fields, "event")
	delete(fields, "timestamp")

	return Record{Kind: kind, Timestamp: ts, Fields: fields}, nil
}
