package journal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"edtrack/internal/log"
)

// Journal file names embed their creation time, so lexical order is
// chronological order.
const filePattern = "Journal.*.log"

// Position marks how far into the journal directory reading has progressed.
// Offset counts bytes of complete lines only.
type Position struct {
	Path   string
	Offset int64
}

// JournalFiles lists the journal files in dir, oldest first
func JournalFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePattern))
	if err != nil {
		return nil, fmt.Errorf("list journals in %s: %w", dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// IsJournalFile reports whether path names a journal file
func IsJournalFile(path string) bool {
	ok, _ := filepath.Match(filePattern, filepath.Base(path))
	return ok
}

// ReadFrom decodes every complete line of r. Lines that fail to decode are
// logged and skipped. It returns the records and the number of bytes
// consumed by complete lines, so a follower can resume after them.
func ReadFrom(r io.Reader, name string) ([]Record, int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var (
		records  []Record
		consumed int64
		lineNo   int
	)

	for {
		line, err := br.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// A trailing line without newline may still be mid-write.
			return records, consumed, nil
		}
		if err != nil {
			return records, consumed, fmt.Errorf("read %s: %w", name, err)
		}
		consumed += int64(len(line))
		lineNo++

		rec, err := Decode(line)
		if err != nil {
			if !errors.Is(err, ErrEmptyLine) {
				log.Warn("skipping undecodable journal line", "file", name, "line", lineNo, "error", err)
			}
			continue
		}
		records = append(records, rec)
	}
}

// utf8BOM is written by older game builds at the start of a journal
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ReadFile decodes a whole journal file starting at offset. The returned
// offset counts raw file bytes, so bytes are never re-encoded on the way in.
// A byte order mark is only skipped at the start of the file.
func ReadFile(path string, offset int64) ([]Record, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, 0, fmt.Errorf("seek journal %s: %w", path, err)
		}
	}

	br := bufio.NewReaderSize(f, 64*1024)
	pos := offset
	if offset == 0 {
		if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
			_, _ = br.Discard(len(utf8BOM))
			pos = int64(len(utf8BOM))
		}
	}

	records, n, err := ReadFrom(br, filepath.Base(path))
	if err != nil {
		return records, offset, err
	}
	return records, pos + n, nil
}

// DirSource reads every journal in a directory. It is the replay source for
// the ingest controller and remembers where it stopped so a Tailer can
// continue without gaps.
type DirSource struct {
	Dir string

	mu  sync.Mutex
	end Position
}

// NewDirSource creates a source over dir
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Records returns all records in the directory, oldest file first
func (s *DirSource) Records(ctx context.Context) ([]Record, error) {
	files, err := JournalFiles(s.Dir)
	if err != nil {
		return nil, err
	}

	var (
		all []Record
		end Position
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, offset, err := ReadFile(path, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		end = Position{Path: path, Offset: offset}
	}

	s.mu.Lock()
	s.end = end
	s.mu.Unlock()

	log.Debug("journal directory read", "dir", s.Dir, "files", len(files), "records", len(all))
	return all, nil
}

// End returns the position just after the last complete line read by Records
func (s *DirSource) End() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.end
}

// MemorySource is an in-memory replay source
type MemorySource struct {
	mu      sync.Mutex
	records []Record
}

// Append adds records to the source
func (m *MemorySource) Append(records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

// Records returns a copy of everything appended so far
func (m *MemorySource) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

// Lines decodes a newline separated blob; used by tests and the replay command
func Lines(blob string) []Record {
	if !strings.HasSuffix(blob, "\n") {
		blob += "\n"
	}
	records, _, _ := ReadFrom(strings.NewReader(blob), "inline")
	return records
}
