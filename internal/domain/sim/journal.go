package sim

import (
	"fmt"
	"time"
)

// Level is the severity of a session log entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one line of the session log.
type Entry struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// String formats the entry the way the page shows it: "[15:04:05] message"
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// Journal is the session log. It grows without bound until cleared.
// Sequence numbers keep increasing across clears so clients can tell a
// cleared log from a stale one.
type Journal struct {
	entries []Entry
	nextSeq uint64
}

// NewJournal creates an empty journal
func NewJournal() *Journal {
	return &Journal{nextSeq: 1}
}

func (j *Journal) append(now time.Time, level Level, format string, args ...interface{}) Entry {
	e := Entry{
		Seq:     j.nextSeq,
		Time:    now,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	}
	j.nextSeq++
	j.entries = append(j.entries, e)
	return e
}

// Entries returns a copy of all entries, oldest first
func (j *Journal) Entries() []Entry {
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Since returns entries with a sequence number greater than seq
func (j *Journal) Since(seq uint64) []Entry {
	for i, e := range j.entries {
		if e.Seq > seq {
			out := make([]Entry, len(j.entries)-i)
			copy(out, j.entries[i:])
			return out
		}
	}
	return nil
}

// Len returns the number of entries
func (j *Journal) Len() int {
	return len(j.entries)
}

// Clear drops every entry
func (j *Journal) Clear() {
	j.entries = nil
}
