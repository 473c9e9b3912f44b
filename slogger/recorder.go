package slogger

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one record captured by a Recorder.
type Entry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// Recorder is a Logger that keeps every record in memory. Tests use it to
// assert on warnings and errors emitted by components.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  map[string]any
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}, fields: map[string]any{}}
}

func (r *Recorder) record(level, msg string, keysAndValues []any) {
	fields := make(map[string]any, len(r.fields)+len(keysAndValues)/2)
	for k, v := range r.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	r.mu.Lock()
	*r.entries = append(*r.entries, Entry{Level: level, Message: msg, Fields: fields})
	r.mu.Unlock()
}

func (r *Recorder) Debug(msg string, keysAndValues ...any) { r.record("DEBUG", msg, keysAndValues) }
func (r *Recorder) Info(msg string, keysAndValues ...any)  { r.record("INFO", msg, keysAndValues) }
func (r *Recorder) Warn(msg string, keysAndValues ...any)  { r.record("WARN", msg, keysAndValues) }
func (r *Recorder) Error(msg string, keysAndValues ...any) { r.record("ERROR", msg, keysAndValues) }

func (r *Recorder) With(keysAndValues ...any) Logger {
	fields := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return &Recorder{mu: r.mu, entries: r.entries, fields: fields}
}

// Entries returns a copy of everything recorded so far, including records
// made through loggers derived with With.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Contains reports whether any record at level has a message containing substr.
func (r *Recorder) Contains(level, substr string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
