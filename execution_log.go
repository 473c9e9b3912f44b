package skillet

import (
	"sync"
	"time"
)

// Entry is one line of an ExecutionLog.
type Entry struct {
	Time    time.Time `json:"time"`
	Skill   string    `json:"skill,omitempty"`
	Message string    `json:"message"`
}

// ExecutionLog collects the output of one logical invocation: a user turn or
// a sandbox test. It is the only channel through which a skill reports
// results. Create one per invocation; it is safe for concurrent appends.
type ExecutionLog struct {
	mu      sync.Mutex
	entries []Entry
}

// NewExecutionLog returns an empty log.
func NewExecutionLog() *ExecutionLog {
	return &ExecutionLog{}
}

// Append adds a message not attributed to any skill.
func (l *ExecutionLog) Append(message string) {
	l.add("", message)
}

func (l *ExecutionLog) add(skill, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Time: time.Now(), Skill: skill, Message: message})
}

// sink returns a function that appends messages attributed to skill.
func (l *ExecutionLog) sink(skill string) func(string) {
	return func(message string) { l.add(skill, message) }
}

// Lines returns the messages in order.
func (l *ExecutionLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Message
	}
	return out
}

// Entries returns a copy of every entry in order.
func (l *ExecutionLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *ExecutionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear removes every entry.
func (l *ExecutionLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
