package logger

import "sync"

// Entry is a single captured log call.
type Entry struct {
	Level     string
	Component string
	Message   string
	Err       error
	Fields    map[string]interface{}
}

// Memory is a Logger that keeps every entry in memory. Tests use it to
// assert on warnings emitted while inputs are normalized.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) add(e Entry) {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
}

func (m *Memory) Info(component, message string, fields map[string]interface{}) {
	m.add(Entry{Level: "info", Component: component, Message: message, Fields: fields})
}

func (m *Memory) Error(component string, err error, fields map[string]interface{}) {
	m.add(Entry{Level: "error", Component: component, Message: "operation failed", Err: err, Fields: fields})
}

func (m *Memory) Warning(component, message string, fields map[string]interface{}) {
	m.add(Entry{Level: "warn", Component: component, Message: message, Fields: fields})
}

func (m *Memory) Debug(component, message string, fields map[string]interface{}) {
	m.add(Entry{Level: "debug", Component: component, Message: message, Fields: fields})
}

// Entries returns a copy of the captured entries.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Count returns how many entries were logged at level.
func (m *Memory) Count(level string) int {
	n := 0
	for _, e := range m.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}
