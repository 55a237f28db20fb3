// Package logger provides structured logging for the analysis pipeline.
package logger

// Logger provides structured logging with a component tag and free-form fields.
type Logger interface {
	Info(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Debug(component, message string, fields map[string]interface{})
}

type nop struct{}

func (nop) Info(string, string, map[string]interface{}) {}
func (nop) Error(string, error, map[string]interface{}) {}
func (nop) Warning(string, string, map[string]interface{}) {}
func (nop) Debug(string, string, map[string]interface{}) {}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

// OrNop returns l, or a discarding Logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nop{}
	}
	return l
}

// ForCell returns a Logger that tags every entry with the cell id. Loggers
// with their own WithCell method are asked first.
func ForCell(l Logger, cellID string) Logger {
	l = OrNop(l)
	if c, ok := l.(interface{ WithCell(string) Logger }); ok {
		return c.WithCell(cellID)
	}
	if _, ok := l.(nop); ok {
		return l
	}
	return cellLogger{next: l, cell: cellID}
}

type cellLogger struct {
	next Logger
	cell string
}

func (c cellLogger) tag(fields map[string]interface{}) map[string]interface{} {
	if _, ok := fields["cell"]; ok {
		return fields
	}
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["cell"] = c.cell
	return out
}

func (c cellLogger) Info(component, message string, fields map[string]interface{}) {
	c.next.Info(component, message, c.tag(fields))
}

func (c cellLogger) Error(component string, err error, fields map[string]interface{}) {
	c.next.Error(component, err, c.tag(fields))
}

func (c cellLogger) Warning(component, message string, fields map[string]interface{}) {
	c.next.Warning(component, message, c.tag(fields))
}

func (c cellLogger) Debug(component, message string, fields map[string]interface{}) {
	c.next.Debug(component, message, c.tag(fields))
}
