package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologAdapter implements Logger on top of zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
	cell   string
}

// NewZerolog creates a JSON logger writing to writer at the given level.
func NewZerolog(writer io.Writer, level zerolog.Level) *ZerologAdapter {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	return &ZerologAdapter{logger: zerolog.New(writer).Level(level).With().Timestamp().Logger()}
}

// NewConsoleLogger writes human-readable lines to stderr so stdout stays
// free for the JSON records.
func NewConsoleLogger(level zerolog.Level) *ZerologAdapter {
	return NewZerolog(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, level)
}

// WithCell returns a child logger that tags every event with the cell id.
func (z *ZerologAdapter) WithCell(cellID string) Logger {
	return &ZerologAdapter{logger: z.logger.With().Str("cell", cellID).Logger(), cell: cellID}
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	z.emit(z.logger.Info(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Error(component string, err error, fields map[string]interface{}) {
	z.emit(z.logger.Error(), component, fields).Err(err).Msg("operation failed")
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	z.emit(z.logger.Warn(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	z.emit(z.logger.Debug(), component, fields).Msg(message)
}

// emit fills a zerolog event. Disabled levels give a nil event, which
// zerolog treats as a no-op. A cell field already carried by a child logger
// is not repeated.
func (z *ZerologAdapter) emit(event *zerolog.Event, component string, fields map[string]interface{}) *zerolog.Event {
	if event == nil {
		return nil
	}
	event = event.Str("component", component)
	for k, v := range fields {
		if k == "cell" && z.cell != "" {
			continue
		}
		event = event.Interface(k, v)
	}
	return event
}
