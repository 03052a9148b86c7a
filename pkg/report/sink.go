package report

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/modscan/pkg/discovery"
	"github.com/matzehuels/modscan/pkg/resolve"
)

// Level is the severity a block is logged at.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Sink receives rendered blocks.
type Sink interface {
	Log(level Level, category string, msg string)
}

// SinkFunc adapts a function to the [Sink] interface.
type SinkFunc func(level Level, category string, msg string)

// Log calls f.
func (f SinkFunc) Log(level Level, category string, msg string) { f(level, category, msg) }

// DumpNonFabric logs [NonFabric] at info level. Nothing is logged for an
// empty list.
func DumpNonFabric(s Sink, locators []string) {
	emit(s, LevelInfo, CategoryDiscovery, NonFabric(locators))
}

// DumpProviders logs [Providers] at info level.
func DumpProviders(s Sink, accepted []*discovery.Candidate, g *discovery.Graph) {
	emit(s, LevelInfo, CategoryResolution, Providers(accepted, g))
}

// DumpConflicts logs [Conflicts] at warn level.
func DumpConflicts(s Sink, diags []resolve.Conflict) {
	emit(s, LevelWarn, CategoryResolution, Conflicts(diags))
}

func emit(s Sink, level Level, category, msg string) {
	if s == nil || msg == "" {
		return
	}
	s.Log(level, category, msg)
}

// LogSink writes blocks to a charmbracelet logger with the category as a
// structured field.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink wraps l.
func NewLogSink(l *log.Logger) *LogSink {
	return &LogSink{logger: l}
}

// Log implements [Sink].
func (s *LogSink) Log(level Level, category string, msg string) {
	s.logger.Log(toLogLevel(level), msg, "category", category)
}

func toLogLevel(l Level) log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

var _ Sink = (*LogSink)(nil)
