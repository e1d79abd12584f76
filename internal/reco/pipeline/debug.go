package pipeline

import (
	"io"
	"log"
)

// Log stream prefixes. Each stream carries its own tag so a combined
// writer still separates failed events from summaries and cutflow rows.
const (
	OpsPrefix   = "[pipeline:ops] "
	DiagPrefix  = "[pipeline:diag] "
	TracePrefix = "[pipeline:trace] "
)

// eventLog holds the per-event log streams. A nil logger mutes its stream.
type eventLog struct {
	ops   *log.Logger // events aborted by a stage
	diag  *log.Logger // one line per processed event
	trace *log.Logger // one line per stage and written role
}

var logs eventLog

// SetLogWriters routes the ops, diag and trace streams. Pass nil for any
// writer to mute that stream. Not safe to call while events are processed.
func SetLogWriters(ops, diag, trace io.Writer) {
	logs = eventLog{
		ops:   streamLogger(OpsPrefix, ops),
		diag:  streamLogger(DiagPrefix, diag),
		trace: streamLogger(TracePrefix, trace),
	}
}

func streamLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
}

func logTo(l *log.Logger, format string, args []any) {
	if l != nil {
		l.Printf(format, args...)
	}
}

func opsf(format string, args ...any)   { logTo(logs.ops, format, args) }
func diagf(format string, args ...any)  { logTo(logs.diag, format, args) }
func tracef(format string, args ...any) { logTo(logs.trace, format, args) }
