package shipkit

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Level is the severity of a recorded notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Kind tells apart the reasons a stage reported something, so a missing
// resource is never confused with a cosmetic step that failed.
type Kind string

const (
	KindInfo            Kind = "info"
	KindMissingResource Kind = "missing-resource"
	KindOptionalStep    Kind = "optional-step"
	KindAudit           Kind = "audit"
	KindEmptyInput      Kind = "empty-input"
	KindUncompiled      Kind = "uncompiled-source"
)

// Notice is one recorded status line.
type Notice struct {
	Stage   string
	Level   Level
	Kind    Kind
	Message string
}

// color-compatible printer interface (works with *color.Theme and *color.Style)
type colorPrinter interface {
	Sprint(a ...any) string
}

// Reporter prints the human-readable status lines of a run and keeps every
// warning it printed.
type Reporter struct {
	Out io.Writer

	mu      sync.Mutex
	stage   string
	notices []Notice
}

// NewReporter returns a reporter writing to out (stdout when nil).
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{Out: out}
}

func (r *Reporter) print(p colorPrinter, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if p == nil {
		fmt.Fprintln(r.Out, msg)
		return
	}
	fmt.Fprintln(r.Out, p.Sprint(msg))
}

func (r *Reporter) record(level Level, kind Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Stage: r.stage, Level: level, Kind: kind, Message: msg})
}

// Stage prints the header of pipeline stage n of total and makes it the
// stage every following notice is attributed to.
func (r *Reporter) Stage(n, total int, name string) {
	r.mu.Lock()
	r.stage = name
	r.mu.Unlock()
	fmt.Fprint(r.Out, colArrow.Sprint("==> "))
	r.print(colNote, "[%d/%d] %s", n, total, name)
}

// Step prints a progress line.
func (r *Reporter) Step(format string, a ...any) {
	fmt.Fprint(r.Out, colArrow.Sprint("-> "))
	r.print(colSuccess, format, a...)
	r.record(LevelInfo, KindInfo, fmt.Sprintf(format, a...))
}

// Detail prints an indented line that is not recorded.
func (r *Reporter) Detail(format string, a ...any) {
	r.print(nil, "   "+format, a...)
}

// Warn prints and records a non-fatal condition of the given kind.
func (r *Reporter) Warn(kind Kind, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprint(r.Out, colArrow.Sprint("-> "))
	r.print(colWarn, "Warning: %s", msg)
	r.record(LevelWarn, kind, msg)
}

// Fail prints and records a fatal condition.
func (r *Reporter) Fail(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprint(r.Out, colArrow.Sprint("-> "))
	r.print(colError, "Error: %s", msg)
	r.record(LevelError, KindInfo, msg)
}

// Debugf prints only when Debug is set.
func (r *Reporter) Debugf(format string, a ...any) {
	if Debug {
		fmt.Fprintf(r.Out, format, a...)
	}
}

// Notices returns a copy of everything recorded so far.
func (r *Reporter) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Warnings returns the recorded warnings of the given kind.
func (r *Reporter) Warnings(kind Kind) []Notice {
	var out []Notice
	for _, n := range r.Notices() {
		if n.Level == LevelWarn && n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// interactive reports whether w is a terminal; progress bars and the pager
// are only used there.
func interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
