package corepg

import "fmt"

// Kind identifies the taxonomy of an Error. Unlike a plain wrapped
// string, a Kind can be switched on so callers can tell a Frozen
// stream from a GrammarError without parsing message text.
type Kind int

const (
	// KindFrozen is raised when appending to a frozen Stream.
	KindFrozen Kind = iota + 1
	// KindExpiredView is raised when dereferencing a Cursor whose
	// position has been trimmed away.
	KindExpiredView
	// KindInvalidIterator is raised when comparing Cursors from
	// distinct chains.
	KindInvalidIterator
	// KindParseError is raised by the parser driver; recoverable by
	// an outer unit's error handler, if any.
	KindParseError
	// KindBacktrack is internal control flow for look-ahead
	// backtracking. It never escapes the driver.
	KindBacktrack
	// KindMissingData is a synonym for wait_for_input failing against
	// a frozen stream.
	KindMissingData
	// KindSinkError is a Sink usage error; fatal to the sink.
	KindSinkError
	// KindGrammarError is raised by Grammar.Finalize; fatal to the
	// whole compilation, never raised at run time.
	KindGrammarError
	// KindOutOfRange is raised by decoders, converted to a
	// KindParseError at the field boundary.
	KindOutOfRange
	// KindInvalidArgument is raised by decoders, converted to a
	// KindParseError at the field boundary.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindFrozen:
		return "Frozen"
	case KindExpiredView:
		return "ExpiredView"
	case KindInvalidIterator:
		return "InvalidIterator"
	case KindParseError:
		return "ParseError"
	case KindBacktrack:
		return "Backtrack"
	case KindMissingData:
		return "MissingData"
	case KindSinkError:
		return "SinkError"
	case KindGrammarError:
		return "GrammarError"
	case KindOutOfRange:
		return "OutOfRange"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Location is an abstract source location attached to grammar-level
// errors. It is deliberately minimal: the full HILTI/Spicy AST
// location machinery is out of scope (see SPEC_FULL.md §1).
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	if l.Line <= 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Error is the concrete error type raised throughout corepg. Kind
// lets callers do an errors.Is-style comparison against the package's
// Err* sentinels; Message carries the human-readable detail the
// teacher pack would normally fold into a fmt.Errorf string.
type Error struct {
	Kind     Kind
	Message  string
	Location Location

	// Offset and Available are populated for parse-time errors per
	// spec.md §4.8 (wait_for_input's "available = view.size()").
	Offset    int64
	Available int64
}

func (e *Error) Error() string {
	loc := e.Location.String()
	switch {
	case loc != "" && e.Offset > 0:
		return fmt.Sprintf("%s: %s (at offset %d, %s)", e.Kind, e.Message, e.Offset, loc)
	case loc != "":
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, loc)
	case e.Offset > 0:
		return fmt.Sprintf("%s: %s (at offset %d)", e.Kind, e.Message, e.Offset)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Is implements the errors.Is protocol by comparing Kind, so
// errors.Is(err, ErrFrozen) works regardless of message text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinels usable with errors.Is for kind-only comparisons, e.g.
// errors.Is(err, corepg.ErrFrozen).
var (
	ErrFrozen          = &Error{Kind: KindFrozen}
	ErrExpiredView     = &Error{Kind: KindExpiredView}
	ErrInvalidIterator = &Error{Kind: KindInvalidIterator}
	ErrBacktrack       = &Error{Kind: KindBacktrack}
	ErrMissingData     = &Error{Kind: KindMissingData}
)
