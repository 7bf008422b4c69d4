package report

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Kind classifies a lowering error.
type Kind int

// Enumeration of lowering error kinds.
const (
	UndefinedSymbol Kind = iota
	UndefinedFunction
	TypeMismatch
	ArgumentTypeMismatch
	ArgumentCountMismatch
	InvalidFieldIndex
	BlockAlreadyTerminated
	DuplicateDeclaration

	// CursorMismatch is raised when the builder's cursor is restored out of
	// order.  It always indicates a bug in the caller rather than bad input.
	CursorMismatch

	// NoInsertionPoint is raised when an instruction is emitted while the
	// builder is not positioned at any block.
	NoInsertionPoint
)

var kindNames = map[Kind]string{
	UndefinedSymbol:        "undefined symbol",
	UndefinedFunction:      "undefined function",
	TypeMismatch:           "type mismatch",
	ArgumentTypeMismatch:   "argument type mismatch",
	ArgumentCountMismatch:  "argument count mismatch",
	InvalidFieldIndex:      "invalid field index",
	BlockAlreadyTerminated: "block already terminated",
	DuplicateDeclaration:   "duplicate declaration",
	CursorMismatch:         "cursor mismatch",
	NoInsertionPoint:       "no insertion point",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// -----------------------------------------------------------------------------

// LowerError is an error that occurred while lowering a function.  All lowering
// errors are fatal to the function being lowered: they are returned up the
// call stack immediately and never recovered from locally.
type LowerError struct {
	// The kind of the error.
	Kind Kind

	// The name of the function in which the error occurred.  This is empty
	// until the error leaves the function's lowering.
	Func string

	// A short description of the construct that failed: eg. `call to sum`.
	Construct string

	// The error message.
	Message string
}

func (le *LowerError) Error() string {
	sb := strings.Builder{}

	if le.Func != "" {
		sb.WriteString("in function `")
		sb.WriteString(le.Func)
		sb.WriteString("`: ")
	}

	if le.Construct != "" {
		sb.WriteString(le.Construct)
		sb.WriteString(": ")
	}

	sb.WriteString(le.Kind.String())

	if le.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(le.Message)
	}

	return sb.String()
}

// Is makes lowering errors match any other lowering error of the same kind so
// that errors.Is can be used against the kind sentinels below.
func (le *LowerError) Is(target error) bool {
	if tle, ok := target.(*LowerError); ok {
		return le.Kind == tle.Kind
	}

	return false
}

// Sentinel errors which match any lowering error of their kind.
var (
	ErrUndefinedSymbol        = &LowerError{Kind: UndefinedSymbol}
	ErrUndefinedFunction      = &LowerError{Kind: UndefinedFunction}
	ErrTypeMismatch           = &LowerError{Kind: TypeMismatch}
	ErrArgumentTypeMismatch   = &LowerError{Kind: ArgumentTypeMismatch}
	ErrArgumentCountMismatch  = &LowerError{Kind: ArgumentCountMismatch}
	ErrInvalidFieldIndex      = &LowerError{Kind: InvalidFieldIndex}
	ErrBlockAlreadyTerminated = &LowerError{Kind: BlockAlreadyTerminated}
	ErrDuplicateDeclaration   = &LowerError{Kind: DuplicateDeclaration}
	ErrCursorMismatch         = &LowerError{Kind: CursorMismatch}
	ErrNoInsertionPoint       = &LowerError{Kind: NoInsertionPoint}
)

// Raise creates a new lowering error.
func Raise(kind Kind, construct string, msg string, args ...interface{}) *LowerError {
	return &LowerError{
		Kind:      kind,
		Construct: construct,
		Message:   fmt.Sprintf(msg, args...),
	}
}

// KindOf returns the kind of the lowering error wrapped by err, if any.
func KindOf(err error) (Kind, bool) {
	var le *LowerError
	if errors.As(err, &le) {
		return le.Kind, true
	}

	return 0, false
}

// IsKind returns whether err wraps a lowering error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// InFunc attaches the name of the enclosing function to a lowering error that
// does not yet carry one.  Errors of other types are returned unchanged.
func InFunc(err error, funcName string) error {
	var le *LowerError
	if errors.As(err, &le) && le.Func == "" {
		le.Func = funcName
	}

	return err
}

// -----------------------------------------------------------------------------

// ReportICE reports an internal compiler error.  These are errors that
// specifically result for a bug or unexpected condition occurring with the
// compiler: they are not intended to ever happen.  These errors are always
// displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	displayICE(fmt.Sprintf(message, args...))

	os.Exit(-1)
}

// ReportFatal reports a fatal error.  These are errors that should cause all
// compilation to stop immediately.  However, they are expected errors that
// generally result from invalid configuration of some form: a missing project
// file, an unknown program name, an unwritable output directory, etc.
func ReportFatal(message string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayFatal(fmt.Sprintf(message, args...))
	}

	os.Exit(1)
}

// CatchErrors catches any panic raised while a program is being lowered or
// emitted and reports it as an error against that program.  This is used to
// stop a backend failure in one program from taking down the whole build.
// NB: This function must ALWAYS be deferred.
func CatchErrors(program string) {
	if x := recover(); x != nil {
		if err, ok := x.(error); ok {
			ReportStdError(program, err)
		} else {
			ReportStdError(program, fmt.Errorf("%v", x))
		}
	}
}
