package report

import (
	"errors"
	"fmt"
	"time"
)

// NOTE: All report functions will only display if the appropriate log level is
// set.  Most report functions will simply fail silently if below their
// appropriate log level.

// ReportLowerError reports an error that occurred while lowering the named
// program.  Lowering errors are displayed with their kind as the banner tag;
// any other error is displayed as a standard error.
func ReportLowerError(program string, err error) {
	var le *LowerError
	if !errors.As(err, &le) {
		ReportStdError(program, err)
		return
	}

	rep.m.Lock()
	defer rep.m.Unlock()

	rep.errorCount++

	if rep.logLevel > LogLevelSilent {
		displayLowerError(program, le)
	}
}

// ReportWarning reports a non-fatal problem with the named program.
func ReportWarning(program string, message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.warnCount++

	if rep.logLevel >= LogLevelWarn {
		displayWarning(program, fmt.Sprintf(message, args...))
	}
}

// ReportStdError reports a non-fatal, standard Go error.
func ReportStdError(program string, err error) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.errorCount++

	if rep.logLevel > LogLevelSilent {
		displayStdError(program, err)
	}
}

// ReportInfo reports an informational message.  It is only displayed when the
// log level is verbose.
func ReportInfo(tag, message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel == LogLevelVerbose {
		displayInfo(tag, fmt.Sprintf(message, args...))
	}
}

// -----------------------------------------------------------------------------

// AnyErrors returns whether or not any errors were detected.
func AnyErrors() bool {
	rep.m.Lock()
	defer rep.m.Unlock()

	return rep.errorCount > 0
}

// Counts returns the number of errors and warnings reported so far.
func Counts() (errorCount, warnCount int) {
	rep.m.Lock()
	defer rep.m.Unlock()

	return rep.errorCount, rep.warnCount
}

// -----------------------------------------------------------------------------

// Phase is a handle to a running compilation phase.
type Phase struct {
	name  string
	start time.Time
}

// ReportBeginPhase reports the start of a compilation phase.
func ReportBeginPhase(name string) *Phase {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel == LogLevelVerbose {
		displayBeginPhase(name)
	}

	return &Phase{name: name, start: time.Now()}
}

// ReportEndPhase reports the end of a compilation phase along with its
// duration.
func ReportEndPhase(p *Phase) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel == LogLevelVerbose {
		displayEndPhase(p.name, time.Since(p.start), rep.errorCount == 0)
	}
}

// ReportCompilationFinished reports the concluding message for compilation:
// whether it succeeded, the error and warning totals, and the output path.
func ReportCompilationFinished(outputPath string) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel == LogLevelVerbose || (rep.logLevel > LogLevelSilent && rep.errorCount > 0) {
		displayCompilationFinished(rep.errorCount, rep.warnCount, outputPath)
	}
}
