package report

import (
	"errors"
	"fmt"
	"testing"
)

func TestLowerErrorMessage(t *testing.T) {
	tests := []struct {
		err  *LowerError
		want string
	}{
		{
			Raise(UndefinedSymbol, "", "`x` is not defined"),
			"undefined symbol: `x` is not defined",
		},
		{
			&LowerError{Kind: TypeMismatch, Func: "main", Construct: "assignment to `b`", Message: "expected number but got float"},
			"in function `main`: assignment to `b`: type mismatch: expected number but got float",
		},
		{
			&LowerError{Kind: BlockAlreadyTerminated},
			"block already terminated",
		},
	}

	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestErrorKindMatching(t *testing.T) {
	var err error = Raise(ArgumentCountMismatch, "call to `sum`", "expected 2 arguments but got 1")
	wrapped := fmt.Errorf("lowering program: %w", err)

	if !errors.Is(wrapped, ErrArgumentCountMismatch) {
		t.Error("wrapped error should match its kind sentinel")
	}

	if errors.Is(wrapped, ErrArgumentTypeMismatch) {
		t.Error("wrapped error should not match another kind")
	}

	if !IsKind(wrapped, ArgumentCountMismatch) {
		t.Error("IsKind should see through wrapping")
	}

	if IsKind(errors.New("plain"), ArgumentCountMismatch) {
		t.Error("plain errors have no kind")
	}
}

func TestInFunc(t *testing.T) {
	err := InFunc(Raise(UndefinedFunction, "call to `f`", ""), "inner")
	err = InFunc(err, "outer")

	var le *LowerError
	if !errors.As(err, &le) {
		t.Fatal("expected a lowering error")
	}

	if le.Func != "inner" {
		t.Errorf("Func = %q, want the innermost function", le.Func)
	}

	plain := errors.New("plain")
	if InFunc(plain, "main") != plain {
		t.Error("InFunc should not touch other errors")
	}
}

func TestCounts(t *testing.T) {
	InitReporter(LogLevelSilent)

	ReportLowerError("loop", Raise(TypeMismatch, "", ""))
	ReportStdError("loop", errors.New("disk full"))
	ReportWarning("loop", "unreachable code")

	errs, warns := Counts()
	if errs != 2 || warns != 1 {
		t.Errorf("Counts() = %d, %d; want 2, 1", errs, warns)
	}

	if !AnyErrors() {
		t.Error("AnyErrors() should be true")
	}

	if level, ok := LogLevelFromName("warn"); !ok || level != LogLevelWarn {
		t.Errorf("LogLevelFromName(warn) = %d, %v", level, ok)
	}
}
