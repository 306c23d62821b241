package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := Conversion(PhaseCall, []string{"arg[1]"}, "string", "i", "five")

	msg := err.Error()
	for _, want := range []string{"[call]", "conversion", "arg[1]", "Go type string", "signature code i"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestError_Is_MatchesPhaseAndKind(t *testing.T) {
	err := AlreadyRunning()

	if !stderrors.Is(err, &Error{Phase: PhaseCall, Kind: KindAlreadyRunning}) {
		t.Error("expected match on same phase and kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseResume, Kind: KindAlreadyRunning}) {
		t.Error("unexpected match on different phase")
	}
	if stderrors.Is(err, &Error{Phase: PhaseCall, Kind: KindNotRunning}) {
		t.Error("unexpected match on different kind")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("engine said no")
	err := Compile(cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "engine said no") {
		t.Errorf("message %q missing cause text", err.Error())
	}
}

func TestOutOfBounds_NoOverflow(t *testing.T) {
	// offset+length may exceed uint32
	err := OutOfBounds(4294967295, 10, 65536)
	if !strings.Contains(err.Error(), "4294967305") {
		t.Errorf("expected 64-bit end offset in %q", err.Error())
	}
}
