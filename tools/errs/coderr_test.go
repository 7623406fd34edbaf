package errs

import (
	"errors"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := PermissionError.WrapMsg("not the sender")
	code, msg := CodeOf(err)
	if code != PermissionError.Code || msg != PermissionError.Msg {
		t.Fatalf("CodeOf = (%d,%q)", code, msg)
	}

	code, _ = CodeOf(errors.New("plain"))
	if code != ServerInternalError.Code {
		t.Fatalf("plain error should map to internal, got %d", code)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := RecordNotFoundError.WrapMsg("msg_id=1")
	if !errors.Is(err, RecordNotFoundError) {
		t.Fatalf("errors.Is should match by business code")
	}
	if errors.Is(err, PermissionError) {
		t.Fatalf("different codes must not match")
	}
}

func TestWithDetailDoesNotMutate(t *testing.T) {
	before := ArgsError.Detail
	_ = ArgsError.WithDetail("field x")
	if ArgsError.Detail != before {
		t.Fatalf("predeclared code mutated")
	}
}
