package workflow

import (
	"errors"
	"testing"
)

func TestError_IsAndUnwrap(t *testing.T) {
	err := NodeNotFoundError("CanExecute", "0:7")

	if !errors.Is(err, ErrNodeNotFound) {
		t.Error("errors.Is should match ErrNodeNotFound")
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should be true")
	}

	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatal("errors.As should extract *Error")
	}
	if werr.ID != "0:7" || werr.Op != "CanExecute" {
		t.Errorf("unexpected error fields: %+v", werr)
	}
	if got, want := err.Error(), "CanExecute node 0:7: node not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_PortAndContext(t *testing.T) {
	err := NewError("Connect").Node("0:3").Port(1).Cause(ErrPortOccupied).Err()
	if got, want := err.Error(), "Connect node 0:3 (port 1): inport already connected"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	c := Connection{Source: "0:1", SourcePort: 0, Dest: "0:2", DestPort: 0}
	err = ConnectionError("Disconnect", c, ErrInvalidConnection)
	if got, want := err.Error(), "Disconnect connection (0:1[0] -> 0:2[0]): invalid connection"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if IsNotFound(err) {
		t.Error("connection error should not be a not-found error")
	}
}
