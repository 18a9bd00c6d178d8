package companion

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

func TestNoop(t *testing.T) {
	if err := (Noop{}).Start(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Noop.Start() error = %v, want ErrUnavailable", err)
	}
}

func TestCommandMissingBinary(t *testing.T) {
	c := NewCommand([]string{"wifiman-definitely-not-installed"}, time.Second)
	if err := c.Start(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Start() error = %v, want ErrUnavailable", err)
	}
	if c.Started() {
		t.Error("Started() = true after failure")
	}
}

func TestCommandEmpty(t *testing.T) {
	if err := NewCommand(nil, 0).Start(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Start() error = %v, want ErrUnavailable", err)
	}
}

func TestCommandStartsOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX true(1)")
	}

	c := NewCommand([]string{"true"}, time.Second)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !c.Started() {
		t.Fatal("Started() = false")
	}

	c.Argv = []string{"false"}
	if err := c.Start(context.Background()); err != nil {
		t.Errorf("second Start() error = %v, want nil", err)
	}
}

func TestCommandFailingExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX false(1)")
	}

	c := NewCommand([]string{"false"}, time.Second)
	if err := c.Start(context.Background()); err == nil {
		t.Error("Start() expected error for non-zero exit")
	}
}
