package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		if logger := New(level); logger == nil || logger.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestComponentNilReceiver(t *testing.T) {
	var logger *Logger
	if got := logger.Component("scheduling"); got == nil {
		t.Fatal("Component on nil logger should fall back to default")
	}
}
