package history

import (
	"strconv"
	"testing"
)

func TestAppendBounded(t *testing.T) {
	s := NewStore(3)
	for i := 1; i <= 5; i++ {
		s.Append(1, "user", strconv.Itoa(i))
	}

	lines := s.Lines(1)
	if len(lines) != 3 {
		t.Fatalf("expected 3 retained entries, got %d: %v", len(lines), lines)
	}
	if lines[0] != "user: 3" || lines[2] != "user: 5" {
		t.Fatalf("unexpected window contents: %v", lines)
	}
}

func TestChatsIsolated(t *testing.T) {
	s := NewStore(10)
	s.Append(1, "a", "привет")
	s.Append(2, "b", "пока")

	if got := s.Lines(1); len(got) != 1 || got[0] != "a: привет" {
		t.Fatalf("chat 1 window wrong: %v", got)
	}
	if got := s.Lines(2); len(got) != 1 || got[0] != "b: пока" {
		t.Fatalf("chat 2 window wrong: %v", got)
	}
}

func TestEmptyContentIgnored(t *testing.T) {
	s := NewStore(5)
	s.Append(1, "a", "")
	if got := s.Lines(1); len(got) != 0 {
		t.Fatalf("empty content should not be recorded: %v", got)
	}
}
