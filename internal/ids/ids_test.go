package ids

import (
	"errors"
	"testing"
)

func TestNewProducesDistinctIDs(t *testing.T) {
	seen := make(map[ShapeID]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New[ShapeID]()
		if len(id) != 36 {
			t.Fatalf("expected uuid-formatted id, got %q", id)
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestParse(t *testing.T) {
	id, err := Parse[PageID]("  pg-1 ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if id != PageID("pg-1") {
		t.Fatalf("Parse() = %q, want pg-1", id)
	}
	if _, err := Parse[PageID]("   "); !errors.Is(err, ErrBlankID) {
		t.Fatalf("Parse(blank) error = %v, want ErrBlankID", err)
	}
}

func TestStrings(t *testing.T) {
	got := Strings([]LayerID{"a", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Strings() = %v", got)
	}
}
