package postgres

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestULIDGeneratorIsMonotonic(t *testing.T) {
	g := NewULIDGenerator()

	prev := g.Generate()
	for i := 0; i < 1000; i++ {
		next := g.Generate()
		if next <= prev {
			t.Fatalf("expected %s > %s", next, prev)
		}
		if _, err := ulid.ParseStrict(next); err != nil {
			t.Fatalf("generated invalid ULID %q: %v", next, err)
		}
		prev = next
	}
}

func TestPrefixedULIDGenerator(t *testing.T) {
	g := NewPrefixedULIDGenerator("VL-")

	ref := g.Generate()
	if !strings.HasPrefix(ref, "VL-") || len(ref) != len("VL-")+26 {
		t.Fatalf("unexpected reference %q", ref)
	}
}
