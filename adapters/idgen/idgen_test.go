package idgen_test

import (
	"strings"
	"testing"

	"github.com/fieldforge/fieldforge/adapters/idgen"
)

func TestUUID_Unique(t *testing.T) {
	g := idgen.UUID{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.New()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestPrefixed(t *testing.T) {
	g := idgen.NewPrefixed(idgen.PrefixRecord)
	id := g.New()
	if !strings.HasPrefix(id, "rec_") {
		t.Errorf("id %q missing rec_ prefix", id)
	}
	if len(id) <= len("rec_") {
		t.Errorf("id %q has no body", id)
	}
}

func TestSequential(t *testing.T) {
	g := idgen.NewSequential("fld_")

	if got := g.New(); got != "fld_1" {
		t.Errorf("first id = %q, want fld_1", got)
	}
	if got := g.New(); got != "fld_2" {
		t.Errorf("second id = %q, want fld_2", got)
	}

	g.Reset()
	if got := g.New(); got != "fld_1" {
		t.Errorf("id after reset = %q, want fld_1", got)
	}
}
