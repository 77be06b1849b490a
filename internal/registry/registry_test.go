package registry

import "testing"

func TestRegistry_ClaimAndLookup(t *testing.T) {
	r := New[string]()
	r.Claim(7, Assignment[string]{Server: "srvA", Address: "10.0.0.5", Port: 9701})

	a, ok := r.Lookup(7)
	if !ok {
		t.Fatal("expected map 7 to be claimed")
	}
	if a.Server != "srvA" || a.Address != "10.0.0.5" || a.Port != 9701 {
		t.Fatalf("unexpected assignment: %+v", a)
	}

	if _, ok := r.Lookup(8); ok {
		t.Fatal("expected map 8 to be unclaimed")
	}
}

func TestRegistry_ReleaseClearsOnlyThatServer(t *testing.T) {
	r := New[string]()
	r.Claim(1, Assignment[string]{Server: "A"})
	r.Claim(2, Assignment[string]{Server: "A"})
	r.Claim(3, Assignment[string]{Server: "B"})

	freed := r.Release("A")
	if len(freed) != 2 {
		t.Fatalf("expected 2 freed maps, got %d", len(freed))
	}
	if _, ok := r.Lookup(1); ok {
		t.Fatal("map 1 should be released")
	}
	if _, ok := r.Lookup(2); ok {
		t.Fatal("map 2 should be released")
	}
	if _, ok := r.Lookup(3); !ok {
		t.Fatal("map 3 (server B) should remain claimed")
	}
}

func TestRegistry_ClaimReplacesPriorOwner(t *testing.T) {
	r := New[string]()
	r.Claim(5, Assignment[string]{Server: "A"})
	r.Claim(5, Assignment[string]{Server: "B"})

	a, _ := r.Lookup(5)
	if a.Server != "B" {
		t.Fatalf("expected map 5 now owned by B, got %v", a.Server)
	}
	// A's reverse index must no longer list map 5.
	freed := r.Release("A")
	if len(freed) != 0 {
		t.Fatalf("expected A to own nothing after replacement, freed=%v", freed)
	}
}

func TestRegistry_UpdateStatsIgnoresUnknownMap(t *testing.T) {
	r := New[string]()
	r.UpdateStats(99, 5, 2, []int64{1, 2}) // must not panic, silently ignored
	if _, ok := r.Lookup(99); ok {
		t.Fatal("unclaimed map should not materialize from UpdateStats")
	}
}

func TestRegistry_Iterate(t *testing.T) {
	r := New[string]()
	r.Claim(1, Assignment[string]{Server: "A"})
	r.Claim(2, Assignment[string]{Server: "B"})

	seen := map[int16]string{}
	r.Iterate(func(mapID int16, a Assignment[string]) {
		seen[mapID] = a.Server
	})
	if len(seen) != 2 || seen[1] != "A" || seen[2] != "B" {
		t.Fatalf("unexpected iterate result: %+v", seen)
	}
}
