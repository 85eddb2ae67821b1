package notify

import "testing"

// Registry tests run against the package-level registry, so each test
// starts from a clean slate and clears up after itself.

func resetRegistry(t *testing.T) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	resetRegistry(t)

	Register(Channel{Name: "alerts", Kind: KindSQL, Connection: "main"})

	ch, ok := Get("alerts")
	if !ok {
		t.Fatal("Get(alerts) not found after Register")
	}
	if ch.Kind != KindSQL || ch.Connection != "main" {
		t.Errorf("Get(alerts) = %+v, want sql channel on main", ch)
	}

	if _, ok := Get("nope"); ok {
		t.Error("Get(nope) found an unregistered channel")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	resetRegistry(t)

	Register(Channel{Name: "alerts", Kind: KindLog})

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register(Channel{Name: "alerts", Kind: KindSQL})
}

func TestRegistryAllSorted(t *testing.T) {
	resetRegistry(t)

	Register(Channel{Name: "zeta", Kind: KindLog})
	Register(Channel{Name: "alpha", Kind: KindSQL})
	Register(Channel{Name: "mid", Kind: KindSQL})

	all := All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d channels, want 3", len(all))
	}
	wantOrder := []string{"alpha", "mid", "zeta"}
	for i, ch := range all {
		if ch.Name != wantOrder[i] {
			t.Errorf("All()[%d].Name = %q, want %q", i, ch.Name, wantOrder[i])
		}
	}

	names := Names()
	for i, name := range names {
		if name != wantOrder[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, name, wantOrder[i])
		}
	}

	if got := Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}

func TestRegistryClear(t *testing.T) {
	resetRegistry(t)

	Register(Channel{Name: "alerts", Kind: KindLog})
	Clear()

	if got := Count(); got != 0 {
		t.Errorf("Count() after Clear = %d, want 0", got)
	}
}
