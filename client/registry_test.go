package client

import "testing"

type fakePinger struct{ alive bool }

func (f *fakePinger) RequestPing() bool { return f.alive }

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	r.Add("a", &fakePinger{alive: true})
	if r.Len() != 1 {
		t.Fatalf("got len %d want 1", r.Len())
	}
	r.Remove("a")
	if r.Len() != 0 {
		t.Fatalf("got len %d want 0", r.Len())
	}
}

func TestRegistryPingAllPrunesDead(t *testing.T) {
	r := NewRegistry()
	r.Add("alive", &fakePinger{alive: true})
	r.Add("dead", &fakePinger{alive: false})
	r.PingAll()
	if r.Len() != 1 {
		t.Fatalf("got len %d want 1 after pruning", r.Len())
	}
}
