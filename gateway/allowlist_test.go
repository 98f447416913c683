package gateway

import (
	"testing"

	"mctunnel.dev/wire"
)

func TestParseAllowList(t *testing.T) {
	list, err := ParseAllowList("25565:tcp,8080:tcp")
	if err != nil {
		t.Fatalf("ParseAllowList: %v", err)
	}
	if !list.Allows(25565, wire.ProtoTCP) || !list.Allows(8080, wire.ProtoTCP) {
		t.Fatal("expected both ports allowed")
	}
	if list.Allows(1234, wire.ProtoTCP) {
		t.Fatal("expected 1234 to be denied")
	}
}

func TestParseAllowListEmpty(t *testing.T) {
	list, err := ParseAllowList("")
	if err != nil {
		t.Fatalf("ParseAllowList: %v", err)
	}
	if list.Allows(80, wire.ProtoTCP) {
		t.Fatal("empty allow-list should deny everything")
	}
}

func TestParseAllowListRejectsUDP(t *testing.T) {
	if _, err := ParseAllowList("53:udp"); err == nil {
		t.Fatal("expected error for udp entry")
	}
}

func TestParseAllowListMalformed(t *testing.T) {
	for _, bad := range []string{"tcp", "25565", "abc:tcp", "25565:"} {
		if _, err := ParseAllowList(bad); err == nil {
			t.Errorf("entry %q: expected error", bad)
		}
	}
}
