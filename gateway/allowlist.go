package gateway

import (
	"fmt"
	"strconv"
	"strings"

	"mctunnel.dev/wire"
)

// AllowList is the gateway's immutable set of (port, protocol) targets
// it will bridge to on 127.0.0.1. Lookup is linear membership, per
// spec §3 — allow-lists are expected to hold a handful of entries.
type AllowList []wire.AllowedPort

// ParseAllowList parses the configuration surface's
// "port:tcp,port:tcp" string form (spec §6) into an AllowList. An
// empty string yields an empty, always-denying list.
func ParseAllowList(s string) (AllowList, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var list AllowList
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("gateway: malformed allow-list entry %q, want port:protocol", entry)
		}
		port, err := strconv.ParseUint(parts[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("gateway: malformed port in %q: %w", entry, err)
		}
		proto := wire.Protocol(strings.ToUpper(parts[1]))
		if proto != wire.ProtoTCP {
			return nil, fmt.Errorf("gateway: unsupported protocol in %q: only tcp is bridged", entry)
		}
		list = append(list, wire.AllowedPort{Port: uint16(port), Protocol: proto})
	}
	return list, nil
}

// Allows reports whether (port, protocol) is on the list.
func (l AllowList) Allows(port uint16, protocol wire.Protocol) bool {
	for _, entry := range l {
		if entry.Port == port && entry.Protocol == protocol {
			return true
		}
	}
	return false
}
