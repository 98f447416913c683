package main

import (
	"encoding/pem"
	"fmt"
	"os"

	"mctunnel.dev/crypto/rsakeys"
	"mctunnel.dev/wire"
)

// loadServerKey reads a PEM-encoded SubjectPublicKeyInfo file, the
// gateway's public key delivered out-of-band to the client (spec §6's
// key provider collaborator).
func loadServerKey(path string) (*rsakeys.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	return rsakeys.ParsePublicKeyDER(block.Bytes)
}

func parseProtocol(s string) (wire.Protocol, error) {
	switch s {
	case "tcp", "TCP", "":
		return wire.ProtoTCP, nil
	default:
		return "", fmt.Errorf("unsupported protocol %q: only tcp is bridged", s)
	}
}
