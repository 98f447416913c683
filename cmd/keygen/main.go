// Command keygen generates an RSA keypair for a gateway, printing the
// private and public keys as PEM to stdout. Key storage format and
// distribution are out of scope for the core (spec §1); this tool is
// specified only by its I/O contract.
package main

import (
	"flag"
	"fmt"
	"os"

	"mctunnel.dev/crypto/rsakeys"
)

func fatalf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}

func main() {
	bits := flag.Int("bits", 4096, "RSA modulus size in bits")
	out := flag.String("out", "", "file prefix to write <prefix>.key and <prefix>.pub; defaults to stdout")
	flag.Parse()

	kp, err := rsakeys.Generate(*bits)
	if err != nil {
		fatalf("generate keypair: %v", err)
	}
	privDER, err := kp.Private.PrivateKeyDER()
	if err != nil {
		fatalf("encode private key: %v", err)
	}
	pubDER, err := kp.Public.PublicKeyDER()
	if err != nil {
		fatalf("encode public key: %v", err)
	}
	privPEM := rsakeys.EncodePEM("PRIVATE KEY", privDER)
	pubPEM := rsakeys.EncodePEM("PUBLIC KEY", pubDER)

	if *out == "" {
		os.Stdout.Write(privPEM)
		os.Stdout.Write(pubPEM)
		return
	}
	if err := os.WriteFile(*out+".key", privPEM, 0600); err != nil {
		fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(*out+".pub", pubPEM, 0644); err != nil {
		fatalf("write public key: %v", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s.key and %s.pub\n", *out, *out)
}
