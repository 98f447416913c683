package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"mctunnel.dev/client"
)

// pipe bridges stdin/stdout to a gateway-backed target instead of a
// local TCP listener, for scriptable one-off tunnels and smoke
// testing without opening a local port. Adapted from the teacher's
// netcat-like cmd/ww pipe subcommand.
func pipe(args ...string) {
	set := flag.NewFlagSet(args[0], flag.ExitOnError)
	set.Usage = func() {
		fmt.Fprintf(set.Output(), "netcat-like pipe over a tunnel\n\n")
		fmt.Fprintf(set.Output(), "usage: %s %s [flags]\n\n", os.Args[0], args[0])
		fmt.Fprintf(set.Output(), "flags:\n")
		set.PrintDefaults()
	}
	url := set.String("url", "", "gateway WebSocket URL (required)")
	keyPath := set.String("server-key", "", "path to the gateway's PEM-encoded public key (required)")
	protoFlag := set.String("protocol", "tcp", "target protocol (only tcp is supported)")
	port := set.Uint("port", 0, "target port on the gateway's backend (required)")
	set.Parse(args[1:])

	if *url == "" || *keyPath == "" || *port == 0 {
		set.Usage()
		os.Exit(2)
	}
	serverKey, err := loadServerKey(*keyPath)
	if err != nil {
		fatalf("load server key: %v", err)
	}
	protocol, err := parseProtocol(*protoFlag)
	if err != nil {
		fatalf("%v", err)
	}

	sess := client.New("pipe", client.Config{
		URL:       *url,
		ServerKey: serverKey,
		Protocol:  protocol,
		Port:      uint16(*port),
		Log:       log,
	}, stdioConn{in: os.Stdin, out: os.Stdout})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
		fatalf("pipe: %v", err)
	}
}
