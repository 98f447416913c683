package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"mctunnel.dev/client"
)

func listen(args ...string) {
	set := flag.NewFlagSet(args[0], flag.ExitOnError)
	set.Usage = func() {
		fmt.Fprintf(set.Output(), "forward a local TCP port to a gateway\n\n")
		fmt.Fprintf(set.Output(), "usage: %s %s [flags]\n\n", os.Args[0], args[0])
		fmt.Fprintf(set.Output(), "flags:\n")
		set.PrintDefaults()
	}
	bind := set.String("bind", "127.0.0.1:25565", "local address to listen on")
	url := set.String("url", "", "gateway WebSocket URL, e.g. wss://gateway.example.com/ws (required)")
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

	acc := client.NewAcceptor(client.AcceptorConfig{
		BindAddr: *bind,
		Session: client.Config{
			URL:       *url,
			ServerKey: serverKey,
			Protocol:  protocol,
			Port:      uint16(*port),
			Stats:     client.NewLoggingStatsSink(log),
			Log:       log,
		},
		Log: log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Typing "ping" on stdin is the manual-ping source collaborator
	// named in spec §6: an external trigger fanned out to every live
	// session, useful when probing RTT against a flaky gateway.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == "ping" {
				select {
				case acc.ManualPing() <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	if err := acc.Run(ctx); err != nil && ctx.Err() == nil {
		fatalf("tunnel: %v", err)
	}
}
