// Command gateway runs the tunnel's gateway role: it terminates
// inbound WebSocket sessions and bridges each to a locally reachable
// TCP service on an allow-listed port.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"mctunnel.dev/crypto/rsakeys"
	"mctunnel.dev/gateway"
	"mctunnel.dev/internal/logx"
)

func fatalf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}

func main() {
	httpAddr := flag.String("http", ":8080", "http listen address")
	httpsAddr := flag.String("https", "", "https listen address; empty disables TLS")
	hosts := flag.String("hosts", "", "comma separated list of hosts for which to request let's encrypt certs")
	certCache := flag.String("cert-cache", os.Getenv("HOME")+"/.cache/mctunnel-gateway", "path to cache let's encrypt certificates")
	keyFile := flag.String("key", "", "path to the gateway's PEM-encoded PKCS#8 private key (required)")
	allowList := flag.String("allow", "", `comma separated allow-list, e.g. "25565:tcp,8080:tcp"`)
	flag.Parse()

	if *keyFile == "" {
		fatalf("missing required -key flag")
	}
	if *httpsAddr != "" && *hosts == "" {
		fatalf("cannot use -https without -hosts")
	}

	keyPEM, err := os.ReadFile(*keyFile)
	if err != nil {
		fatalf("read private key: %v", err)
	}
	der, err := pemToDER(keyPEM)
	if err != nil {
		fatalf("decode private key: %v", err)
	}
	priv, err := rsakeys.ParsePrivateKeyDER(der)
	if err != nil {
		fatalf("parse private key: %v", err)
	}

	allow, err := gateway.ParseAllowList(*allowList)
	if err != nil {
		fatalf("parse allow-list: %v", err)
	}
	if len(allow) == 0 {
		fmt.Fprintln(os.Stderr, "warning: empty allow-list, every target will be refused")
	}

	log := logx.Default
	srv := gateway.NewServer(gateway.Config{
		HTTPAddr:   *httpAddr,
		HTTPSAddr:  *httpsAddr,
		Hosts:      gateway.ParseHosts(*hosts),
		CertCache:  *certCache,
		PrivateKey: priv,
		AllowList:  allow,
		Log:        log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("gateway starting on %s", *httpAddr)
	if err := srv.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
		fatalf("serve: %v", err)
	}
}
