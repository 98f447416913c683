package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"nhooyr.io/websocket"
	"rsc.io/qr"

	"mctunnel.dev/wire"
)

// info queries a gateway's unauthenticated GetServerInfo and prints
// its version and allow-list, plus a scannable QR code of the
// gateway's URL for pairing convenience. Adapted from the teacher's
// printcode in cmd/ww/main.go.
func info(args ...string) {
	set := flag.NewFlagSet(args[0], flag.ExitOnError)
	set.Usage = func() {
		fmt.Fprintf(set.Output(), "print a gateway's version and allow-list\n\n")
		fmt.Fprintf(set.Output(), "usage: %s %s <url>\n\n", os.Args[0], args[0])
		set.PrintDefaults()
	}
	set.Parse(args[1:])
	if set.NArg() != 1 {
		set.Usage()
		os.Exit(2)
	}
	wsURL := set.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	req := wire.NewMessage(wire.CmdGetServerInfo, nil)
	b, err := wire.Encode(req)
	if err != nil {
		fatalf("encode request: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, b); err != nil {
		fatalf("send request: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		fatalf("read response: %v", err)
	}
	reply, err := wire.Decode(data)
	if err != nil {
		fatalf("decode response: %v", err)
	}
	if reply.Command != wire.CmdServerInfoResponse {
		fatalf("unexpected response command %q", reply.Command)
	}
	var payload wire.ServerInfoResponsePayload
	if err := reply.DecodePayload(&payload); err != nil {
		fatalf("decode payload: %v", err)
	}

	fmt.Printf("server version:   %s\n", payload.ServerVersion)
	fmt.Printf("protocol version: %s\n", payload.ProtocolVersion)
	fmt.Printf("allowed targets:\n")
	for _, p := range payload.AllowedPorts {
		fmt.Printf("  %d/%s\n", p.Port, p.Protocol)
	}
	printQR(wsURL)
}

func printQR(target string) {
	u, err := url.Parse(target)
	if err != nil {
		return
	}
	code, err := qr.Encode(u.String(), qr.L)
	if err != nil {
		return
	}
	for y := 0; y < code.Size; y += 2 {
		for x := 0; x < code.Size; x++ {
			switch {
			case code.Black(x, y) && code.Black(x, y+1):
				fmt.Print(" ")
			case code.Black(x, y):
				fmt.Print("▄")
			case code.Black(x, y+1):
				fmt.Print("▀")
			default:
				fmt.Print("█")
			}
		}
		fmt.Println()
	}
}
