// Command tunnel runs the tunnel's client role: it accepts local TCP
// connections and forwards each as an independent, end-to-end
// encrypted session to a gateway.
package main

import (
	"flag"
	"fmt"
	"os"

	"mctunnel.dev/internal/logx"
)

var subcmds = map[string]func(args ...string){
	"listen": listen,
	"pipe":   pipe,
	"info":   info,
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "tunnel forwards local TCP connections to a gateway over WebSocket.\n\n")
	fmt.Fprintf(w, "usage:\n\n")
	fmt.Fprintf(w, "  %s <command> [arguments]\n\n", os.Args[0])
	fmt.Fprintf(w, "commands:\n")
	for key := range subcmds {
		fmt.Fprintf(w, "  %s\n", key)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := subcmds[flag.Arg(0)]
	if !ok {
		usage()
		os.Exit(2)
	}
	cmd(flag.Args()...)
}

func fatalf(format string, v ...interface{}) {
	fmt.Fprintf(flag.CommandLine.Output(), format+"\n", v...)
	os.Exit(1)
}

var log = logx.Default
