package main

import (
	"net"
	"os"
	"time"
)

// stdioConn adapts stdin/stdout to the net.Conn interface client.Session
// expects, for the pipe subcommand's netcat-like bridging.
type stdioConn struct {
	in  *os.File
	out *os.File
}

func (c stdioConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c stdioConn) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c stdioConn) Close() error {
	c.in.Close()
	return c.out.Close()
}
func (c stdioConn) LocalAddr() net.Addr                { return stdioAddr{} }
func (c stdioConn) RemoteAddr() net.Addr                { return stdioAddr{} }
func (c stdioConn) SetDeadline(t time.Time) error       { return nil }
func (c stdioConn) SetReadDeadline(t time.Time) error   { return nil }
func (c stdioConn) SetWriteDeadline(t time.Time) error  { return nil }

type stdioAddr struct{}

func (stdioAddr) Network() string { return "stdio" }
func (stdioAddr) String() string  { return "stdio" }
