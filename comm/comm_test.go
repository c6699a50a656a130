package comm_test

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/x-vmaier/rigol1000z/comm"
)

func tcpEchoServer(t *testing.T) string {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal("could not listen, test aborted")
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { io.Copy(conn, conn) }()
		}
	}()
	return ln.Addr().String()
}

func TestPoolReusesReturnedConnections(t *testing.T) {
	addr := tcpEchoServer(t)
	maker := comm.BackingOffTCPConnMaker(addr, time.Second)
	pool := comm.NewPool(1, time.Minute, maker)
	conn, err := pool.Get()
	if err != nil {
		t.Fatalf("could not get connection: %v", err)
	}
	pool.Put(conn)
	conn2, err := pool.Get()
	if err != nil {
		t.Fatalf("could not get connection a second time: %v", err)
	}
	if conn != conn2 {
		t.Error("pool did not reuse the returned connection")
	}
	if pool.Size() != 1 {
		t.Errorf("pool size %d, expected 1", pool.Size())
	}
	pool.Put(conn2)
}

func TestPoolReturnWithErrorDestroys(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(1, time.Minute, comm.BackingOffTCPConnMaker(addr, time.Second))
	conn, err := pool.Get()
	if err != nil {
		t.Fatalf("could not get connection: %v", err)
	}
	pool.ReturnWithError(conn, io.ErrUnexpectedEOF)
	if pool.Size() != 0 {
		t.Errorf("pool size %d after destroy, expected 0", pool.Size())
	}
}

type loopback struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.in.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.out.Write(p) }

func TestTerminatorAppendsAndStrips(t *testing.T) {
	l := &loopback{in: bytes.NewBufferString("resp\n"), out: &bytes.Buffer{}}
	term := comm.NewTerminator(l, '\n', '\n')
	_, err := io.WriteString(term, "*IDN?")
	if err != nil {
		t.Fatal(err)
	}
	if got := l.out.String(); got != "*IDN?\n" {
		t.Errorf("wrote %q, expected %q", got, "*IDN?\n")
	}
	buf := make([]byte, 64)
	n, err := term.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "resp" {
		t.Errorf("read %q, expected %q", buf[:n], "resp")
	}
}
