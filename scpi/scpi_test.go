package scpi_test

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/x-vmaier/rigol1000z/comm"
	"github.com/x-vmaier/rigol1000z/scpi"
)

// scriptConn answers each received line with the next queued reply.
type scriptConn struct {
	replies []string
	wrote   []string
	buf     bytes.Buffer
}

func (c *scriptConn) Write(p []byte) (int, error) {
	c.wrote = append(c.wrote, strings.TrimRight(string(p), "\n"))
	if len(c.replies) > 0 {
		c.buf.WriteString(c.replies[0])
		c.replies = c.replies[1:]
	}
	return len(p), nil
}

func (c *scriptConn) Read(p []byte) (int, error) {
	if c.buf.Len() == 0 {
		return 0, io.EOF
	}
	return c.buf.Read(p)
}

func (c *scriptConn) Close() error { return nil }

func newSCPI(conn *scriptConn, handshaking bool) *scpi.SCPI {
	pool := comm.NewPool(1, time.Minute, func() (io.ReadWriteCloser, error) {
		return conn, nil
	})
	return scpi.New(pool, handshaking)
}

func TestReadStringStripsTerminator(t *testing.T) {
	conn := &scriptConn{replies: []string{"RIGOL TECHNOLOGIES,DS1054Z,DS1ZA0000001,00.04.04\n"}}
	s := newSCPI(conn, false)
	resp, err := s.ReadString("*IDN?")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(resp, "\n") {
		t.Error("terminator not stripped from response")
	}
	if !strings.HasPrefix(resp, "RIGOL") {
		t.Errorf("unexpected response %q", resp)
	}
	if conn.wrote[0] != "*IDN?" {
		t.Errorf("sent %q, expected *IDN?", conn.wrote[0])
	}
}

func TestReadFloat(t *testing.T) {
	conn := &scriptConn{replies: []string{"2.0e-03\n"}}
	s := newSCPI(conn, false)
	f, err := s.ReadFloat(":tim:scal?")
	if err != nil {
		t.Fatal(err)
	}
	if f != 2e-3 {
		t.Errorf("got %g, expected 2e-3", f)
	}
}

func TestHandshakingAcceptsRigolNoError(t *testing.T) {
	conn := &scriptConn{replies: []string{"0,\"No error\"\n"}}
	s := newSCPI(conn, true)
	if err := s.Write(":chan1:coup AC"); err != nil {
		t.Fatalf("write rejected: %v", err)
	}
	if !strings.Contains(conn.wrote[0], ":SYSTem:ERRor?") {
		t.Error("handshaking did not append the error query")
	}
}

func TestHandshakingSurfacesDeviceError(t *testing.T) {
	conn := &scriptConn{replies: []string{"-113,\"Undefined header\"\n"}}
	s := newSCPI(conn, true)
	err := s.Write(":chan9:coup AC")
	if err == nil {
		t.Fatal("expected device error, got nil")
	}
	if !strings.Contains(err.Error(), "-113") {
		t.Errorf("error %q does not carry the device code", err)
	}
}

func TestSetTimeoutReturnsPrevious(t *testing.T) {
	s := newSCPI(&scriptConn{}, false)
	prev := s.SetTimeout(scpi.Unbounded)
	if prev != scpi.DefaultTimeout {
		t.Errorf("previous timeout %v, expected %v", prev, scpi.DefaultTimeout)
	}
	if got := s.SetTimeout(prev); got != scpi.Unbounded {
		t.Errorf("timeout %v after override, expected Unbounded", got)
	}
	if s.Timeout != scpi.DefaultTimeout {
		t.Error("timeout not restored")
	}
}

func TestReadRawDoesNotStrip(t *testing.T) {
	conn := &scriptConn{replies: []string{"#900000003abc\n"}}
	s := newSCPI(conn, false)
	buf, err := s.ReadRaw(64, ":wav:data?")
	if err != nil {
		t.Fatal(err)
	}
	if buf[len(buf)-1] != '\n' {
		t.Error("raw read should retain the terminator byte")
	}
}
