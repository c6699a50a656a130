package comm

import (
	"bytes"
	"io"
	"net"
	"os"
	"time"
)

// Terminator wraps a ReadWriter, appending the Tx terminator to each write
// and stripping the Rx terminator from each read.
type Terminator struct {
	rw io.ReadWriter
	tx byte
	rx byte
}

// NewTerminator returns a Terminator around rw with the given termination
// bytes.
func NewTerminator(rw io.ReadWriter, tx, rx byte) *Terminator {
	return &Terminator{rw: rw, tx: tx, rx: rx}
}

// Write sends p followed by the Tx terminator.
func (t *Terminator) Write(p []byte) (int, error) {
	n, err := t.rw.Write(append(p, t.tx))
	if n > len(p) {
		// don't count the terminator against the caller's buffer
		n = len(p)
	}
	return n, err
}

// Read reads from the underlying ReadWriter until the Rx terminator or p is
// full, and returns the payload without the terminator.
func (t *Terminator) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := t.rw.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if idx := bytes.IndexByte(p[:total], t.rx); idx >= 0 {
			return idx, nil
		}
	}
	return total, nil
}

// deadliner is the subset of net.Conn needed to apply timeouts.
type deadliner interface {
	SetDeadline(time.Time) error
}

// Timeout wraps a ReadWriter, applying a deadline before each read and
// write if the underlying connection supports deadlines.  A zero duration
// means no deadline (wait forever).  Serial ports and USB endpoints carry
// their own timeout configuration and pass through untouched.
type Timeout struct {
	rw io.ReadWriter
	d  time.Duration
}

// NewTimeout returns a Timeout around rw with duration d.
func NewTimeout(rw io.ReadWriter, d time.Duration) (*Timeout, error) {
	t := &Timeout{rw: rw, d: d}
	return t, t.apply()
}

func (t *Timeout) apply() error {
	dl, ok := underlying(t.rw).(deadliner)
	if !ok {
		return nil
	}
	if t.d == 0 {
		return dl.SetDeadline(time.Time{})
	}
	return dl.SetDeadline(time.Now().Add(t.d))
}

func (t *Timeout) Read(p []byte) (int, error) {
	if err := t.apply(); err != nil {
		return 0, err
	}
	return t.rw.Read(p)
}

func (t *Timeout) Write(p []byte) (int, error) {
	if err := t.apply(); err != nil {
		return 0, err
	}
	return t.rw.Write(p)
}

// underlying unwraps Terminator and Timeout layers to reach the connection.
func underlying(rw io.ReadWriter) io.ReadWriter {
	for {
		switch v := rw.(type) {
		case *Terminator:
			rw = v.rw
		case *Timeout:
			rw = v.rw
		default:
			return rw
		}
	}
}

// IsTimeout reports whether err represents an expired I/O deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return os.IsTimeout(err)
}
