// Package scpi provides primitives for working with devices that
// have SCPI interfaces
package scpi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/x-vmaier/rigol1000z/comm"
)

const (
	// DefaultTimeout is the I/O deadline applied when SCPI.Timeout is left
	// zero-valued at construction time.
	DefaultTimeout = 5 * time.Second

	tcpFrameSize = 1500
)

// Unbounded is the timeout value meaning "wait forever."  Bulk transfers
// set it around a read and restore the previous value after.
const Unbounded = time.Duration(-1)

// SCPI is a type for encapsulating SCPI communication
type SCPI struct {
	Pool *comm.Pool

	// Handshaking indicates if the communication shall use handshaking,
	// where an error query is sent with every message
	// to ensure the device accepted the input
	Handshaking bool

	// Timeout is the deadline applied to each exchange.  Unbounded waits
	// forever.  Mutate it through SetTimeout so the previous value can be
	// restored by the caller.
	Timeout time.Duration

	// Pace, if non-nil, throttles outgoing commands.  Some instruments
	// drop or misorder commands sent back to back.
	Pace *rate.Limiter
}

// New returns a SCPI speaker over the given pool with the default timeout.
func New(pool *comm.Pool, handshaking bool) *SCPI {
	return &SCPI{Pool: pool, Handshaking: handshaking, Timeout: DefaultTimeout}
}

// SetTimeout replaces the exchange deadline and returns the previous value
// so it can be restored.
func (s *SCPI) SetTimeout(d time.Duration) time.Duration {
	prev := s.Timeout
	s.Timeout = d
	return prev
}

// Deadline converts the configured timeout for use with comm.NewTimeout,
// where zero means no deadline.
func (s *SCPI) Deadline() time.Duration {
	if s.Timeout == Unbounded {
		return 0
	}
	if s.Timeout == 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s *SCPI) pace() {
	if s.Pace != nil {
		s.Pace.Wait(context.Background())
	}
}

// Write sends a command to the device.  if s.Handshaking == true,
// it also requests an error response and checks that it is OK.
// it is assumed this is used for set operations and not get.
func (s *SCPI) Write(cmds ...string) error {
	s.pace()
	conn, err := s.Pool.Get()
	if err != nil {
		return err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	var wrap io.ReadWriter
	wrap = comm.NewTerminator(conn, '\n', '\n')
	wrap, err = comm.NewTimeout(wrap, s.Deadline())
	if err != nil {
		return err
	}
	if s.Handshaking {
		cmds = append([]string{"*CLS;"}, cmds...)
		cmds = append(cmds, ";:SYSTem:ERRor?")
	}
	str := strings.Join(cmds, " ")
	_, err = io.WriteString(wrap, str)
	if err != nil {
		return err
	}
	if s.Handshaking {
		buf := make([]byte, tcpFrameSize)
		n, err := wrap.Read(buf)
		if err != nil {
			return err
		}
		return checkError(buf[:n])
	}
	return nil
}

// WriteRead is write, but with a read call after.  It is assumed that "get"
// calls use this underlying mechanism
func (s *SCPI) WriteRead(cmds ...string) ([]byte, error) {
	s.pace()
	var resp []byte
	conn, err := s.Pool.Get()
	if err != nil {
		return resp, err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	var wrap io.ReadWriter
	wrap = comm.NewTerminator(conn, '\n', '\n')
	wrap, err = comm.NewTimeout(wrap, s.Deadline())
	if err != nil {
		return resp, err
	}
	if s.Handshaking {
		cmds = append([]string{"*CLS;"}, cmds...)
		cmds = append(cmds, ";:SYSTem:ERRor?")
	}
	str := strings.Join(cmds, " ")
	_, err = io.WriteString(wrap, str)
	if err != nil {
		return resp, err
	}
	buf := make([]byte, tcpFrameSize)
	n, err := wrap.Read(buf)
	if err != nil {
		return resp, err
	}
	resp = buf[:n]
	if s.Handshaking {
		pieces := bytes.Split(resp, []byte{';'})
		errS := pieces[len(pieces)-1]
		if err := checkError(errS); err != nil {
			return resp, err
		}
		return bytes.Join(pieces[:len(pieces)-1], []byte{}), nil
	}
	return resp, err
}

// checkError interprets a SYSTem:ERRor? reply.  Keysight prefixes the code
// with a sign ("+0"), Rigol does not ("0,\"No error\"").
func checkError(resp []byte) error {
	str := strings.TrimSpace(string(resp))
	code := strings.TrimPrefix(str, "+")
	if strings.HasPrefix(code, "0") {
		return nil
	}
	return fmt.Errorf("%s", str)
}

// ReadString sends a command to the device, then reads the response
// and returns it as a decoded ASCII or UTF-8 string
func (s *SCPI) ReadString(cmds ...string) (string, error) {
	resp, err := s.WriteRead(cmds...)
	if err == nil && len(resp) > 0 {
		if resp[len(resp)-1] == '\n' {
			resp = resp[:len(resp)-1]
		}
		if len(resp) > 0 && resp[len(resp)-1] == '\r' {
			resp = resp[:len(resp)-1]
		}
	}
	return string(resp), err
}

// ReadFloat sends a command to the device, then reads the
// response and parses it as a floating point value
func (s *SCPI) ReadFloat(cmds ...string) (float64, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// ReadBool sends a command to the device, then reads the
// response and parses it as a boolean
func (s *SCPI) ReadBool(cmds ...string) (bool, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(resp)
}

// ReadInt sends a command to the device, then reads the
// response and parses it as an integer
func (s *SCPI) ReadInt(cmds ...string) (int, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(resp)
}

// ReadRaw sends a query and returns up to maxBytes of the raw reply with
// no terminator stripping.  The buffer may be shorter than maxBytes; the
// caller owns any framing in the payload.
func (s *SCPI) ReadRaw(maxBytes int, cmds ...string) ([]byte, error) {
	s.pace()
	var resp []byte
	conn, err := s.Pool.Get()
	if err != nil {
		return resp, err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	wrap, err := comm.NewTimeout(conn, s.Deadline())
	if err != nil {
		return resp, err
	}
	str := strings.Join(cmds, " ")
	_, err = io.WriteString(wrap, str+"\n")
	if err != nil {
		return resp, err
	}
	buf := make([]byte, maxBytes)
	n, err := wrap.Read(buf)
	if err != nil {
		return resp, err
	}
	return buf[:n], nil
}

// Raw sends a command to the scope and returns a response if it was a query,
// else a blank string
func (s *SCPI) Raw(str string) (string, error) {
	prev := s.Handshaking
	s.Handshaking = false
	defer func() { s.Handshaking = prev }()
	if strings.Contains(str, "?") {
		return s.ReadString(str)
	}
	return "", s.Write(str)
}

// PopError gets a single error from the queue on the device
func (s *SCPI) PopError() error {
	str, err := s.ReadString(":SYSTem:ERRor?")
	if err != nil {
		return err
	}
	return checkError([]byte(str))
}

// AllErrors returns all errors from the device as a list
func (s *SCPI) AllErrors() []error {
	var errs []error
	var err error
	for {
		err = s.PopError()
		if err == nil {
			break
		}
		errs = append(errs, err)
	}
	return errs
}

// AllErrorsString is equivalent to AllErrors, but joining by newline.
// if there were no errors, the error return value is nil, otherwise
// it is the first error in the list and has no particular meaning
func (s *SCPI) AllErrorsString() (string, error) {
	errs := s.AllErrors()
	if len(errs) == 0 {
		return "", nil
	}
	strs := make([]string, len(errs))
	for i := 0; i < len(errs); i++ {
		strs[i] = errs[i].Error()
	}
	return strings.Join(strs, "\n"), errs[0]
}
