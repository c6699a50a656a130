/*Package ds1000z provides access to Rigol DS1000Z series oscilloscopes in
Go.  The scopes speak SCPI over TCP (port 5555), RS232, or USBTMC; any of
the three can back a Scope.

The command surface mirrors the front panel menus: each menu is a small
type bound to one command prefix, retrieved from the Scope (Channel,
Acquire, Timebase, Trigger, Display, Waveform).  Bulk waveform download
is Scope.AcquireData, built on the Waveform menu.

The device allows one controlling client at a time, and an acquisition in
flight owns the session: do not issue other commands to the same scope
while AcquireData runs, or the device's read window registers will race.
*/
package ds1000z

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/x-vmaier/rigol1000z/comm"
	"github.com/x-vmaier/rigol1000z/scpi"
	"github.com/x-vmaier/rigol1000z/usbtmc"
)

// ErrInvalidParameter is returned by setters when a value is outside the
// range the instrument accepts.
var ErrInvalidParameter = errors.New("parameter out of range")

// USB identifiers for the DS1xx4Z / MSO1xxZ series.
const (
	RigolVID    = 0x1ab1
	DS1000ZPID  = 0x04ce
	usbtmcEPIn  = 1
	usbtmcEPOut = 3
)

// Waveform sources.
const (
	SourceChan1 = "CHAN1"
	SourceChan2 = "CHAN2"
	SourceChan3 = "CHAN3"
	SourceChan4 = "CHAN4"
	SourceMath  = "MATH"
)

// Waveform read modes.
const (
	// ModeNormal reads the points visible on screen
	ModeNormal = "NORM"

	// ModeMax reads the screen in run state, memory in stop state
	ModeMax = "MAX"

	// ModeRaw reads everything the ADC captured; the scope must be stopped
	ModeRaw = "RAW"
)

// Waveform wire formats.
const (
	FormatByte  = "BYTE"
	FormatWord  = "WORD"
	FormatASCII = "ASC"
)

// Acquisition types.
const (
	AcquireNormal   = "NORM"
	AcquireAverages = "AVER"
	AcquirePeak     = "PEAK"
	AcquireHighRes  = "HRES"
)

// analogSource reports whether src is an analog channel or the math trace.
func analogSource(src string) bool {
	switch src {
	case SourceChan1, SourceChan2, SourceChan3, SourceChan4, SourceMath:
		return true
	}
	return false
}

// validSource reports whether src names any waveform source, digital
// channels included.
func validSource(src string) bool {
	if analogSource(src) {
		return true
	}
	if !strings.HasPrefix(src, "D") {
		return false
	}
	n, err := strconv.Atoi(src[1:])
	return err == nil && n >= 0 && n <= 15
}

// Scope is an interface to a DS1000Z series oscilloscope
type Scope struct {
	*scpi.SCPI

	caps     *Capabilities
	idString string
}

// NewScope creates a new scope instance over TCP.  addr includes the port,
// typically 5555.
func NewScope(addr string) *Scope {
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, time.Minute, maker)
	s := &Scope{SCPI: scpi.New(pool, false)}
	// the scope drops back to back commands; pace them slightly apart
	s.Pace = rate.NewLimiter(rate.Every(time.Millisecond), 1)
	return s
}

// NewScopeUSB creates a new scope instance over USBTMC using the series'
// vendor and product IDs.
func NewScopeUSB() *Scope {
	maker := func() (io.ReadWriteCloser, error) {
		return usbtmc.NewDevice(RigolVID, DS1000ZPID, usbtmcEPIn, usbtmcEPOut)
	}
	pool := comm.NewPool(1, time.Minute, maker)
	s := &Scope{SCPI: scpi.New(pool, false)}
	s.Pace = rate.NewLimiter(rate.Every(time.Millisecond), 1)
	return s
}

// Autoscale triggers the autoscale routine, as the front panel button does.
func (s *Scope) Autoscale() error {
	return s.Write(":aut")
}

// Clear clears the display.
func (s *Scope) Clear() error {
	return s.Write(":clear")
}

// Run starts live acquisition.
func (s *Scope) Run() error {
	return s.Write(":run")
}

// Stop halts acquisition, freezing the capture buffer.
func (s *Scope) Stop() error {
	return s.Write(":stop")
}

// Single arms a single-shot acquisition.
func (s *Scope) Single() error {
	return s.Write(":sing")
}

// ForceTrigger forces a trigger event.
func (s *Scope) ForceTrigger() error {
	return s.Write(":tfor")
}

// Raw passes str to the instrument verbatim and returns the reply if it
// was a query.
func (s *Scope) Raw(str string) (string, error) {
	return s.SCPI.Raw(str)
}
