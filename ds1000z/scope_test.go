package ds1000z

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/x-vmaier/rigol1000z/comm"
	"github.com/x-vmaier/rigol1000z/oscilloscope"
	"github.com/x-vmaier/rigol1000z/scpi"
)

// fakeDevice emulates the instrument's wire behavior behind the pool.
// each line written to it is logged; queries push a reply that subsequent
// Reads drain.
type fakeDevice struct {
	idn     string
	pre     oscilloscope.Preamble
	samples []byte            // full capture memory, raw codes
	image   []byte            // screenshot payload
	replies map[string]string // canned replies for simple queries

	cmds        []string
	start, stop int
	pending     bytes.Buffer
}

// frame wraps payload in the scope's TMC block framing: #9<len><payload><lf>.
func frame(payload []byte) []byte {
	hdr := fmt.Sprintf("#9%09d", len(payload))
	out := append([]byte(hdr), payload...)
	return append(out, '\n')
}

func (f *fakeDevice) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		f.cmds = append(f.cmds, line)
		f.handle(line)
	}
	return len(p), nil
}

func (f *fakeDevice) handle(line string) {
	switch {
	case line == "*IDN?":
		f.pending.WriteString(f.idn + "\n")
	case line == ":wav:pre?":
		f.pending.WriteString(f.pre.Encode() + "\n")
	case line == ":wav:data?":
		hi := f.stop
		if hi > len(f.samples) {
			hi = len(f.samples)
		}
		f.pending.Write(frame(f.samples[f.start-1 : hi]))
	case strings.HasPrefix(line, ":disp:data?"):
		// image payload carries a 3-byte tail before the terminator
		f.pending.Write(frame(append(f.image, 0, 0, 0)))
	case strings.HasPrefix(line, ":wav:star "):
		f.start, _ = strconv.Atoi(line[len(":wav:star "):])
	case strings.HasPrefix(line, ":wav:stop "):
		f.stop, _ = strconv.Atoi(line[len(":wav:stop "):])
	case strings.HasSuffix(line, "?"):
		if resp, ok := f.replies[line]; ok {
			f.pending.WriteString(resp)
		} else {
			f.pending.WriteString("0\n")
		}
	}
}

func (f *fakeDevice) Read(p []byte) (int, error) {
	if f.pending.Len() == 0 {
		return 0, io.EOF
	}
	return f.pending.Read(p)
}

func (f *fakeDevice) Close() error { return nil }

// sent reports whether the device received the exact command line.
func (f *fakeDevice) sent(cmd string) bool {
	for _, c := range f.cmds {
		if c == cmd {
			return true
		}
	}
	return false
}

func newFakeScope(f *fakeDevice) *Scope {
	pool := comm.NewPool(1, time.Minute, func() (io.ReadWriteCloser, error) {
		return f, nil
	})
	return &Scope{SCPI: scpi.New(pool, false)}
}

// ramp produces n raw codes sweeping the 8-bit range.
func ramp(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i % 256)
	}
	return out
}
