package ds1000z

import (
	"fmt"
	"strconv"
)

const acquirePrefix = ":acq"

// MemoryDepthAuto is the sentinel for letting the scope pick its memory
// depth.
const MemoryDepthAuto = -1

// Acquire is the acquisition menu, under the ":acq" prefix.
type Acquire struct {
	s *Scope
}

// Acquire returns the acquisition menu.
func (s *Scope) Acquire() Acquire {
	return Acquire{s: s}
}

func (a Acquire) cmd(leaf string) string {
	return acquirePrefix + leaf
}

// Averages returns the number of averages used in average acquisition
// mode, a power of two between 2 and 1024.
func (a Acquire) Averages() (int, error) {
	return a.s.ReadInt(a.cmd(":aver?"))
}

// SetAverages sets the number of averages for average acquisition mode.
// Must be 2^n for n in 1..10.
func (a Acquire) SetAverages(n int) error {
	ok := false
	for v := 2; v <= 1024; v *= 2 {
		if n == v {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: averages %d is not a power of two in [2, 1024]", ErrInvalidParameter, n)
	}
	return a.s.Write(a.cmd(":aver"), strconv.Itoa(n))
}

// MemoryDepth returns the memory depth in points, or MemoryDepthAuto if
// the scope is choosing automatically.
func (a Acquire) MemoryDepth() (int, error) {
	resp, err := a.s.ReadString(a.cmd(":mdep?"))
	if err != nil {
		return 0, err
	}
	if resp == "AUTO" {
		return MemoryDepthAuto, nil
	}
	return strconv.Atoi(resp)
}

// memory depths allowed per count of enabled analog channels
var memoryDepths = map[int][]int{
	1: {12000, 120000, 1200000, 12000000, 24000000},
	2: {6000, 60000, 600000, 6000000, 12000000},
	3: {3000, 30000, 300000, 3000000, 6000000},
	4: {3000, 30000, 300000, 3000000, 6000000},
}

// SetMemoryDepth sets the memory depth in points, or MemoryDepthAuto.
// The legal values depend on how many analog channels are enabled, so the
// channels are queried first.
func (a Acquire) SetMemoryDepth(points int) error {
	if points == MemoryDepthAuto {
		return a.s.Write(a.cmd(":mdep"), "AUTO")
	}
	enabled := 0
	for n := 1; n <= 4; n++ {
		ch, err := a.s.Channel(n)
		if err != nil {
			return err
		}
		on, err := ch.Enabled()
		if err != nil {
			return err
		}
		if on {
			enabled++
		}
	}
	if enabled == 0 {
		enabled = 1
	}
	ok := false
	for _, v := range memoryDepths[enabled] {
		if points == v {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: memory depth %d not valid with %d channels enabled",
			ErrInvalidParameter, points, enabled)
	}
	return a.s.Write(a.cmd(":mdep"), strconv.Itoa(points))
}

// Type returns the acquisition type, one of NORM, AVER, PEAK, HRES.
func (a Acquire) Type() (string, error) {
	return a.s.ReadString(a.cmd(":type?"))
}

// SetType sets the acquisition type.
func (a Acquire) SetType(typ string) error {
	switch typ {
	case AcquireNormal, AcquireAverages, AcquirePeak, AcquireHighRes:
	default:
		return fmt.Errorf("%w: acquisition type %q not in {NORM, AVER, PEAK, HRES}", ErrInvalidParameter, typ)
	}
	return a.s.Write(a.cmd(":type"), typ)
}

// SampleRate returns the sample rate in samples per second.  Memory depth,
// sample rate, and the displayed waveform length are linked; this value is
// read-only.
func (a Acquire) SampleRate() (float64, error) {
	return a.s.ReadFloat(a.cmd(":srat?"))
}
