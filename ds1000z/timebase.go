package ds1000z

import "fmt"

const timebasePrefix = ":tim"

// Timebase is the horizontal menu, under the ":tim" prefix.
type Timebase struct {
	s *Scope
}

// Timebase returns the horizontal menu.
func (s *Scope) Timebase() Timebase {
	return Timebase{s: s}
}

func (t Timebase) cmd(leaf string) string {
	return timebasePrefix + leaf
}

// Scale returns the main timebase scale in seconds per division.
func (t Timebase) Scale() (float64, error) {
	return t.s.ReadFloat(t.cmd(":scal?"))
}

// SetScale sets the main timebase scale in seconds per division,
// 50 ns to 50 s.
func (t Timebase) SetScale(secPerDiv float64) error {
	if secPerDiv < 50e-9 || secPerDiv > 50 {
		return fmt.Errorf("%w: timebase %g s/div not in [50e-9, 50]", ErrInvalidParameter, secPerDiv)
	}
	return t.s.Write(t.cmd(":scal"), fmt.Sprintf("%.4e", secPerDiv))
}

// Mode returns the timebase mode, one of MAIN, XY, ROLL.
func (t Timebase) Mode() (string, error) {
	return t.s.ReadString(t.cmd(":mode?"))
}

// SetMode sets the timebase mode to main, xy, or roll.
func (t Timebase) SetMode(mode string) error {
	switch mode {
	case "main", "xy", "roll":
	default:
		return fmt.Errorf("%w: timebase mode %q not in {main, xy, roll}", ErrInvalidParameter, mode)
	}
	return t.s.Write(t.cmd(":mode"), mode)
}

// Offset returns the main timebase offset in seconds.
func (t Timebase) Offset() (float64, error) {
	return t.s.ReadFloat(t.cmd(":offs?"))
}

// SetOffset sets the main timebase offset in seconds.
func (t Timebase) SetOffset(seconds float64) error {
	return t.s.Write(t.cmd(":offs"), fmt.Sprintf("%.4e", seconds))
}

// Delay is the delayed (zoomed) timebase submenu, under ":tim:del".
type Delay struct {
	s *Scope
}

// Delay returns the delayed timebase submenu.
func (t Timebase) Delay() Delay {
	return Delay{s: t.s}
}

func (d Delay) cmd(leaf string) string {
	return timebasePrefix + ":del" + leaf
}

// Enabled returns true if the delayed timebase is on.
func (d Delay) Enabled() (bool, error) {
	return d.s.ReadBool(d.cmd(":enab?"))
}

// SetEnabled turns the delayed timebase on or off.
func (d Delay) SetEnabled(on bool) error {
	return d.s.Write(d.cmd(":enab"), writeBool(on))
}

// Offset returns the delayed timebase offset in seconds.
func (d Delay) Offset() (float64, error) {
	return d.s.ReadFloat(d.cmd(":offs?"))
}

// SetOffset sets the delayed timebase offset in seconds.  The legal range
// depends on the main scale and offset; out of range values are clamped
// by the instrument.
func (d Delay) SetOffset(seconds float64) error {
	return d.s.Write(d.cmd(":offs"), fmt.Sprintf("%.4e", seconds))
}
