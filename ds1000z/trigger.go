package ds1000z

import "fmt"

const triggerPrefix = ":trig"

// Trigger is the trigger menu, under the ":trig" prefix.
type Trigger struct {
	s *Scope
}

// Trigger returns the trigger menu.
func (s *Scope) Trigger() Trigger {
	return Trigger{s: s}
}

func (t Trigger) cmd(leaf string) string {
	return triggerPrefix + leaf
}

// Holdoff returns the trigger holdoff in seconds.
func (t Trigger) Holdoff() (float64, error) {
	return t.s.ReadFloat(t.cmd(":hold?"))
}

// SetHoldoff sets the trigger holdoff in seconds.
func (t Trigger) SetHoldoff(seconds float64) error {
	return t.s.Write(t.cmd(":hold"), fmt.Sprintf("%.3e", seconds))
}

// Status returns the trigger status, one of TD, WAIT, RUN, AUTO, STOP.
func (t Trigger) Status() (string, error) {
	return t.s.ReadString(t.cmd(":stat?"))
}

// Edge is the edge trigger submenu, under ":trig:edg".
type Edge struct {
	s *Scope
}

// Edge returns the edge trigger submenu.
func (t Trigger) Edge() Edge {
	return Edge{s: t.s}
}

func (e Edge) cmd(leaf string) string {
	return triggerPrefix + ":edg" + leaf
}

// Level returns the edge trigger level in volts.
func (e Edge) Level() (float64, error) {
	return e.s.ReadFloat(e.cmd(":lev?"))
}

// SetLevel sets the edge trigger level in volts.
func (e Edge) SetLevel(volts float64) error {
	return e.s.Write(e.cmd(":lev"), fmt.Sprintf("%.3e", volts))
}

// Source returns the trigger source.
func (e Edge) Source() (string, error) {
	return e.s.ReadString(e.cmd(":sour?"))
}

// SetSource sets the trigger source to any waveform source.
func (e Edge) SetSource(src string) error {
	if !validSource(src) {
		return fmt.Errorf("%w: trigger source %q", ErrInvalidParameter, src)
	}
	return e.s.Write(e.cmd(":sour"), src)
}

// Slope returns the triggering slope, one of POS, NEG, RFAL.
func (e Edge) Slope() (string, error) {
	return e.s.ReadString(e.cmd(":slop?"))
}

// SetSlope sets the triggering slope.
func (e Edge) SetSlope(slope string) error {
	switch slope {
	case "POS", "NEG", "RFAL":
	default:
		return fmt.Errorf("%w: slope %q not in {POS, NEG, RFAL}", ErrInvalidParameter, slope)
	}
	return e.s.Write(e.cmd(":slop"), slope)
}
