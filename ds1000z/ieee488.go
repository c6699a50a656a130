package ds1000z

import (
	"fmt"
	"strconv"
)

// IEEE488 is the IEEE 488.2 common command set, under the "*" prefix.
type IEEE488 struct {
	s *Scope
}

// IEEE488 returns the common command menu.
func (s *Scope) IEEE488() IEEE488 {
	return IEEE488{s: s}
}

// ClearStatus clears the event registers and the error queue.
func (i IEEE488) ClearStatus() error {
	return i.s.Write("*cls")
}

// EventEnableMask returns the enable register for the standard event
// status register set.
func (i IEEE488) EventEnableMask() (int, error) {
	return i.s.ReadInt("*ese?")
}

// SetEventEnableMask sets the enable register for the standard event
// status register set, 0 through 255.
func (i IEEE488) SetEventEnableMask(mask int) error {
	if mask < 0 || mask > 255 {
		return fmt.Errorf("%w: event enable mask %d not in [0, 255]", ErrInvalidParameter, mask)
	}
	return i.s.Write("*ese", strconv.Itoa(mask))
}

// PopEventRegister queries and clears the standard event status register.
func (i IEEE488) PopEventRegister() (int, error) {
	return i.s.ReadInt("*esr?")
}

// OperationComplete returns true once all pending commands have executed.
func (i IEEE488) OperationComplete() (bool, error) {
	return i.s.ReadBool("*opc?")
}

// Reset restores the instrument to its default state.
func (i IEEE488) Reset() error {
	return i.s.Write("*rst")
}

// StatusEnableMask returns the enable register for the status byte
// register set.
func (i IEEE488) StatusEnableMask() (int, error) {
	return i.s.ReadInt("*sre?")
}

// SetStatusEnableMask sets the enable register for the status byte
// register set, 0 through 255.
func (i IEEE488) SetStatusEnableMask(mask int) error {
	if mask < 0 || mask > 255 {
		return fmt.Errorf("%w: status enable mask %d not in [0, 255]", ErrInvalidParameter, mask)
	}
	return i.s.Write("*sre", strconv.Itoa(mask))
}

// PopStatusByte queries the status byte register, zeroing it.
func (i IEEE488) PopStatusByte() (int, error) {
	return i.s.ReadInt("*stb?")
}

// SelfTest runs the self-test and returns its result code.
func (i IEEE488) SelfTest() (int, error) {
	return i.s.ReadInt("*tst?")
}

// Wait blocks the instrument's parser until pending operations finish.
func (i IEEE488) Wait() error {
	return i.s.Write("*wai")
}
