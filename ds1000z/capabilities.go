package ds1000z

import (
	"fmt"
	"strings"
)

// Model names reported in the *IDN? reply.
const (
	ModelDS1054Z      = "DS1054Z"
	ModelDS1074Z      = "DS1074Z"
	ModelDS1074ZPlus  = "DS1074Z Plus"
	ModelDS1074ZSPlus = "DS1074Z-S Plus"
	ModelDS1104Z      = "DS1104Z"
	ModelDS1104ZPlus  = "DS1104Z Plus"
	ModelDS1104ZSPlus = "DS1104Z-S Plus"
)

// Capabilities is the feature set of a particular hardware variant,
// resolved once from the identity string.  Menus that exist only on some
// variants consult it instead of probing the device.
type Capabilities struct {
	// Brand, Model, Serial and Firmware are the identity fields verbatim
	Brand    string
	Model    string
	Serial   string
	Firmware string

	// HasDigital indicates the MSO logic analyzer channels D0-D15
	HasDigital bool

	// HasSourceGen indicates the built-in signal source of -S variants
	HasSourceGen bool

	// Bandwidth is the rated analog bandwidth in Hz
	Bandwidth float64
}

// parseCapabilities builds a capability set from an *IDN? reply, e.g.
// "RIGOL TECHNOLOGIES,DS1104Z Plus,DS1ZB000000001,00.04.04.SP3".
func parseCapabilities(idn string) (Capabilities, error) {
	var c Capabilities
	pieces := strings.Split(strings.TrimSpace(idn), ",")
	if len(pieces) < 4 {
		return c, fmt.Errorf("identity string %q has %d fields, expected 4", idn, len(pieces))
	}
	c.Brand = pieces[0]
	c.Model = pieces[1]
	c.Serial = pieces[2]
	c.Firmware = pieces[3]
	switch c.Model {
	case ModelDS1054Z:
		c.Bandwidth = 50e6
	case ModelDS1074Z:
		c.Bandwidth = 70e6
	case ModelDS1074ZPlus, ModelDS1074ZSPlus:
		c.Bandwidth = 70e6
		c.HasDigital = true
	case ModelDS1104Z:
		// sold as 100 MHz, reports the 1054Z's front end
		c.Bandwidth = 50e6
	case ModelDS1104ZPlus, ModelDS1104ZSPlus:
		c.Bandwidth = 100e6
		c.HasDigital = true
	default:
		return c, fmt.Errorf("unknown model %q", c.Model)
	}
	c.HasSourceGen = strings.Contains(c.Model, "-S")
	return c, nil
}

// ID returns the raw identity string from the instrument.
func (s *Scope) ID() (string, error) {
	if s.idString != "" {
		return s.idString, nil
	}
	idn, err := s.ReadString("*IDN?")
	if err != nil {
		return "", err
	}
	s.idString = idn
	return idn, nil
}

// Capabilities resolves the hardware variant's feature set.  The identity
// is queried once and cached for the life of the Scope.
func (s *Scope) Capabilities() (Capabilities, error) {
	if s.caps != nil {
		return *s.caps, nil
	}
	idn, err := s.ID()
	if err != nil {
		return Capabilities{}, err
	}
	c, err := parseCapabilities(idn)
	if err != nil {
		return c, err
	}
	s.caps = &c
	return c, nil
}
