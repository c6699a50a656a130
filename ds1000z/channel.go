package ds1000z

import (
	"fmt"
	"strconv"
)

// Channel is the vertical menu for one analog channel.  All of its
// commands share the ":chan<n>" prefix.
type Channel struct {
	s      *Scope
	prefix string
	number int
}

// Channel returns the menu for analog channel n, 1 through 4.
func (s *Scope) Channel(n int) (Channel, error) {
	if n < 1 || n > 4 {
		return Channel{}, fmt.Errorf("%w: channel %d not in 1..4", ErrInvalidParameter, n)
	}
	return Channel{s: s, prefix: ":chan" + strconv.Itoa(n), number: n}, nil
}

// Number returns the channel index, 1-based.
func (c Channel) Number() int {
	return c.number
}

func (c Channel) cmd(leaf string) string {
	return c.prefix + leaf
}

func writeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// BandwidthLimit returns true if the 20 MHz bandwidth limit is engaged.
func (c Channel) BandwidthLimit() (bool, error) {
	resp, err := c.s.ReadString(c.cmd(":bwl?"))
	return resp == "20M", err
}

// SetBandwidthLimit engages or releases the 20 MHz bandwidth limit.
// Engaging it greatly reduces displayed noise.
func (c Channel) SetBandwidthLimit(on bool) error {
	arg := "OFF"
	if on {
		arg = "20M"
	}
	return c.s.Write(c.cmd(":bwl"), arg)
}

// Coupling returns the input coupling, one of AC, DC, GND.
func (c Channel) Coupling() (string, error) {
	return c.s.ReadString(c.cmd(":coup?"))
}

// SetCoupling sets the input coupling to AC, DC, or GND.
func (c Channel) SetCoupling(coupling string) error {
	switch coupling {
	case "AC", "DC", "GND":
	default:
		return fmt.Errorf("%w: coupling %q not in {AC, DC, GND}", ErrInvalidParameter, coupling)
	}
	return c.s.Write(c.cmd(":coup"), coupling)
}

// Enabled returns true if the channel is displayed.
func (c Channel) Enabled() (bool, error) {
	return c.s.ReadBool(c.cmd(":disp?"))
}

// SetEnabled shows or hides the channel.
func (c Channel) SetEnabled(on bool) error {
	return c.s.Write(c.cmd(":disp"), writeBool(on))
}

// Inverted returns true if the waveform display is inverted.
func (c Channel) Inverted() (bool, error) {
	return c.s.ReadBool(c.cmd(":inv?"))
}

// SetInverted inverts (or un-inverts) the waveform display.
func (c Channel) SetInverted(on bool) error {
	return c.s.Write(c.cmd(":inv"), writeBool(on))
}

// Offset returns the vertical offset in volts.
func (c Channel) Offset() (float64, error) {
	return c.s.ReadFloat(c.cmd(":off?"))
}

// SetOffset sets the vertical offset in volts.  The instrument's true
// limit depends on scale and probe ratio; values beyond the widest
// documented range (+/-1000 V at 10X) are rejected here.
func (c Channel) SetOffset(volts float64) error {
	if volts < -1000 || volts > 1000 {
		return fmt.Errorf("%w: offset %g V not in [-1000, 1000]", ErrInvalidParameter, volts)
	}
	return c.s.Write(c.cmd(":off"), fmt.Sprintf("%.4e", volts))
}

// Range returns the full vertical range in volts.
func (c Channel) Range() (float64, error) {
	return c.s.ReadFloat(c.cmd(":rang?"))
}

// SetRange sets the full vertical range in volts, 8 mV to 800 V.
func (c Channel) SetRange(volts float64) error {
	if volts < 8e-3 || volts > 800 {
		return fmt.Errorf("%w: range %g V not in [8e-3, 800]", ErrInvalidParameter, volts)
	}
	return c.s.Write(c.cmd(":rang"), fmt.Sprintf("%.4e", volts))
}

// CalibrationDelay returns the channel-to-channel delay calibration in
// seconds.
func (c Channel) CalibrationDelay() (float64, error) {
	return c.s.ReadFloat(c.cmd(":tcal?"))
}

// SetCalibrationDelay sets the delay calibration in seconds, within
// +/-100 ns.  The instrument snaps the value to its own step size.
func (c Channel) SetCalibrationDelay(seconds float64) error {
	if seconds < -100e-9 || seconds > 100e-9 {
		return fmt.Errorf("%w: delay %g s not in [-100e-9, 100e-9]", ErrInvalidParameter, seconds)
	}
	return c.s.Write(c.cmd(":tcal"), fmt.Sprintf("%.4e", seconds))
}

// Scale returns the vertical scale in volts per division.
func (c Channel) Scale() (float64, error) {
	return c.s.ReadFloat(c.cmd(":scal?"))
}

// SetScale sets the vertical scale in volts per division.  The legal
// range scales with the probe ratio (1 mV/div to 10 V/div at 1X), so the
// current ratio is queried first.
func (c Channel) SetScale(voltsPerDiv float64) error {
	ratio, err := c.ProbeRatio()
	if err != nil {
		return err
	}
	if voltsPerDiv < 1e-3*ratio || voltsPerDiv > 10*ratio {
		return fmt.Errorf("%w: scale %g V/div not in [%g, %g] at probe ratio %g",
			ErrInvalidParameter, voltsPerDiv, 1e-3*ratio, 10*ratio, ratio)
	}
	return c.s.Write(c.cmd(":scal"), fmt.Sprintf("%.4e", voltsPerDiv))
}

// probeRatios are the discrete attenuation settings the scope accepts.
var probeRatios = []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000}

// ProbeRatio returns the probe attenuation ratio.
func (c Channel) ProbeRatio() (float64, error) {
	return c.s.ReadFloat(c.cmd(":prob?"))
}

// SetProbeRatio sets the probe attenuation ratio to one of the discrete
// values the scope supports (0.01 through 1000).
func (c Channel) SetProbeRatio(ratio float64) error {
	ok := false
	for _, r := range probeRatios {
		if ratio == r {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: probe ratio %g is not a supported setting", ErrInvalidParameter, ratio)
	}
	return c.s.Write(c.cmd(":prob"), fmt.Sprintf("%.4e", ratio))
}

// Units returns the display unit for the channel.
func (c Channel) Units() (string, error) {
	return c.s.ReadString(c.cmd(":unit?"))
}

// SetUnits sets the display unit, one of volt, watt, amp, unkn.
func (c Channel) SetUnits(units string) error {
	switch units {
	case "volt", "watt", "amp", "unkn":
	default:
		return fmt.Errorf("%w: units %q not in {volt, watt, amp, unkn}", ErrInvalidParameter, units)
	}
	return c.s.Write(c.cmd(":unit"), units)
}

// Vernier returns true if fine vertical adjustment is enabled.
func (c Channel) Vernier() (bool, error) {
	return c.s.ReadBool(c.cmd(":vern?"))
}

// SetVernier enables or disables fine vertical adjustment.
func (c Channel) SetVernier(on bool) error {
	return c.s.Write(c.cmd(":vern"), writeBool(on))
}
