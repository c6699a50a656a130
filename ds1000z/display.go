package ds1000z

import (
	"fmt"
	"os"
	"strconv"

	"github.com/x-vmaier/rigol1000z/oscilloscope"
	"github.com/x-vmaier/rigol1000z/scpi"
)

const displayPrefix = ":disp"

// Screenshot transfer framing.  The reply carries a TMC header like the
// waveform path, but the image ends with a 3-byte tail plus the message
// terminator.
const (
	screenshotMaxBytes   = 4 * 1024 * 1024
	screenshotHeaderLen  = 11
	screenshotTrailerLen = 4
)

// Display is the display menu, under the ":disp" prefix.
type Display struct {
	s *Scope
}

// Display returns the display menu.
func (s *Scope) Display() Display {
	return Display{s: s}
}

func (d Display) cmd(leaf string) string {
	return displayPrefix + leaf
}

// Clear clears the waveforms on screen.
func (d Display) Clear() error {
	return d.s.Write(d.cmd(":cle"))
}

// Type returns the drawing mode, VECT or DOTS.
func (d Display) Type() (string, error) {
	return d.s.ReadString(d.cmd(":type?"))
}

// SetType sets the drawing mode to VECT or DOTS.
func (d Display) SetType(typ string) error {
	switch typ {
	case "VECT", "DOTS":
	default:
		return fmt.Errorf("%w: display type %q not in {VECT, DOTS}", ErrInvalidParameter, typ)
	}
	return d.s.Write(d.cmd(":type"), typ)
}

// PersistenceTime returns the persistence time setting.
func (d Display) PersistenceTime() (string, error) {
	return d.s.ReadString(d.cmd(":grad:time?"))
}

// SetPersistenceTime sets the persistence time: MIN, INF, or one of the
// discrete durations in seconds the scope supports.
func (d Display) SetPersistenceTime(val string) error {
	switch val {
	case "MIN", "INF", "0.1", "0.2", "0.5", "1", "5", "10":
	default:
		return fmt.Errorf("%w: persistence time %q", ErrInvalidParameter, val)
	}
	return d.s.Write(d.cmd(":grad:time"), val)
}

// Brightness returns the screen brightness as a fraction in [0, 1].
func (d Display) Brightness() (float64, error) {
	pct, err := d.s.ReadInt(d.cmd(":wbr?"))
	return float64(pct) / 100, err
}

// SetBrightness sets the screen brightness as a fraction in [0, 1].
func (d Display) SetBrightness(frac float64) error {
	if frac < 0 || frac > 1 {
		return fmt.Errorf("%w: brightness %g not in [0, 1]", ErrInvalidParameter, frac)
	}
	return d.s.Write(d.cmd(":wbr"), strconv.Itoa(int(frac*100)))
}

// Grid returns the graticule style, one of FULL, HALF, NONE.
func (d Display) Grid() (string, error) {
	return d.s.ReadString(d.cmd(":grid?"))
}

// SetGrid sets the graticule style.
func (d Display) SetGrid(grid string) error {
	switch grid {
	case "FULL", "HALF", "NONE":
	default:
		return fmt.Errorf("%w: grid %q not in {FULL, HALF, NONE}", ErrInvalidParameter, grid)
	}
	return d.s.Write(d.cmd(":grid"), grid)
}

// Screenshot downloads the current display as an encoded image.  format
// is one of jpeg, png, bmp8, bmp24, tiff.  The transfer can take a few
// seconds for the larger formats, so the exchange timeout is lifted for
// its duration and restored after.
func (s *Scope) Screenshot(format string) ([]byte, error) {
	switch format {
	case "jpeg", "png", "bmp8", "bmp24", "tiff":
	default:
		return nil, fmt.Errorf("%w: image format %q", ErrInvalidParameter, format)
	}
	prev := s.SetTimeout(scpi.Unbounded)
	defer s.SetTimeout(prev)
	raw, err := s.readFramed(displayPrefix+":data? on,off,"+format, screenshotMaxBytes)
	if err != nil {
		return nil, err
	}
	return oscilloscope.ExtractFrame(raw, screenshotHeaderLen, screenshotTrailerLen)
}

// ScreenshotToFile downloads the display and writes it to path,
// replacing any existing file.
func (s *Scope) ScreenshotToFile(format, path string) error {
	img, err := s.Screenshot(format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, img, 0644)
}
