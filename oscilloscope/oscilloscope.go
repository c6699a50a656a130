/*Package oscilloscope provides type definitions and the acquisition math
shared by oscilloscope drivers: decoding the device-reported waveform
preamble, planning bounded block transfers, unframing raw block replies,
and assembling the blocks into a physical-unit time series.

The functions here are pure; all I/O lives in the driver packages.
*/
package oscilloscope

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrMalformedPreamble is returned when a preamble reply does not have
	// exactly ten comma separated numeric fields, or its scale constants
	// are degenerate.
	ErrMalformedPreamble = errors.New("malformed waveform preamble")

	// ErrTruncatedFrame is returned when a raw block reply is too short to
	// contain its header and terminator.
	ErrTruncatedFrame = errors.New("truncated waveform data frame")

	// ErrSampleCountMismatch is returned when the concatenated sample data
	// disagrees with the preamble's point count.  It signals that the
	// driver and the device have desynchronized; the series must not be
	// used.
	ErrSampleCountMismatch = errors.New("sample count does not match preamble point count")
)

// Preamble is the device-reported metadata describing how to interpret a
// waveform capture.  It is constructed once per acquisition and never
// mutated.
type Preamble struct {
	// Format is the on-wire data representation (byte/word/ascii)
	Format int

	// Type is the acquisition mode at capture time
	Type int

	// Points is the total number of samples available for the selected
	// read mode
	Points int

	// Count is the averaging count, 1 outside average mode
	Count int

	// XIncrement is the time between neighboring points in seconds
	XIncrement float64

	// XOrigin is the start time of the record
	XOrigin float64

	// XReference is the reference index for the time axis
	XReference float64

	// YIncrement is the voltage size of one raw code step
	YIncrement float64

	// YOrigin is the vertical offset in raw code units
	YOrigin float64

	// YReference is the vertical reference position in raw code units
	YReference float64
}

// preambleFields is the fixed field count of a preamble reply.
const preambleFields = 10

// ParsePreamble decodes the comma separated reply to a preamble query.
func ParsePreamble(raw string) (Preamble, error) {
	var p Preamble
	pieces := strings.Split(strings.TrimSpace(raw), ",")
	if len(pieces) != preambleFields {
		return p, fmt.Errorf("%w: %d fields, expected %d", ErrMalformedPreamble, len(pieces), preambleFields)
	}
	ints := [4]int{}
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(pieces[i]))
		if err != nil {
			return p, fmt.Errorf("%w: field %d: %v", ErrMalformedPreamble, i, err)
		}
		ints[i] = v
	}
	floats := [6]float64{}
	for i := 4; i < preambleFields; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(pieces[i]), 64)
		if err != nil {
			return p, fmt.Errorf("%w: field %d: %v", ErrMalformedPreamble, i, err)
		}
		floats[i-4] = v
	}
	p = Preamble{
		Format:     ints[0],
		Type:       ints[1],
		Points:     ints[2],
		Count:      ints[3],
		XIncrement: floats[0],
		XOrigin:    floats[1],
		XReference: floats[2],
		YIncrement: floats[3],
		YOrigin:    floats[4],
		YReference: floats[5],
	}
	if p.Points < 0 {
		return p, fmt.Errorf("%w: negative point count %d", ErrMalformedPreamble, p.Points)
	}
	for _, inc := range []float64{p.XIncrement, p.YIncrement} {
		if inc == 0 || math.IsNaN(inc) || math.IsInf(inc, 0) {
			return p, fmt.Errorf("%w: degenerate increment %v", ErrMalformedPreamble, inc)
		}
	}
	return p, nil
}

// Encode renders the preamble in the device's wire format.  It is the
// inverse of ParsePreamble and is used by mock transports.
func (p Preamble) Encode() string {
	return fmt.Sprintf("%d,%d,%d,%d,%s,%s,%s,%s,%s,%s",
		p.Format, p.Type, p.Points, p.Count,
		fmtG(p.XIncrement), fmtG(p.XOrigin), fmtG(p.XReference),
		fmtG(p.YIncrement), fmtG(p.YOrigin), fmtG(p.YReference))
}

func fmtG(f float64) string {
	return strconv.FormatFloat(f, 'e', -1, 64)
}

// Block is one contiguous window of sample points to request, 1-based and
// inclusive on both ends.
type Block struct {
	Start int
	Stop  int
}

// Len returns the number of points covered by the block.
func (b Block) Len() int {
	return b.Stop - b.Start + 1
}

// PlanBlocks computes the ordered windows needed to pull points samples
// from a device that caps each transfer at maxBlock points.  The windows
// are contiguous, non-overlapping, ascending, and cover [1, points]
// exactly.  Zero points yields an empty plan, which is a valid, empty
// acquisition.
func PlanBlocks(points, maxBlock int) []Block {
	if points <= 0 || maxBlock <= 0 {
		return nil
	}
	full := points / maxBlock
	remainder := points % maxBlock
	n := full
	if remainder > 0 {
		n++
	}
	blocks := make([]Block, 0, n)
	for i := 0; i < full; i++ {
		blocks = append(blocks, Block{Start: 1 + i*maxBlock, Stop: (i + 1) * maxBlock})
	}
	if remainder > 0 {
		blocks = append(blocks, Block{Start: 1 + full*maxBlock, Stop: full*maxBlock + remainder})
	}
	return blocks
}

// ExtractFrame strips headerLen leading bytes and trailerLen trailing bytes
// from a raw block reply, returning the sample payload.  The sample bytes
// are not interpreted.  Header and trailer sizes vary with device firmware,
// so both are parameters rather than constants here.
func ExtractFrame(raw []byte, headerLen, trailerLen int) ([]byte, error) {
	if len(raw) < headerLen+trailerLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncatedFrame, len(raw), headerLen+trailerLen)
	}
	return raw[headerLen : len(raw)-trailerLen], nil
}

// TimeBaseline selects how the reconstructed time axis is anchored.
// Legacy drivers disagree on whether the device's reported x-origin should
// be honored, so the choice is explicit.
type TimeBaseline int

const (
	// BaselineZero starts the time axis at zero: t[i] = i*XIncrement.
	BaselineZero TimeBaseline = iota

	// BaselineDevice anchors the time axis on the device's reported
	// origin: t[i] = XOrigin + (i-XReference)*XIncrement.
	BaselineDevice
)

// Series is a fully reconstructed waveform: equal length time and voltage
// sequences plus the preamble they were derived from.
type Series struct {
	// Times is in seconds, monotonically increasing
	Times []float64

	// Volts is in physical units per the preamble scaling
	Volts []float64

	// Preamble is the descriptor the series was built from
	Preamble Preamble
}

// Assemble concatenates the sample chunks, in the order they were pulled,
// and converts raw codes to physical units:
//
//	v = (code - YOrigin - YReference) * YIncrement
//
// Chunks must be appended strictly in ascending window order; the driver
// guarantees this by construction.  The total sample count must equal the
// preamble's point count or ErrSampleCountMismatch is returned.
func Assemble(pre Preamble, chunks [][]byte, baseline TimeBaseline) (Series, error) {
	var s Series
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != pre.Points {
		return s, fmt.Errorf("%w: %d samples, preamble says %d", ErrSampleCountMismatch, total, pre.Points)
	}
	times := make([]float64, pre.Points)
	volts := make([]float64, pre.Points)
	i := 0
	for _, c := range chunks {
		for _, code := range c {
			volts[i] = (float64(code) - pre.YOrigin - pre.YReference) * pre.YIncrement
			i++
		}
	}
	for i := 0; i < pre.Points; i++ {
		switch baseline {
		case BaselineDevice:
			times[i] = pre.XOrigin + (float64(i)-pre.XReference)*pre.XIncrement
		default:
			times[i] = float64(i) * pre.XIncrement
		}
	}
	s = Series{Times: times, Volts: volts, Preamble: pre}
	return s, nil
}

// EncodeTXT writes the series as delimited text, one sample per row,
// "time, voltage" in scientific notation with 12 digits of precision and
// no header row.
func (s Series) EncodeTXT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i := range s.Times {
		if _, err := fmt.Fprintf(bw, "%.12e, %.12e\n", s.Times[i], s.Volts[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile dumps the series to path, replacing any existing file.
func (s Series) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = s.EncodeTXT(f)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	return err
}
