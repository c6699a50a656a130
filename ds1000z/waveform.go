package ds1000z

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/x-vmaier/rigol1000z/comm"
	"github.com/x-vmaier/rigol1000z/oscilloscope"
	"github.com/x-vmaier/rigol1000z/scpi"
)

const waveformPrefix = ":wav"

const (
	// MaxBlockPoints is the largest window the scope serves per
	// :wav:data? pull; deeper records are read in multiple windows.
	MaxBlockPoints = 250000

	// DataHeaderLen is the size of the TMC block header "#9nnnnnnnnn"
	// prefixed to each data reply.  Firmware-dependent, hence a named
	// constant rather than a literal in the transfer loop.
	DataHeaderLen = 11

	// DataTrailerLen is the terminator byte count ending each data reply.
	DataTrailerLen = 1
)

// Waveform is the waveform readout menu, under the ":wav" prefix.
type Waveform struct {
	s *Scope
}

// Waveform returns the waveform readout menu.
func (s *Scope) Waveform() Waveform {
	return Waveform{s: s}
}

func (w Waveform) cmd(leaf string) string {
	return waveformPrefix + leaf
}

// Source returns the channel the readout menu is pointed at.
func (w Waveform) Source() (string, error) {
	return w.s.ReadString(w.cmd(":sour?"))
}

// SetSource points the readout menu at a channel.
func (w Waveform) SetSource(src string) error {
	if !validSource(src) {
		return fmt.Errorf("%w: waveform source %q", ErrInvalidParameter, src)
	}
	return w.s.Write(w.cmd(":sour"), src)
}

// Mode returns the readout mode, one of NORM, MAX, RAW.
func (w Waveform) Mode() (string, error) {
	return w.s.ReadString(w.cmd(":mode?"))
}

// SetMode sets the readout mode.  NORM reads the points on screen, RAW
// reads everything captured in memory (stopped scope only), MAX picks per
// run state.
func (w Waveform) SetMode(mode string) error {
	switch mode {
	case ModeNormal, ModeMax, ModeRaw:
	default:
		return fmt.Errorf("%w: waveform mode %q not in {NORM, MAX, RAW}", ErrInvalidParameter, mode)
	}
	return w.s.Write(w.cmd(":mode"), mode)
}

// Format returns the wire format, one of WORD, BYTE, ASC.
func (w Waveform) Format() (string, error) {
	return w.s.ReadString(w.cmd(":form?"))
}

// SetFormat sets the wire format.
func (w Waveform) SetFormat(format string) error {
	switch format {
	case FormatWord, FormatByte, FormatASCII:
	default:
		return fmt.Errorf("%w: waveform format %q not in {WORD, BYTE, ASC}", ErrInvalidParameter, format)
	}
	return w.s.Write(w.cmd(":form"), format)
}

// XIncrement returns the time between neighboring points in seconds.
func (w Waveform) XIncrement() (float64, error) {
	return w.s.ReadFloat(w.cmd(":xinc?"))
}

// XOrigin returns the start time of the selected record.
func (w Waveform) XOrigin() (float64, error) {
	return w.s.ReadFloat(w.cmd(":xor?"))
}

// XReference returns the reference index of the time axis, always 0.
func (w Waveform) XReference() (float64, error) {
	return w.s.ReadFloat(w.cmd(":xref?"))
}

// YIncrement returns the voltage size of one raw code step.
func (w Waveform) YIncrement() (float64, error) {
	return w.s.ReadFloat(w.cmd(":yinc?"))
}

// YOrigin returns the vertical offset in raw code units.
func (w Waveform) YOrigin() (float64, error) {
	return w.s.ReadFloat(w.cmd(":yor?"))
}

// YReference returns the vertical reference position, always 127 for
// byte data (screen bottom 0, top 255).
func (w Waveform) YReference() (float64, error) {
	return w.s.ReadFloat(w.cmd(":yref?"))
}

// StartPoint returns the first point of the read window, 1-based.
func (w Waveform) StartPoint() (int, error) {
	return w.s.ReadInt(w.cmd(":star?"))
}

// SetStartPoint sets the first point of the read window, 1-based.
func (w Waveform) SetStartPoint(point int) error {
	if point < 1 {
		return fmt.Errorf("%w: start point %d < 1", ErrInvalidParameter, point)
	}
	return w.s.Write(w.cmd(":star"), strconv.Itoa(point))
}

// StopPoint returns the last point of the read window, inclusive.
func (w Waveform) StopPoint() (int, error) {
	return w.s.ReadInt(w.cmd(":stop?"))
}

// SetStopPoint sets the last point of the read window, inclusive.
func (w Waveform) SetStopPoint(point int) error {
	if point < 1 {
		return fmt.Errorf("%w: stop point %d < 1", ErrInvalidParameter, point)
	}
	return w.s.Write(w.cmd(":stop"), strconv.Itoa(point))
}

// Preamble queries and decodes the waveform descriptor for the selected
// source and mode.
func (w Waveform) Preamble() (oscilloscope.Preamble, error) {
	raw, err := w.s.ReadString(w.cmd(":pre?"))
	if err != nil {
		return oscilloscope.Preamble{}, err
	}
	return oscilloscope.ParsePreamble(raw)
}

// readFramed sends query and reads one complete framed reply: the TMC
// header names the payload length, and the loop drains the connection
// until header, payload, and terminator have all arrived.  A single Read
// is never enough; blocks span many TCP frames.
func (s *Scope) readFramed(query string, capacity int) ([]byte, error) {
	conn, err := s.Pool.Get()
	if err != nil {
		return nil, err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	var wrap io.ReadWriter
	wrap, err = comm.NewTimeout(conn, s.Deadline())
	if err != nil {
		return nil, err
	}
	_, err = io.WriteString(wrap, query+"\n")
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, capacity)
	tmp := make([]byte, 1<<16)
	read := func(want int) error {
		for len(buf) < want {
			n, rerr := wrap.Read(tmp)
			buf = append(buf, tmp[:n]...)
			if rerr != nil {
				return rerr
			}
		}
		return nil
	}
	if err = read(2); err != nil {
		return nil, err
	}
	if buf[0] != '#' {
		err = fmt.Errorf("first byte in block reply was %q, expected #", buf[0])
		return nil, err
	}
	ndigits := int(buf[1] - '0')
	if ndigits < 1 || ndigits > 9 {
		err = fmt.Errorf("block reply length field width %d is not in 1..9", ndigits)
		return nil, err
	}
	if err = read(2 + ndigits); err != nil {
		return nil, err
	}
	nbytes, err := strconv.Atoi(string(buf[2 : 2+ndigits]))
	if err != nil {
		return nil, err
	}
	// header, payload, and the terminator byte
	if err = read(2 + ndigits + nbytes + 1); err != nil {
		return nil, err
	}
	return buf[:2+ndigits+nbytes+1], nil
}

// AcquireOptions configures a bulk waveform download.
type AcquireOptions struct {
	// Source is the channel to read.  Defaults to CHAN1.
	Source string

	// Mode is NORM (screen points) or RAW (full capture memory).
	// Defaults to NORM.
	Mode string

	// Baseline anchors the reconstructed time axis; the zero value starts
	// it at zero, BaselineDevice honors the reported x-origin.
	Baseline oscilloscope.TimeBaseline

	// Progress, if non-nil, is called after each completed block with the
	// number of blocks done and planned.  It runs on the acquisition
	// goroutine and must not block.
	Progress func(done, total int)
}

// AcquireData halts acquisition and downloads the captured waveform as a
// time/voltage series.
//
// The capture buffer is only stable while stopped, so the scope is
// stopped first and left stopped; resuming RUN mode is the caller's
// business.  The block loop honors ctx between blocks (a block in flight
// cannot be cancelled without desynchronizing the device's read window).
// On any failure the error is returned and no partial series is produced.
func (s *Scope) AcquireData(ctx context.Context, opts AcquireOptions) (oscilloscope.Series, error) {
	var series oscilloscope.Series
	if opts.Source == "" {
		opts.Source = SourceChan1
	}
	if opts.Mode == "" {
		opts.Mode = ModeNormal
	}
	if opts.Mode != ModeNormal && opts.Mode != ModeRaw {
		return series, fmt.Errorf("%w: acquisition mode %q not in {NORM, RAW}", ErrInvalidParameter, opts.Mode)
	}
	if err := s.Stop(); err != nil {
		return series, err
	}
	w := s.Waveform()
	if err := w.SetSource(opts.Source); err != nil {
		return series, err
	}
	if err := w.SetMode(opts.Mode); err != nil {
		return series, err
	}
	if err := w.SetFormat(FormatByte); err != nil {
		return series, err
	}
	pre, err := w.Preamble()
	if err != nil {
		return series, err
	}
	blocks := oscilloscope.PlanBlocks(pre.Points, MaxBlockPoints)
	chunks := make([][]byte, 0, len(blocks))
	for i, b := range blocks {
		select {
		case <-ctx.Done():
			return series, fmt.Errorf("acquisition cancelled after %d of %d blocks: %w", i, len(blocks), ctx.Err())
		default:
		}
		if err := w.SetStartPoint(b.Start); err != nil {
			return series, err
		}
		if err := w.SetStopPoint(b.Stop); err != nil {
			return series, err
		}
		// a full 250k block can take longer than any sane exchange
		// deadline; lift it for the read only and put it back before
		// anything else happens
		prev := s.SetTimeout(scpi.Unbounded)
		raw, rerr := s.readFramed(w.cmd(":data?"), b.Len()+DataHeaderLen+DataTrailerLen)
		s.SetTimeout(prev)
		if rerr != nil {
			return series, rerr
		}
		payload, perr := oscilloscope.ExtractFrame(raw, DataHeaderLen, DataTrailerLen)
		if perr != nil {
			return series, perr
		}
		chunks = append(chunks, payload)
		if opts.Progress != nil {
			opts.Progress(i+1, len(blocks))
		}
	}
	return oscilloscope.Assemble(pre, chunks, opts.Baseline)
}

// AcquireDataToFile is AcquireData followed by a delimited text dump to
// path, replacing any existing file.
func (s *Scope) AcquireDataToFile(ctx context.Context, opts AcquireOptions, path string) (oscilloscope.Series, error) {
	series, err := s.AcquireData(ctx, opts)
	if err != nil {
		return series, err
	}
	return series, series.WriteFile(path)
}
