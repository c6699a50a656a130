package ds1000z

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/x-vmaier/rigol1000z/oscilloscope"
	"github.com/x-vmaier/rigol1000z/scpi"
)

func testPreamble(points int) oscilloscope.Preamble {
	return oscilloscope.Preamble{
		Format:     0,
		Type:       2,
		Points:     points,
		Count:      1,
		XIncrement: 1e-6,
		XOrigin:    -6e-3,
		XReference: 0,
		YIncrement: 0.1,
		YOrigin:    0,
		YReference: 127,
	}
}

func TestAcquireDataMultiBlock(t *testing.T) {
	const points = 600000
	fake := &fakeDevice{pre: testPreamble(points), samples: ramp(points)}
	s := newFakeScope(fake)

	var progress []int
	series, err := s.AcquireData(context.Background(), AcquireOptions{
		Source: SourceChan1,
		Mode:   ModeRaw,
		Progress: func(done, total int) {
			if total != 3 {
				t.Errorf("progress total %d, expected 3", total)
			}
			progress = append(progress, done)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(series.Times) != points || len(series.Volts) != points {
		t.Fatalf("series length %d/%d, expected %d", len(series.Times), len(series.Volts), points)
	}
	if len(progress) != 3 || progress[0] != 1 || progress[2] != 3 {
		t.Errorf("progress sequence %v, expected [1 2 3]", progress)
	}
	// spot check the scaling: code 127 is zero volts with these constants
	if math.Abs(series.Volts[127]) > 1e-12 {
		t.Errorf("volts[127] = %v, expected 0", series.Volts[127])
	}
	if math.Abs(series.Times[1]-1e-6) > 1e-18 {
		t.Errorf("times[1] = %v, expected 1e-6", series.Times[1])
	}
	// the device must have been stopped and configured before the pull
	for _, cmd := range []string{":stop", ":wav:sour CHAN1", ":wav:mode RAW", ":wav:form BYTE"} {
		if !fake.sent(cmd) {
			t.Errorf("command %q never sent", cmd)
		}
	}
	// windows must walk the record in ascending order
	if !fake.sent(":wav:star 1") || !fake.sent(":wav:stop 250000") ||
		!fake.sent(":wav:star 250001") || !fake.sent(":wav:stop 500000") ||
		!fake.sent(":wav:star 500001") || !fake.sent(":wav:stop 600000") {
		t.Errorf("read windows wrong, commands were %v", fake.cmds)
	}
}

func TestAcquireDataIdempotent(t *testing.T) {
	const points = 4000
	fake := &fakeDevice{pre: testPreamble(points), samples: ramp(points)}
	s := newFakeScope(fake)

	first, err := s.AcquireData(context.Background(), AcquireOptions{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.AcquireData(context.Background(), AcquireOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Volts) != len(second.Volts) {
		t.Fatalf("lengths differ: %d vs %d", len(first.Volts), len(second.Volts))
	}
	for i := range first.Volts {
		if first.Volts[i] != second.Volts[i] || first.Times[i] != second.Times[i] {
			t.Fatalf("series differ at %d", i)
		}
	}
}

func TestAcquireDataDeviceBaseline(t *testing.T) {
	fake := &fakeDevice{pre: testPreamble(100), samples: ramp(100)}
	s := newFakeScope(fake)
	series, err := s.AcquireData(context.Background(), AcquireOptions{
		Baseline: oscilloscope.BaselineDevice,
	})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(series.Times[0]-(-6e-3)) > 1e-15 {
		t.Errorf("times[0] = %v, expected the device x-origin", series.Times[0])
	}
}

func TestAcquireDataRestoresTimeout(t *testing.T) {
	fake := &fakeDevice{pre: testPreamble(1000), samples: ramp(1000)}
	s := newFakeScope(fake)
	s.SetTimeout(2 * scpi.DefaultTimeout)
	_, err := s.AcquireData(context.Background(), AcquireOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Timeout != 2*scpi.DefaultTimeout {
		t.Errorf("timeout %v after acquire, expected %v", s.Timeout, 2*scpi.DefaultTimeout)
	}
}

func TestAcquireDataCancelled(t *testing.T) {
	fake := &fakeDevice{pre: testPreamble(1000), samples: ramp(1000)}
	s := newFakeScope(fake)
	prev := s.Timeout
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.AcquireData(ctx, AcquireOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, expected context.Canceled", err)
	}
	if s.Timeout != prev {
		t.Error("timeout not restored after cancellation")
	}
}

func TestAcquireDataRejectsMode(t *testing.T) {
	s := newFakeScope(&fakeDevice{})
	_, err := s.AcquireData(context.Background(), AcquireOptions{Mode: ModeMax})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("got %v, expected ErrInvalidParameter", err)
	}
}

func TestAcquireDataCountMismatch(t *testing.T) {
	// preamble promises more points than the device serves
	fake := &fakeDevice{pre: testPreamble(2000), samples: ramp(1500)}
	s := newFakeScope(fake)
	_, err := s.AcquireData(context.Background(), AcquireOptions{})
	if !errors.Is(err, oscilloscope.ErrSampleCountMismatch) {
		t.Fatalf("got %v, expected ErrSampleCountMismatch", err)
	}
}

func TestAcquireDataToFile(t *testing.T) {
	const points = 3
	fake := &fakeDevice{pre: testPreamble(points), samples: []byte{127, 137, 117}}
	s := newFakeScope(fake)
	path := filepath.Join(t.TempDir(), "wave.txt")
	// pre-existing files are replaced, not appended
	if err := os.WriteFile(path, []byte("stale\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := s.AcquireDataToFile(context.Background(), AcquireOptions{}, path)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if strings.Contains(text, "stale") {
		t.Error("existing file content not replaced")
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != points {
		t.Fatalf("%d rows, expected %d", len(lines), points)
	}
	if !strings.Contains(lines[1], "1.000000000000e+00") {
		t.Errorf("row %q missing the 1 V sample", lines[1])
	}
}

func TestScreenshot(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	fake := &fakeDevice{image: img}
	s := newFakeScope(fake)
	got, err := s.Screenshot("png")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(img) {
		t.Errorf("screenshot payload %v, expected %v", got, img)
	}
	if s.Timeout != 0 && s.Timeout != scpi.DefaultTimeout {
		t.Errorf("timeout %v after screenshot, expected restored value", s.Timeout)
	}
	if _, err := s.Screenshot("gif"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("gif accepted, expected ErrInvalidParameter")
	}
}
