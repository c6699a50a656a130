package oscilloscope

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestPlanBlocksSingleExactBlock(t *testing.T) {
	blocks := PlanBlocks(250000, 250000)
	if len(blocks) != 1 {
		t.Fatalf("%d blocks, expected 1", len(blocks))
	}
	if blocks[0] != (Block{Start: 1, Stop: 250000}) {
		t.Errorf("block %+v, expected [1, 250000]", blocks[0])
	}
}

func TestPlanBlocksWithRemainder(t *testing.T) {
	blocks := PlanBlocks(600000, 250000)
	truth := []Block{
		{Start: 1, Stop: 250000},
		{Start: 250001, Stop: 500000},
		{Start: 500001, Stop: 600000},
	}
	if len(blocks) != len(truth) {
		t.Fatalf("%d blocks, expected %d", len(blocks), len(truth))
	}
	for i := range truth {
		if blocks[i] != truth[i] {
			t.Errorf("block %d is %+v, expected %+v", i, blocks[i], truth[i])
		}
	}
}

func TestPlanBlocksZeroPoints(t *testing.T) {
	if blocks := PlanBlocks(0, 250000); len(blocks) != 0 {
		t.Errorf("expected empty plan, got %d blocks", len(blocks))
	}
}

func TestPlanBlocksCoverage(t *testing.T) {
	// contiguous, non-overlapping, ascending, covering [1, points] exactly
	for _, points := range []int{1, 249999, 250000, 250001, 600000, 1234567} {
		blocks := PlanBlocks(points, 250000)
		next := 1
		total := 0
		for i, b := range blocks {
			if b.Start != next {
				t.Errorf("points=%d block %d starts at %d, expected %d", points, i, b.Start, next)
			}
			if b.Stop < b.Start {
				t.Errorf("points=%d block %d is inverted: %+v", points, i, b)
			}
			total += b.Len()
			next = b.Stop + 1
		}
		if total != points {
			t.Errorf("points=%d plan covers %d points", points, total)
		}
		if len(blocks) > 0 && blocks[len(blocks)-1].Stop != points {
			t.Errorf("points=%d plan ends at %d", points, blocks[len(blocks)-1].Stop)
		}
	}
}

func TestPreambleRoundTrip(t *testing.T) {
	p := Preamble{
		Format:     0,
		Type:       2,
		Points:     12000000,
		Count:      1,
		XIncrement: 1e-9,
		XOrigin:    -6e-3,
		XReference: 0,
		YIncrement: 0.04,
		YOrigin:    2,
		YReference: 127,
	}
	p2, err := ParsePreamble(p.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if p2 != p {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", p2, p)
	}
}

func TestParsePreambleDevice(t *testing.T) {
	// as reported by a DS1054Z in raw byte mode
	raw := "0,2,12000,1,1.000000e-06,-6.000000e-03,0.000000e+00,4.132813e-02,0.000000e+00,1.270000e+02\n"
	p, err := ParsePreamble(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.Points != 12000 || p.YReference != 127 {
		t.Errorf("decoded %+v", p)
	}
}

func TestParsePreambleRejects(t *testing.T) {
	cases := []string{
		"0,2,12000,1,1e-6,0,0,4e-2,0",              // nine fields
		"0,2,12000,1,1e-6,0,0,4e-2,0,127,0",        // eleven fields
		"0,2,12000,1,bogus,0,0,4e-2,0,127",         // non-numeric
		"0,2,12000,1,0,0,0,4e-2,0,127",             // zero x increment
		"0,2,12000,1,1e-6,0,0,0,0,127",             // zero y increment
		"x,2,12000,1,1e-6,0,0,4e-2,0,127",          // non-integer format
		"0,2,-5,1,1e-6,0,0,4e-2,0,127",             // negative points
	}
	for _, raw := range cases {
		if _, err := ParsePreamble(raw); !errors.Is(err, ErrMalformedPreamble) {
			t.Errorf("ParsePreamble(%q) = %v, expected ErrMalformedPreamble", raw, err)
		}
	}
}

func TestExtractFrame(t *testing.T) {
	raw := append([]byte("#9000000003"), 127, 137, 117, '\n')
	payload, err := ExtractFrame(raw, 11, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, []byte{127, 137, 117}) {
		t.Errorf("payload %v", payload)
	}
}

func TestExtractFrameTruncated(t *testing.T) {
	for _, n := range []int{0, 5, 11} {
		raw := make([]byte, n)
		if _, err := ExtractFrame(raw, 11, 1); !errors.Is(err, ErrTruncatedFrame) {
			t.Errorf("len %d: got %v, expected ErrTruncatedFrame", n, err)
		}
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestAssembleScaling(t *testing.T) {
	pre := Preamble{Points: 3, XIncrement: 1e-6, YIncrement: 0.1, YOrigin: 0, YReference: 127}
	s, err := Assemble(pre, [][]byte{{127, 137}, {117}}, BaselineZero)
	if err != nil {
		t.Fatal(err)
	}
	truthV := []float64{0.0, 1.0, -1.0}
	truthT := []float64{0, 1e-6, 2e-6}
	for i := range truthV {
		if !approx(s.Volts[i], truthV[i]) {
			t.Errorf("volts[%d] = %v, expected %v", i, s.Volts[i], truthV[i])
		}
		if !approx(s.Times[i], truthT[i]) {
			t.Errorf("times[%d] = %v, expected %v", i, s.Times[i], truthT[i])
		}
	}
}

func TestAssembleDeviceBaseline(t *testing.T) {
	pre := Preamble{Points: 2, XIncrement: 1e-3, XOrigin: -6e-3, YIncrement: 1, YReference: 0}
	s, err := Assemble(pre, [][]byte{{0, 1}}, BaselineDevice)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(s.Times[0], -6e-3) || !approx(s.Times[1], -5e-3) {
		t.Errorf("times %v, expected device-anchored axis", s.Times)
	}
}

func TestAssembleCountMismatch(t *testing.T) {
	pre := Preamble{Points: 4, XIncrement: 1, YIncrement: 1}
	if _, err := Assemble(pre, [][]byte{{1, 2, 3}}, BaselineZero); !errors.Is(err, ErrSampleCountMismatch) {
		t.Errorf("got %v, expected ErrSampleCountMismatch", err)
	}
}

func TestAssembleEmpty(t *testing.T) {
	pre := Preamble{Points: 0, XIncrement: 1, YIncrement: 1}
	s, err := Assemble(pre, nil, BaselineZero)
	if err != nil {
		t.Fatalf("empty acquisition should be valid, got %v", err)
	}
	if len(s.Times) != 0 || len(s.Volts) != 0 {
		t.Error("empty acquisition produced data")
	}
}

func TestEncodeTXTFormat(t *testing.T) {
	s := Series{Times: []float64{0, 1e-6}, Volts: []float64{0.5, -0.25}}
	buf := &bytes.Buffer{}
	if err := s.EncodeTXT(buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("%d rows, expected 2", len(lines))
	}
	if lines[0] != "0.000000000000e+00, 5.000000000000e-01" {
		t.Errorf("row %q has wrong format", lines[0])
	}
	if !strings.Contains(lines[1], ", -2.500000000000e-01") {
		t.Errorf("row %q has wrong format", lines[1])
	}
}
