package usbtmc

import "testing"

func TestBulkOutHeader(t *testing.T) {
	hdr := encBulkOutHeader(5, 300)
	truth := [12]byte{0x01, 0x05, 0xfa, 0x00, 0x2c, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}
	if hdr != truth {
		t.Errorf("header %x, expected %x", hdr, truth)
	}
}

func TestBulkInHeader(t *testing.T) {
	hdr := encBulkInHeader(2, 250011)
	truth := [12]byte{0x02, 0x02, 0xfd, 0x00, 0x9b, 0xd0, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00}
	if hdr != truth {
		t.Errorf("header %x, expected %x", hdr, truth)
	}
}

func TestBTagNeverZero(t *testing.T) {
	g := bTagGen{value: 254}
	seen := map[byte]bool{}
	for i := 0; i < 4; i++ {
		tag := g.next()
		if tag == 0 {
			t.Fatal("bTag of zero generated")
		}
		if invbTag(tag) != tag^0xff {
			t.Errorf("bTag inverse wrong for %d", tag)
		}
		seen[tag] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 distinct tags around wraparound, got %d", len(seen))
	}
}
