/*Package usbtmc implements datagram encoding and decoding for USB Test and
Measurement Class devices, exposed as an io.ReadWriteCloser so a device can
sit behind a comm.Pool the same way a TCP socket does.

Each Write is wrapped in a DEV_DEP_MSG_OUT transfer, padded to the 4-byte
alignment the standard requires.  Each Read issues a REQUEST_DEV_DEP_MSG_IN
transfer and then drains the bulk-in endpoint until the transfer size named
in the response header has arrived, so multi-packet waveform blocks come
back in one call.
*/
package usbtmc

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/gousb"
)

const (
	devDepMsgOut        = 0x01
	requestDevDepMsgIn  = 0x02
	headerLen           = 12
	reserved            = 0x00
	defaultTransferSize = 1024 * 1024
)

// bTagGen is a concurrent-safe bTag generator.  bTags are single bytes that
// increment with each message and must never be zero.
type bTagGen struct {
	sync.Mutex
	value byte
}

func (b *bTagGen) next() byte {
	b.Lock()
	defer b.Unlock()
	b.value++
	if b.value == 0 {
		b.value = 1
	}
	return b.value
}

// invbTag computes the bitwise inversion of a bTag, per USBTMC standard
// table 1 offset 2.
func invbTag(b byte) byte {
	return b ^ 0xff
}

// encBulkOutHeader creates the header defined in USBTMC standard, Table 3.
func encBulkOutHeader(tag byte, datalen int) [headerLen]byte {
	out := [headerLen]byte{}
	out[0] = devDepMsgOut
	out[1] = tag
	out[2] = invbTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(datalen))
	out[8] = 0x01 // EOM: this is the last message in the stream
	return out
}

// encBulkInHeader creates the header defined in USBTMC standard, Table 4.
func encBulkInHeader(tag byte, bufsize int) [headerLen]byte {
	out := [headerLen]byte{}
	out[0] = requestDevDepMsgIn
	out[1] = tag
	out[2] = invbTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(bufsize))
	// bytes 8-9 would request a termination character; the scopes terminate
	// on EOM instead, so leave the bit clear
	return out
}

// Device is a USBTMC instrument.  It satisfies io.ReadWriteCloser and is
// safe to place behind a comm.Pool.
type Device struct {
	tagger  bTagGen
	ctx     *gousb.Context
	device  *gousb.Device
	iface   *gousb.Interface
	in      *gousb.InEndpoint
	out     *gousb.OutEndpoint
	closer  func()
	pending []byte // remainder of the last bulk-in transfer not yet consumed
}

// NewDevice opens the USB device with the given vendor and product ID on
// its default interface and the given bulk endpoint numbers.
func NewDevice(vid, pid uint16, epIn, epOut int) (*Device, error) {
	d := &Device{ctx: gousb.NewContext()}
	var err error
	d.device, err = d.ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		d.ctx.Close()
		return nil, err
	}
	if d.device == nil {
		d.ctx.Close()
		return nil, fmt.Errorf("usbtmc: no device with VID:PID %04x:%04x", vid, pid)
	}
	if err = d.device.SetAutoDetach(true); err != nil {
		d.Close()
		return nil, err
	}
	d.iface, d.closer, err = d.device.DefaultInterface()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.in, err = d.iface.InEndpoint(epIn)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.out, err = d.iface.OutEndpoint(epOut)
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Write sends b to the instrument in a single DEV_DEP_MSG_OUT transfer.
func (d *Device) Write(b []byte) (int, error) {
	const alignment = 4
	hdr := encBulkOutHeader(d.tagger.next(), len(b))
	msg := append(hdr[:], b...)
	if residual := len(msg) % alignment; residual > 0 {
		msg = append(msg, make([]byte, alignment-residual)...)
	}
	_, err := d.out.Write(msg)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Read requests a DEV_DEP_MSG_IN transfer and fills p with its payload.
// Payload bytes beyond len(p) are buffered for the next call.
func (d *Device) Read(p []byte) (int, error) {
	if len(d.pending) > 0 {
		n := copy(p, d.pending)
		d.pending = d.pending[n:]
		return n, nil
	}
	req := len(p)
	if req < defaultTransferSize {
		req = defaultTransferSize
	}
	hdr := encBulkInHeader(d.tagger.next(), req)
	n, err := d.out.Write(hdr[:])
	if err != nil {
		return 0, err
	}
	if n != headerLen {
		return 0, fmt.Errorf("usbtmc: wrote %d of %d header bytes for read request", n, headerLen)
	}
	buf := make([]byte, d.in.Desc.MaxPacketSize)
	n, err = d.in.Read(buf)
	if err != nil {
		return 0, err
	}
	if n < headerLen {
		return 0, fmt.Errorf("usbtmc: received %d bytes, need at least %d to form header", n, headerLen)
	}
	transfer := int(binary.LittleEndian.Uint32(buf[4:8]))
	payload := append([]byte{}, buf[headerLen:n]...)
	for len(payload) < transfer {
		n, err = d.in.Read(buf)
		if err != nil {
			return 0, err
		}
		payload = append(payload, buf[:n]...)
	}
	payload = payload[:transfer]
	n = copy(p, payload)
	d.pending = payload[n:]
	return n, nil
}

// Close releases the interface and the device.
func (d *Device) Close() error {
	if d.closer != nil {
		d.closer()
	}
	var err error
	if d.device != nil {
		err = d.device.Close()
	}
	if d.ctx != nil {
		if err2 := d.ctx.Close(); err == nil {
			err = err2
		}
	}
	return err
}
