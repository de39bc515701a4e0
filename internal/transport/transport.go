// transport bridges the byte protocol spoken by the display controller driver
// onto a blocking two-wire bus write.
// Bytes sent between a start and an end message are collected in a small buffer
// and written to the bus as a single transaction.
package transport

import (
	"errors"
	"fmt"

	"github.com/juju/loggo"
	"periph.io/x/periph/conn/i2c"
)

var logger = loggo.GetLogger("pico.transport")

// BufferSize is the capacity of the transmission buffer, one transaction never
// carries more bytes than this.
const BufferSize = 32

var (
	ErrBufferFull   = errors.New("transport: transmission buffer full")
	ErrShortPayload = errors.New("transport: payload shorter than announced length")
	ErrShortWrite   = errors.New("transport: bus accepted fewer bytes than buffered")
)

// Writer is the blocking bus write primitive, it returns the number of bytes
// the device accepted.
type Writer interface {
	Write(addr uint16, b []byte) (int, error)
}

// I2C writes to a periph.io i2c bus.
type I2C struct {
	Bus i2c.Bus
}

func (w I2C) Write(addr uint16, b []byte) (int, error) {
	d := i2c.Dev{Bus: w.Bus, Addr: addr}
	return d.Write(b)
}

// Adapter owns the transmission buffer and the bus address of one device.
// It is not safe for concurrent use, the driver never overlaps transactions.
type Adapter struct {
	w    Writer
	addr uint16

	buf [BufferSize]byte
	n   int
}

// New creates an Adapter for the device at the 8-bit address addr8,
// the bus is addressed with the 7-bit form (addr8 >> 1).
func New(w Writer, addr8 uint8) *Adapter {
	return &Adapter{
		w:    w,
		addr: uint16(addr8 >> 1),
	}
}

// Addr returns the 7-bit bus address.
func (a *Adapter) Addr() uint16 {
	return a.addr
}

// Buffered returns the bytes collected for the current transaction.
func (a *Adapter) Buffered() []byte {
	return a.buf[:a.n]
}

// Handle processes one message of the byte protocol.
// n is the number of bytes of data a SEND message carries.
func (a *Adapter) Handle(msg Msg, n int, data []byte) error {
	switch msg {
	case MsgByteInit:
		return nil

	case MsgByteStartTransfer:
		a.n = 0
		return nil

	case MsgByteSend:
		if n < 0 || n > len(data) {
			return fmt.Errorf("%w: %d > %d", ErrShortPayload, n, len(data))
		}
		for _, b := range data[:n] {
			// bytes appended so far stay in the buffer, the driver decides
			// whether to abandon or restart the transaction
			if a.n >= len(a.buf) {
				return ErrBufferFull
			}
			a.buf[a.n] = b
			a.n++
		}
		return nil

	case MsgByteEndTransfer:
		return a.flush()

	default:
		return nil
	}
}

func (a *Adapter) flush() error {
	w, err := a.w.Write(a.addr, a.buf[:a.n])
	if err != nil {
		logger.Debugf("bus write to 0x%02x failed: %v", a.addr, err)
		return fmt.Errorf("%w: %v", ErrShortWrite, err)
	}
	if w != a.n {
		logger.Debugf("bus write to 0x%02x: wrote %d of %d bytes", a.addr, w, a.n)
		return fmt.Errorf("%w: %d of %d", ErrShortWrite, w, a.n)
	}

	return nil
}
