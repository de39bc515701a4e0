// oled drives an SSD1306 controller through the byte and gpio/delay callbacks of
// the transport package, so every bus transaction fits the adapter's buffer.
package oled

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"code.sztanpet.net/zvpsz/pico-demo/internal/transport"
	"github.com/juju/loggo"
	"periph.io/x/periph/devices/ssd1306/image1bit"
)

var logger = loggo.GetLogger("pico.oled")

// Transport is one of the two driver callbacks.
type Transport interface {
	Handle(msg transport.Msg, n int, data []byte) error
}

const (
	ctrlCommand = 0x00
	ctrlData    = 0x40

	// one control byte per transaction, the rest is payload
	chunkSize = transport.BufferSize - 1
)

type Opts struct {
	W int
	H int
}

var DefaultOpts = Opts{W: 128, H: 64}

var ErrSize = errors.New("oled: unsupported display size")

// Dev is an SSD1306 display, it keeps a shadow copy of the controller RAM.
type Dev struct {
	bytes Transport
	delay Transport
	rect  image.Rectangle
	buf   *image1bit.VerticalLSB
}

func New(bytes, delay Transport, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.W <= 0 || opts.W > 128 || opts.H <= 0 || opts.H > 64 || opts.H%8 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrSize, opts.W, opts.H)
	}

	r := image.Rect(0, 0, opts.W, opts.H)
	return &Dev{
		bytes: bytes,
		delay: delay,
		rect:  r,
		buf:   image1bit.NewVerticalLSB(r),
	}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("oled.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}

// Init brings the controller up and switches the panel on.
func (d *Dev) Init() error {
	if err := d.delay.Handle(transport.MsgGPIOAndDelayInit, 0, nil); err != nil {
		return err
	}
	if err := d.bytes.Handle(transport.MsgByteInit, 0, nil); err != nil {
		return err
	}
	if err := d.delay.Handle(transport.MsgGPIOReset, 1, nil); err != nil {
		return err
	}
	if err := d.delay.Handle(transport.MsgDelayMilli, 1, nil); err != nil {
		return err
	}

	comPins := byte(0x12)
	if d.rect.Dy() <= 32 {
		comPins = 0x02
	}

	err := d.command(
		0xAE,       // display off
		0xD5, 0x80, // clock divide ratio
		0xA8, byte(d.rect.Dy()-1), // multiplex ratio
		0xD3, 0x00, // display offset
		0x40,       // start line 0
		0x8D, 0x14, // charge pump on
		0x20, 0x00, // horizontal addressing
		0xA1, // segment remap
		0xC8, // COM scan reversed
		0xDA, comPins,
		0x81, 0xCF, // contrast
		0xD9, 0xF1, // pre-charge
		0xDB, 0x40, // vcomh deselect
		0x2E, // scroll off
		0xA4, // output follows RAM
		0xA6, // not inverted
	)
	if err != nil {
		return fmt.Errorf("oled init: %w", err)
	}

	return d.SetPowerSave(false)
}

// SetPowerSave switches the panel off (true) or on (false), RAM is kept.
func (d *Dev) SetPowerSave(save bool) error {
	if save {
		return d.command(0xAE)
	}
	return d.command(0xAF)
}

func (d *Dev) SetContrast(c byte) error {
	return d.command(0x81, c)
}

// Halt switches the panel off.
func (d *Dev) Halt() error {
	return d.SetPowerSave(true)
}

func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw copies src into the controller, only the pages touched by r are sent.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.rect)
	if r.Empty() {
		return nil
	}

	if img, ok := src.(*image1bit.VerticalLSB); ok && r == d.rect && img.Rect == d.rect && sp == (image.Point{}) {
		copy(d.buf.Pix, img.Pix)
	} else {
		draw.Draw(d.buf, r, src, sp, draw.Src)
	}

	return d.flush(r)
}

func (d *Dev) flush(r image.Rectangle) error {
	c0, c1 := r.Min.X, r.Max.X-1
	p0, p1 := r.Min.Y/8, (r.Max.Y-1)/8

	if err := d.command(0x21, byte(c0), byte(c1), 0x22, byte(p0), byte(p1)); err != nil {
		return fmt.Errorf("oled window: %w", err)
	}

	data := make([]byte, 0, (c1-c0+1)*(p1-p0+1))
	for p := p0; p <= p1; p++ {
		off := p * d.buf.Stride
		data = append(data, d.buf.Pix[off+c0:off+c1+1]...)
	}

	logger.Tracef("flushing %d bytes, columns %d-%d pages %d-%d", len(data), c0, c1, p0, p1)
	for len(data) > 0 {
		n := len(data)
		if n > chunkSize {
			n = chunkSize
		}
		if err := d.transaction(ctrlData, data[:n]); err != nil {
			return fmt.Errorf("oled data: %w", err)
		}
		data = data[n:]
	}

	return nil
}

func (d *Dev) command(cmds ...byte) error {
	for len(cmds) > 0 {
		n := len(cmds)
		if n > chunkSize {
			n = chunkSize
		}
		if err := d.transaction(ctrlCommand, cmds[:n]); err != nil {
			return err
		}
		cmds = cmds[n:]
	}

	return nil
}

func (d *Dev) transaction(ctrl byte, payload []byte) error {
	if err := d.bytes.Handle(transport.MsgByteStartTransfer, 0, nil); err != nil {
		return err
	}
	if err := d.bytes.Handle(transport.MsgByteSend, 1, []byte{ctrl}); err != nil {
		return err
	}
	if err := d.bytes.Handle(transport.MsgByteSend, len(payload), payload); err != nil {
		return err
	}

	return d.bytes.Handle(transport.MsgByteEndTransfer, 0, nil)
}
