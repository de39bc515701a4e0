package display

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io/ioutil"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/pico-demo/internal/config"
	"code.sztanpet.net/zvpsz/pico-demo/internal/oled"
	"code.sztanpet.net/zvpsz/pico-demo/internal/transport"
	"github.com/golang/freetype/truetype"
	"github.com/juju/loggo"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/devices/ssd1306"
	"periph.io/x/periph/devices/ssd1306/image1bit"
	"periph.io/x/periph/host"
)

var logger = loggo.GetLogger("pico.display")

// The ScreenTimeout after which the display is blanked to prevent burn-in.
var ScreenTimeout = 10 * time.Minute

// Drawer is the display controller, either driven through the transport adapter
// or by periph's own ssd1306 driver.
type Drawer interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

type Screen struct {
	ctx  context.Context
	dev  Drawer
	bus  i2c.BusCloser
	face font.Face

	mu         sync.Mutex
	img        *image1bit.VerticalLSB
	lastActive time.Time
	blanked    bool
}

func NewScreen(ctx context.Context, dev Drawer, face font.Face) *Screen {
	if face == nil {
		face = inconsolata.Bold8x16
	}

	return &Screen{
		ctx:        ctx,
		dev:        dev,
		face:       face,
		img:        image1bit.NewVerticalLSB(dev.Bounds()),
		lastActive: time.Now(),
	}
}

// Open initializes the host, opens the i2c bus and brings up the display
// with the driver selected in cfg.
func Open(ctx context.Context, cfg *config.Config) (*Screen, error) {
	if _, err := host.Init(); err != nil {
		logger.Warningf("no display host detected: %v", err)
		return nil, err
	}

	b, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		logger.Warningf("could not open i2c bus %q, display disabled: %v", cfg.I2CBus, err)
		return nil, err
	}

	if err := b.SetSpeed(physic.Frequency(cfg.I2CSpeedKHz) * physic.KiloHertz); err != nil {
		logger.Infof("could not set i2c speed to %dkHz: %v", cfg.I2CSpeedKHz, err)
	}

	var dev Drawer
	switch cfg.DisplayDriver {
	case config.DriverPeriph:
		opts := ssd1306.DefaultOpts
		opts.Rotated = false
		dev, err = ssd1306.NewI2C(b, &opts)
	default:
		var d *oled.Dev
		d, err = oled.New(transport.New(transport.I2C{Bus: b}, cfg.OLEDAddr<<1), transport.NewDelay(), nil)
		if err == nil {
			err = d.Init()
		}
		dev = d
	}
	if err != nil {
		_ = b.Close()
		logger.Warningf("could not find ssd1306 screen at 0x%02x, display disabled: %v", cfg.OLEDAddr, err)
		return nil, err
	}

	face, err := LoadFace(cfg.FontPath, 10)
	if err != nil {
		logger.Warningf("could not load font %q, using the builtin one: %v", cfg.FontPath, err)
		face = nil
	}

	s := NewScreen(ctx, dev, face)
	s.bus = b
	return s, nil
}

// LoadFace parses a TrueType font, an empty path means the builtin font.
func LoadFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return inconsolata.Bold8x16, nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %v: %w", path, err)
	}

	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

func (s *Screen) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// DrawString draws text into the buffer with its baseline at y, call Draw to show it.
func (s *Screen) DrawString(x, y int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drawString(x, y, text)
}

func (s *Screen) drawString(x, y int, text string) {
	d := font.Drawer{
		Dst:  s.img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: s.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func (s *Screen) lineHeight() int {
	return s.face.Metrics().Height.Ceil()
}

// WriteLine replaces the text of the line-th line (counted from the top) and draws the screen.
func (s *Screen) WriteLine(line int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.lineHeight()
	area := image.Rect(0, line*h, s.img.Bounds().Dx(), (line+1)*h).Intersect(s.img.Bounds())
	draw.Draw(s.img, area, &image.Uniform{C: image1bit.Off}, image.Point{}, draw.Src)

	s.drawString(0, (line+1)*h-s.face.Metrics().Descent.Ceil(), text)
	return s.drawLocked()
}

// DrawImage copies img into the buffer, centered, and draws the screen.
func (s *Screen) DrawImage(img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.img.Bounds()
	ib := img.Bounds()
	off := image.Pt((b.Dx()-ib.Dx())/2, (b.Dy()-ib.Dy())/2)
	draw.Draw(s.img, ib.Sub(ib.Min).Add(off), img, ib.Min, draw.Src)

	return s.drawLocked()
}

// Clear empties the buffer without drawing it.
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.img.Pix {
		s.img.Pix[i] = 0
	}
}

func (s *Screen) Draw() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.drawLocked()
}

func (s *Screen) drawLocked() error {
	s.lastActive = time.Now()
	s.blanked = false
	return s.dev.Draw(s.dev.Bounds(), s.img, image.Point{})
}

// Blank blanks the screen without clearing the buffer.
func (s *Screen) Blank() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blanked = true
	img := image1bit.NewVerticalLSB(s.dev.Bounds())
	return s.dev.Draw(s.dev.Bounds(), img, image.Point{})
}

func (s *Screen) shouldBlank(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.blanked && now.After(s.lastActive.Add(ScreenTimeout))
}

// HandleScreenSaver blanks the screen after ScreenTimeout without activity.
func (s *Screen) HandleScreenSaver(ctx context.Context) {
	t := time.NewTicker(1 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if s.shouldBlank(now) {
				if err := s.Blank(); err != nil {
					logger.Warningf("blanking the screen failed: %v", err)
				}
			}
		}
	}
}

// Close switches the display off and releases the bus.
func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.dev.Halt()
	if s.bus != nil {
		if cerr := s.bus.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
