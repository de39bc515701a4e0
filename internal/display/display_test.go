package display

import (
	"context"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/inconsolata"
	"periph.io/x/periph/devices/ssd1306/image1bit"
)

type fakeDev struct {
	frames []*image1bit.VerticalLSB
	halted bool
}

func (f *fakeDev) Bounds() image.Rectangle {
	return image.Rect(0, 0, 128, 64)
}

func (f *fakeDev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	img := src.(*image1bit.VerticalLSB)
	cp := image1bit.NewVerticalLSB(img.Rect)
	copy(cp.Pix, img.Pix)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeDev) Halt() error {
	f.halted = true
	return nil
}

func lit(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) {
				n++
			}
		}
	}
	return n
}

func TestScreen_HelloWorld(t *testing.T) {
	dev := &fakeDev{}
	s := NewScreen(context.Background(), dev, nil)

	s.Clear()
	s.DrawString(0, 12, "Hello World")
	require.Empty(t, dev.frames)
	require.NoError(t, s.Draw())

	require.Len(t, dev.frames, 1)
	f := dev.frames[0]
	assert.NotZero(t, lit(f, image.Rect(0, 0, 128, 13)))
	assert.Zero(t, lit(f, image.Rect(0, 16, 128, 64)))
}

func TestScreen_WriteLine(t *testing.T) {
	dev := &fakeDev{}
	s := NewScreen(context.Background(), dev, nil)
	h := inconsolata.Bold8x16.Height

	require.NoError(t, s.WriteLine(1, "LED=ON"))
	f := dev.frames[0]
	assert.Zero(t, lit(f, image.Rect(0, 0, 128, h)))
	assert.NotZero(t, lit(f, image.Rect(0, h, 128, 2*h)))

	// rewriting a line clears what was there
	require.NoError(t, s.WriteLine(1, ""))
	assert.Zero(t, lit(dev.frames[1], dev.Bounds()))
}

func TestScreen_DrawImageCentered(t *testing.T) {
	dev := &fakeDev{}
	s := NewScreen(context.Background(), dev, nil)

	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 10, 10))
	img.SetBit(0, 0, image1bit.On)
	require.NoError(t, s.DrawImage(img))

	assert.True(t, bool(dev.frames[0].BitAt(59, 27)))
	assert.Equal(t, 1, lit(dev.frames[0], dev.Bounds()))
}

func TestScreen_BlankKeepsBuffer(t *testing.T) {
	dev := &fakeDev{}
	s := NewScreen(context.Background(), dev, nil)

	require.NoError(t, s.WriteLine(0, "x"))
	require.NoError(t, s.Blank())
	assert.Zero(t, lit(dev.frames[1], dev.Bounds()))

	require.NoError(t, s.Draw())
	assert.Equal(t, dev.frames[0].Pix, dev.frames[2].Pix)
}

func TestScreen_ShouldBlank(t *testing.T) {
	s := NewScreen(context.Background(), &fakeDev{}, nil)
	now := time.Now()

	assert.False(t, s.shouldBlank(now))
	assert.True(t, s.shouldBlank(now.Add(ScreenTimeout+time.Second)))

	require.NoError(t, s.Blank())
	assert.False(t, s.shouldBlank(now.Add(ScreenTimeout+time.Second)))
}

func TestScreen_Close(t *testing.T) {
	dev := &fakeDev{}
	s := NewScreen(context.Background(), dev, nil)
	require.NoError(t, s.Close())
	assert.True(t, dev.halted)
}

func TestLoadFace(t *testing.T) {
	f, err := LoadFace("", 10)
	require.NoError(t, err)
	assert.Equal(t, inconsolata.Bold8x16, f)

	_, err = LoadFace(filepath.Join(t.TempDir(), "missing.ttf"), 10)
	assert.Error(t, err)
}
