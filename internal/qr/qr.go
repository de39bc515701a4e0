// qr renders QR codes for the 1 bit display.
// Light modules (and the quiet zone) are lit pixels, dark modules stay off.
package qr

import (
	"errors"
	"image"

	qrcode "github.com/skip2/go-qrcode"
	"periph.io/x/periph/devices/ssd1306/image1bit"
)

var ErrTooLarge = errors.New("qr: code does not fit the display")

// Render encodes content and draws it as large as possible, centered in bounds.
func Render(content string, bounds image.Rectangle) (*image1bit.VerticalLSB, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	// the bitmap already carries the quiet zone
	return RenderBitmap(q.Bitmap(), bounds)
}

// RenderBitmap draws a square module bitmap (true = dark) scaled by the largest
// integer factor that fits bounds.
func RenderBitmap(bitmap [][]bool, bounds image.Rectangle) (*image1bit.VerticalLSB, error) {
	n := len(bitmap)
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	if n == 0 || side/n < 1 {
		return nil, ErrTooLarge
	}

	scale := side / n
	x0 := bounds.Min.X + (bounds.Dx()-n*scale)/2
	y0 := bounds.Min.Y + (bounds.Dy()-n*scale)/2

	img := image1bit.NewVerticalLSB(bounds)
	for my, row := range bitmap {
		for mx, dark := range row {
			if dark {
				continue
			}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetBit(x0+mx*scale+dx, y0+my*scale+dy, image1bit.On)
				}
			}
		}
	}

	return img, nil
}
