package source

import (
	"fmt"
	"image"
	"image/color"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// EndCard is a single generated slide with a QR code for URL centred on a
// white background.
type EndCard struct {
	URL           string
	Width, Height int
}

func NewEndCard(url string, width, height int) *EndCard {
	return &EndCard{URL: url, Width: width, Height: height}
}

func (e *EndCard) Len() int { return 1 }

func (e *EndCard) Name(int) string { return "endcard:" + e.URL }

func (e *EndCard) Load(index int) (image.Image, error) {
	if index != 0 {
		return nil, fmt.Errorf("end card has a single slide, got index %d", index)
	}

	q, err := qrcode.New(e.URL, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qrcode: %w", err)
	}

	side := e.Width
	if e.Height < side {
		side = e.Height
	}
	side = side * 2 / 3
	code := q.Image(side)

	canvas := image.NewRGBA(image.Rect(0, 0, e.Width, e.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	b := code.Bounds()
	off := image.Pt((e.Width-b.Dx())/2, (e.Height-b.Dy())/2)
	draw.Draw(canvas, b.Sub(b.Min).Add(off), code, b.Min, draw.Over)
	return canvas, nil
}

func (e *EndCard) Close() error { return nil }
