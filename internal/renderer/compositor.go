package renderer

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/kenburns/internal/kenburns"
	"github.com/ivlev/kenburns/internal/system"
	"github.com/ivlev/kenburns/internal/timeline"
)

// Compositor turns sampled layers into frames of a fixed size.
type Compositor struct {
	Width, Height int
	Background    color.Color
	Interpolator  draw.Interpolator
}

func NewCompositor(width, height int) *Compositor {
	return &Compositor{
		Width:        width,
		Height:       height,
		Background:   color.Black,
		Interpolator: draw.ApproxBiLinear,
	}
}

// Frame returns a pooled frame with the layers drawn bottom to top. Hand
// it back with system.PutImage once it has been consumed.
func (c *Compositor) Frame(layers []timeline.LayerState) *image.RGBA {
	dst := system.GetImage(image.Rect(0, 0, c.Width, c.Height))
	c.Compose(dst, layers)
	return dst
}

// Compose draws the layers into dst, which must be Width x Height.
func (c *Compositor) Compose(dst *image.RGBA, layers []timeline.LayerState) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c.Background), image.Point{}, draw.Src)

	for _, l := range layers {
		if l.Image == nil || l.Opacity <= 0 {
			continue
		}
		c.drawLayer(dst, l)
	}
}

func (c *Compositor) drawLayer(dst *image.RGBA, l timeline.LayerState) {
	src := l.Image
	sr := src.Bounds()
	m := c.transform(sr, l.Scale, l.Anchor)

	if l.Opacity >= 1 {
		c.Interpolator.Transform(dst, m, src, sr, draw.Over, nil)
		return
	}

	tmp := system.GetImage(dst.Bounds())
	defer system.PutImage(tmp)
	system.Clear(tmp)

	c.Interpolator.Transform(tmp, m, src, sr, draw.Src, nil)
	mask := image.NewUniform(color.Alpha{A: uint8(l.Opacity*255 + 0.5)})
	draw.DrawMask(dst, dst.Bounds(), tmp, image.Point{}, mask, image.Point{}, draw.Over)
}

// transform maps source pixels to frame pixels. The source is cropped to
// the frame aspect ratio (cover fit), then the crop shrinks by scale while
// keeping the anchor point fixed.
func (c *Compositor) transform(sr image.Rectangle, scale float64, anchor kenburns.Anchor) f64.Aff3 {
	cx, cy, cw, ch := Crop(sr, c.Width, c.Height, scale, anchor)
	kx := float64(c.Width) / cw
	ky := float64(c.Height) / ch
	return f64.Aff3{
		kx, 0, -cx * kx,
		0, ky, -cy * ky,
	}
}

// Crop returns the source region (x, y, w, h) that is visible in a
// width x height frame at the given scale and anchor.
func Crop(sr image.Rectangle, width, height int, scale float64, anchor kenburns.Anchor) (x, y, w, h float64) {
	if scale < 1 {
		scale = 1
	}
	sw, sh := float64(sr.Dx()), float64(sr.Dy())
	frameAspect := float64(width) / float64(height)

	// Cover fit.
	bw, bh := sw, sw/frameAspect
	if bh > sh {
		bw, bh = sh*frameAspect, sh
	}
	bx := float64(sr.Min.X) + (sw-bw)/2
	by := float64(sr.Min.Y) + (sh-bh)/2

	w, h = bw/scale, bh/scale
	a := anchor.Clamp()
	x = bx + a.X*(bw-w)
	y = by + a.Y*(bh-h)
	return x, y, w, h
}
