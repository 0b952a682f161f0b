package analyzer

import (
	"image"
	"reflect"

	"github.com/ivlev/kenburns/internal/kenburns"
)

// CenterDetector reports no blocks, so Focus falls back to the centre.
type CenterDetector struct{}

func (CenterDetector) Detect(image.Image) ([]Block, error) { return nil, nil }

// Focus returns the zoom anchor for img: the centre of the heaviest block
// in normalized coordinates, or the image centre when nothing stands out.
func Focus(det Detector, img image.Image) kenburns.Anchor {
	blocks, err := det.Detect(img)
	if err != nil || len(blocks) == 0 {
		return kenburns.AnchorCenter
	}

	best := blocks[0]
	for _, b := range blocks[1:] {
		if b.Weight() > best.Weight() {
			best = b
		}
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return kenburns.AnchorCenter
	}
	cx := float64(best.Rect.Min.X+best.Rect.Max.X)/2 - float64(bounds.Min.X)
	cy := float64(best.Rect.Min.Y+best.Rect.Max.Y)/2 - float64(bounds.Min.Y)
	return kenburns.Anchor{
		X: cx / float64(bounds.Dx()),
		Y: cy / float64(bounds.Dy()),
	}.Clamp()
}

// FocusAnchors precomputes the focus of every image and returns an
// AnchorFunc that looks them up by sequence index.
// FocusAnchors returns an AnchorFunc that focuses on the image it is given.
// Results are cached per image; images are analysed up front so the first
// cycle does not stall.
func FocusAnchors(det Detector, images []image.Image) kenburns.AnchorFunc {
	cache := make(map[image.Image]kenburns.Anchor, len(images))
	lookup := func(img image.Image) kenburns.Anchor {
		if img == nil {
			return kenburns.AnchorCenter
		}
		if !reflect.TypeOf(img).Comparable() {
			return Focus(det, img)
		}
		if a, ok := cache[img]; ok {
			return a
		}
		a := Focus(det, img)
		cache[img] = a
		return a
	}
	for _, img := range images {
		lookup(img)
	}
	return func(_ int, img image.Image, _ int) kenburns.Anchor {
		return lookup(img)
	}
}
