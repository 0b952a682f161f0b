package analyzer

import "image"

// Block is a detected region of interest.
type Block struct {
	Rect       image.Rectangle
	Confidence float64 // 0.0-1.0
}

// Weight ranks blocks when choosing a focus point.
func (b Block) Weight() float64 {
	return float64(b.Rect.Dx()*b.Rect.Dy()) * b.Confidence
}

// Detector finds regions of interest in an image.
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}
