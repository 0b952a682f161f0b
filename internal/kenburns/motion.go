package kenburns

import (
	"image"
	"math/rand"
	"strings"
)

// Anchor is the fixed point of a zoom in normalized image coordinates:
// (0,0) is the top-left corner, (1,1) the bottom-right one.
type Anchor struct {
	X, Y float64
}

var (
	AnchorCenter      = Anchor{X: 0.5, Y: 0.5}
	AnchorTopLeft     = Anchor{X: 0, Y: 0}
	AnchorTopRight    = Anchor{X: 1, Y: 0}
	AnchorBottomLeft  = Anchor{X: 0, Y: 1}
	AnchorBottomRight = Anchor{X: 1, Y: 1}
)

var namedAnchors = map[string]Anchor{
	"center":       AnchorCenter,
	"top-left":     AnchorTopLeft,
	"top-right":    AnchorTopRight,
	"bottom-left":  AnchorBottomLeft,
	"bottom-right": AnchorBottomRight,
}

// ParseAnchor resolves a named anchor such as "top-left".
func ParseAnchor(name string) (Anchor, bool) {
	a, ok := namedAnchors[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Clamp keeps the anchor inside the unit square.
func (a Anchor) Clamp() Anchor {
	return Anchor{X: clamp01(a.X), Y: clamp01(a.Y)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// AnchorFunc picks the zoom anchor for the image shown at a given step.
type AnchorFunc func(index int, img image.Image, step int) Anchor

// FixedAnchor always zooms around a.
func FixedAnchor(a Anchor) AnchorFunc {
	a = a.Clamp()
	return func(int, image.Image, int) Anchor { return a }
}

// RandomAnchors picks one of the named anchors per step. The same seed
// yields the same sequence of anchors.
func RandomAnchors(seed int64) AnchorFunc {
	r := rand.New(rand.NewSource(seed))
	choices := []Anchor{AnchorCenter, AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight}
	return func(int, image.Image, int) Anchor {
		return choices[r.Intn(len(choices))]
	}
}

// Direction controls whether images zoom in, zoom out or alternate.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionAlternate
)

func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "out"
	case DirectionAlternate:
		return "alternate"
	default:
		return "in"
	}
}

// ParseDirection accepts "in", "out" and "alternate".
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "":
		return DirectionIn, true
	case "out":
		return DirectionOut, true
	case "alternate", "alt":
		return DirectionAlternate, true
	}
	return DirectionIn, false
}

// scaleRange returns the from/to scale for the given step.
func (d Direction) scaleRange(step int, zoom float64) (float64, float64) {
	switch d {
	case DirectionOut:
		return zoom, 1.0
	case DirectionAlternate:
		if step%2 == 1 {
			return zoom, 1.0
		}
	}
	return 1.0, zoom
}
