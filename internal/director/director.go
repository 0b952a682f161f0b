// Package director turns the steps a controller played into a storyboard:
// which image was shown when, around which anchor, and what part of the
// source was on screen at the start and end of every zoom.
package director

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/ivlev/kenburns/internal/kenburns"
	"github.com/ivlev/kenburns/internal/renderer"
	"github.com/ivlev/kenburns/internal/timeline"
)

const scenarioVersion = "1.0"

// Director maps timeline history onto source images.
type Director struct {
	ViewportWidth  int
	ViewportHeight int
	Names          []string
}

// NewDirector creates a new Director for a frame size and source names
func NewDirector(viewportWidth, viewportHeight int, names []string) *Director {
	return &Director{
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		Names:          names,
	}
}

// GenerateScenario builds one slide per recorded zoom. Steps starting at
// or after settings.Duration are dropped and the last one is cut there;
// a zero duration keeps everything.
func (d *Director) GenerateScenario(history []timeline.Record, settings Settings) (*Scenario, error) {
	total := time.Duration(settings.Duration * float64(time.Second))
	settings.Width, settings.Height = d.ViewportWidth, d.ViewportHeight

	var slides []Slide
	for _, r := range history {
		if r.Kind != "zoom" {
			continue
		}
		if total > 0 && r.At >= total {
			continue
		}

		dur := r.Duration
		if total > 0 && r.At+dur > total {
			dur = total - r.At
		}
		end := r.To
		if r.Duration > 0 {
			end = r.From + (r.To-r.From)*dur.Seconds()/r.Duration.Seconds()
		}

		slides = append(slides, Slide{
			Step:     r.Layer.Step,
			Index:    r.Layer.Index,
			Input:    d.name(r.Layer.Index),
			Start:    round(r.At.Seconds()),
			Duration: round(dur.Seconds()),
			Focus:    describeAnchor(r.Layer.Anchor),
			Keyframes: []Keyframe{
				d.keyframe(r.Layer, 0, r.From),
				d.keyframe(r.Layer, dur.Seconds(), end),
			},
		})
	}

	if len(slides) == 0 {
		return nil, fmt.Errorf("no steps recorded")
	}

	return &Scenario{
		Version:  scenarioVersion,
		Settings: settings,
		Slides:   slides,
	}, nil
}

func (d *Director) name(index int) string {
	if index >= 0 && index < len(d.Names) {
		return d.Names[index]
	}
	return fmt.Sprintf("#%d", index)
}

func (d *Director) keyframe(l kenburns.Layer, at, zoom float64) Keyframe {
	kf := Keyframe{Time: round(at), Zoom: round(zoom)}
	if l.Image == nil || d.ViewportWidth <= 0 || d.ViewportHeight <= 0 {
		return kf
	}
	x, y, w, h := renderer.Crop(l.Image.Bounds(), d.ViewportWidth, d.ViewportHeight, zoom, l.Anchor)
	kf.Rect = toRect(x, y, w, h)
	return kf
}

func toRect(x, y, w, h float64) Rectangle {
	r := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
	return Rectangle{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// describeAnchor names the anchor when it is one of the presets.
func describeAnchor(a kenburns.Anchor) string {
	for _, name := range []string{"center", "top-left", "top-right", "bottom-left", "bottom-right"} {
		if p, _ := kenburns.ParseAnchor(name); p == a {
			return name
		}
	}
	return fmt.Sprintf("%.2f,%.2f", a.X, a.Y)
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
