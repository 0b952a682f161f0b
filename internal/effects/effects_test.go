package effects

import (
	"strings"
	"testing"

	"github.com/ivlev/kenburns/internal/config"
)

func TestKenBurnsFilter(t *testing.T) {
	p := config.SegmentParams{
		Width: 640, Height: 360, FPS: 25,
		Duration: 4, ZoomFrom: 1, ZoomTo: 2.2,
		AnchorX: 1, AnchorY: 0,
	}
	f := (&KenBurnsEffect{}).GenerateFilter(p)
	t.Logf("filter: %s", f)

	for _, want := range []string{
		"scale=1280:720:force_original_aspect_ratio=increase",
		"crop=1280:720",
		"zoompan=z='1.000000+(1.200000)*on/99'",
		"x='1.000000*(iw-iw/zoom)'",
		"y='0.000000*(ih-ih/zoom)'",
		"d=100:s=640x360:fps=25",
	} {
		if !strings.Contains(f, want) {
			t.Errorf("filter missing %q", want)
		}
	}
}

func TestKenBurnsFilterStatic(t *testing.T) {
	p := config.SegmentParams{Width: 320, Height: 240, FPS: 30, Duration: 0, ZoomFrom: 0.5, ZoomTo: 0.5}
	f := (&KenBurnsEffect{}).GenerateFilter(p)
	if !strings.Contains(f, "z='1.000000'") || !strings.Contains(f, "d=1:") {
		t.Errorf("expected a clamped single-frame zoom, got %s", f)
	}
}
