package kenburns

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"
)

type fakeCall struct {
	kind     string // "fade", "zoom", "after"
	layer    Layer
	from, to float64
	d        time.Duration
	fn       func()
	handle   *fakeHandle
}

type fakeHandle struct {
	cancelled bool
}

func (h *fakeHandle) Cancel() { h.cancelled = true }

// fakeAnimator records every request. Callbacks only run when the test
// fires them, which mirrors a host event loop.
type fakeAnimator struct {
	calls []*fakeCall
}

func (f *fakeAnimator) add(c *fakeCall) Handle {
	c.handle = &fakeHandle{}
	f.calls = append(f.calls, c)
	return c.handle
}

func (f *fakeAnimator) BeginFade(l Layer, from, to float64, d time.Duration, onComplete func()) Handle {
	return f.add(&fakeCall{kind: "fade", layer: l, from: from, to: to, d: d, fn: onComplete})
}

func (f *fakeAnimator) BeginZoom(l Layer, from, to float64, d time.Duration) Handle {
	return f.add(&fakeCall{kind: "zoom", layer: l, from: from, to: to, d: d})
}

func (f *fakeAnimator) After(d time.Duration, fn func()) Handle {
	return f.add(&fakeCall{kind: "after", d: d, fn: fn})
}

// pending returns uncancelled calls of the given kind that carry a callback.
func (f *fakeAnimator) pending(kind string) []*fakeCall {
	var out []*fakeCall
	for _, c := range f.calls {
		if c.kind == kind && c.fn != nil && !c.handle.cancelled {
			out = append(out, c)
		}
	}
	return out
}

// completeStep fires the latest fade-in completion and the timer it
// schedules, which starts the next step.
func (f *fakeAnimator) completeStep(t *testing.T) {
	t.Helper()
	fades := f.pending("fade")
	if len(fades) == 0 {
		t.Fatal("no pending fade-in")
	}
	fadeIn := fades[len(fades)-1]
	fadeIn.fn()
	fadeIn.fn = nil

	timers := f.pending("after")
	if len(timers) == 0 {
		t.Fatal("fade-in completion did not schedule the next step")
	}
	timer := timers[len(timers)-1]
	timer.fn()
	timer.fn = nil
}

func (f *fakeAnimator) fadeIns() []*fakeCall {
	var out []*fakeCall
	for _, c := range f.calls {
		if c.kind == "fade" && c.from == 0 && c.to == 1 {
			out = append(out, c)
		}
	}
	return out
}

func solid(v uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func sequence(n int) []image.Image {
	imgs := make([]image.Image, n)
	for i := range imgs {
		imgs[i] = solid(uint8(10 * (i + 1)))
	}
	return imgs
}

func grayOf(img image.Image) uint8 {
	return color.GrayModel.Convert(img.At(0, 0)).(color.Gray).Y
}

func TestStartNonEmptyIsAnimating(t *testing.T) {
	for n := 1; n <= 4; n++ {
		c := New(&fakeAnimator{})
		c.SetImages(sequence(n))
		c.Start()
		if !c.IsAnimating() {
			t.Errorf("n=%d: expected animating after Start", n)
		}
	}
}

func TestStartEmptyIsNoop(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.Start()
	if c.IsAnimating() {
		t.Error("Start on empty sequence must not animate")
	}
	c.SetImages([]image.Image{})
	c.Start()
	if c.IsAnimating() {
		t.Error("Start on explicitly empty sequence must not animate")
	}
	if len(fa.calls) != 0 {
		t.Errorf("expected no host calls, got %d", len(fa.calls))
	}
}

func TestStartTwiceIsIdempotent(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.SetImages(sequence(3))
	c.Start()
	calls := len(fa.calls)
	c.Start()
	if len(fa.calls) != calls {
		t.Errorf("second Start issued %d extra host calls", len(fa.calls)-calls)
	}
	if !c.IsAnimating() {
		t.Error("expected animating")
	}
}

func TestStopAtAnyStep(t *testing.T) {
	for steps := 0; steps < 5; steps++ {
		fa := &fakeAnimator{}
		c := New(fa)
		c.SetImages(sequence(3))
		c.Start()
		for i := 0; i < steps; i++ {
			fa.completeStep(t)
		}
		c.Stop()
		if c.IsAnimating() {
			t.Fatalf("steps=%d: still animating after Stop", steps)
		}
		for _, call := range fa.calls {
			if call.kind == "after" && call.fn != nil && !call.handle.cancelled {
				t.Errorf("steps=%d: timer left running after Stop", steps)
			}
		}
	}
}

func TestStopWhenStoppedIsNoop(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.Stop()
	c.SetImages(sequence(2))
	c.Stop()
	if c.IsAnimating() || len(fa.calls) != 0 {
		t.Error("Stop on a stopped controller must do nothing")
	}
}

func TestStaleCallbacksIgnoredAfterStop(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.SetImages(sequence(2))
	c.Start()

	fadeIn := fa.fadeIns()[0]
	c.Stop()

	// A host that raced the cancellation still must not revive the cycle.
	fadeIn.fn()
	if c.IsAnimating() {
		t.Fatal("stale completion restarted the controller")
	}
	if n := len(fa.pending("after")); n != 0 {
		t.Errorf("stale completion scheduled %d timers", n)
	}
}

func TestRoundRobinOrder(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	imgs := sequence(3)
	c.SetImages(imgs)
	c.SetZoomSize(2.2)
	c.SetFadeDuration(time.Second)
	c.Start()

	for i := 0; i < 6; i++ {
		fa.completeStep(t)
	}

	fadeIns := fa.fadeIns()
	if len(fadeIns) != 7 {
		t.Fatalf("expected 7 fade-ins, got %d", len(fadeIns))
	}
	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i, call := range fadeIns {
		if call.layer.Index != want[i] {
			t.Errorf("step %d: index %d, want %d", i, call.layer.Index, want[i])
		}
		if call.d != time.Second {
			t.Errorf("step %d: fade %v, want 1s", i, call.d)
		}
		if call.layer.Slot != i%2 {
			t.Errorf("step %d: slot %d, want %d", i, call.layer.Slot, i%2)
		}
	}

	for _, call := range fa.calls {
		if call.kind != "zoom" {
			continue
		}
		if call.from != 1.0 || call.to != 2.2 {
			t.Errorf("zoom %v -> %v, want 1 -> 2.2", call.from, call.to)
		}
		if call.d < c.DisplayInterval() {
			t.Errorf("zoom shorter than display window: %v", call.d)
		}
	}
}

func TestCrossFadePairsOutgoing(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.SetImages(sequence(2))
	c.Start()
	fa.completeStep(t)

	var out *fakeCall
	for _, call := range fa.calls {
		if call.kind == "fade" && call.from == 1 && call.to == 0 {
			out = call
		}
	}
	if out == nil {
		t.Fatal("no fade-out for the previous image")
	}
	if out.layer.Index != 0 || out.layer.Slot != 0 {
		t.Errorf("fade-out on wrong layer: %+v", out.layer)
	}
}

func TestSetImagesWhileRunningAppliesAtBoundary(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	a := solid(1)
	b, cc := solid(2), solid(3)
	c.SetImages([]image.Image{a})
	c.Start()

	c.SetImages([]image.Image{b, cc})
	if grayOf(fa.fadeIns()[0].layer.Image) != 1 {
		t.Fatal("first step should show A")
	}
	if len(fa.fadeIns()) != 1 {
		t.Fatal("SetImages must not start a new step by itself")
	}

	fa.completeStep(t)
	fa.completeStep(t)

	fadeIns := fa.fadeIns()
	got := []uint8{grayOf(fadeIns[1].layer.Image), grayOf(fadeIns[2].layer.Image)}
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("expected B then C after the boundary, got %v", got)
	}
}

func TestSetImagesEmptyWhileRunningStops(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.SetImages(sequence(2))
	c.Start()
	fa.completeStep(t)

	c.SetImages(nil)
	if c.IsAnimating() {
		t.Fatal("expected stopped after empty SetImages")
	}
	last := fa.calls[len(fa.calls)-1]
	if last.kind != "fade" || last.from != FromCurrent || last.to != 0 || last.layer.Index != 1 {
		t.Errorf("expected graceful fade-out of the visible image, got %+v", last)
	}
	c.Start()
	if c.IsAnimating() {
		t.Error("Start after emptying the sequence must be a no-op")
	}
}

func TestConfigAffectsOnlyLaterSteps(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.SetImages(sequence(2))
	c.SetFadeDuration(time.Second)
	c.Start()

	first := fa.fadeIns()[0]
	c.SetFadeDuration(2 * time.Second)
	c.SetZoomSize(3)
	if first.d != time.Second {
		t.Fatal("in-flight fade changed")
	}

	fa.completeStep(t)
	second := fa.fadeIns()[1]
	if second.d != 2*time.Second {
		t.Errorf("expected 2s fade on the next step, got %v", second.d)
	}
	var zoom *fakeCall
	for _, call := range fa.calls {
		if call.kind == "zoom" {
			zoom = call
		}
	}
	if zoom.to != 3 {
		t.Errorf("expected zoom to 3, got %v", zoom.to)
	}
}

func TestClamping(t *testing.T) {
	c := New(&fakeAnimator{})

	for _, v := range []float64{0.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		c.SetZoomSize(3)
		c.SetZoomSize(v)
		if c.ZoomSize() != 1 {
			t.Errorf("SetZoomSize(%v) gave %v, want 1", v, c.ZoomSize())
		}
	}
	c.SetFadeDuration(-time.Second)
	if c.FadeDuration() != 0 {
		t.Errorf("fade not clamped: %v", c.FadeDuration())
	}

	tests := []struct {
		fade, display, want time.Duration
	}{
		{time.Second, 0, 4 * time.Second},
		{time.Second, 500 * time.Millisecond, time.Second},
		{time.Second, 3 * time.Second, 3 * time.Second},
		{0, 0, MinDisplayInterval},
	}
	for _, tt := range tests {
		c.SetFadeDuration(tt.fade)
		c.SetDisplayInterval(tt.display)
		if got := c.DisplayInterval(); got != tt.want {
			t.Errorf("fade=%v display=%v: got %v, want %v", tt.fade, tt.display, got, tt.want)
		}
	}
}

func TestDirectionAlternate(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.SetImages(sequence(2))
	c.SetDirection(DirectionAlternate)
	c.Start()
	fa.completeStep(t)

	var zooms []*fakeCall
	for _, call := range fa.calls {
		if call.kind == "zoom" {
			zooms = append(zooms, call)
		}
	}
	if zooms[0].from != 1 || zooms[0].to != DefaultZoomSize {
		t.Errorf("step 0 should zoom in: %v -> %v", zooms[0].from, zooms[0].to)
	}
	if zooms[1].from != DefaultZoomSize || zooms[1].to != 1 {
		t.Errorf("step 1 should zoom out: %v -> %v", zooms[1].from, zooms[1].to)
	}
}

func TestOnStepAndAnchors(t *testing.T) {
	fa := &fakeAnimator{}
	c := New(fa)
	c.SetImages(sequence(2))
	c.SetAnchorFunc(FixedAnchor(Anchor{X: 2, Y: -1}))

	var seen []int
	c.OnStep = func(l Layer) { seen = append(seen, l.Index) }
	c.Start()
	fa.completeStep(t)

	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Errorf("unexpected OnStep sequence %v", seen)
	}
	if a := fa.fadeIns()[0].layer.Anchor; a != (Anchor{X: 1, Y: 0}) {
		t.Errorf("anchor not clamped: %+v", a)
	}
}

func TestParseHelpers(t *testing.T) {
	if a, ok := ParseAnchor("Top-Right"); !ok || a != AnchorTopRight {
		t.Errorf("ParseAnchor: %v %v", a, ok)
	}
	if _, ok := ParseAnchor("nowhere"); ok {
		t.Error("unknown anchor accepted")
	}
	if d, ok := ParseDirection("alternate"); !ok || d != DirectionAlternate {
		t.Errorf("ParseDirection: %v %v", d, ok)
	}
	if _, ok := ParseDirection("sideways"); ok {
		t.Error("unknown direction accepted")
	}
}
