package timeline

import "time"

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(t float64) float64

// Linear is used for zoom so the motion never pauses between steps.
func Linear(t float64) float64 { return t }

// EaseInOutCubic is used for opacity.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// tween animates one property of one slot.
type tween struct {
	from, to float64
	start    time.Duration
	dur      time.Duration
	ease     Easing

	cancelled bool
	frozen    float64
}

func (tw *tween) valueAt(now time.Duration) float64 {
	if tw.cancelled {
		return tw.frozen
	}
	if tw.dur <= 0 || now >= tw.start+tw.dur {
		return tw.to
	}
	if now <= tw.start {
		return tw.from
	}
	p := float64(now-tw.start) / float64(tw.dur)
	return lerp(tw.from, tw.to, tw.ease(p))
}

func (tw *tween) freeze(now time.Duration) {
	if tw.cancelled {
		return
	}
	tw.frozen = tw.valueAt(now)
	tw.cancelled = true
}
