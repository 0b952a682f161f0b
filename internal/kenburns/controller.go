package kenburns

import (
	"image"
	"math"
	"time"
)

const (
	DefaultZoomSize     = 2.2
	DefaultFadeDuration = time.Second
	// DisplayFactor sizes the automatic display window relative to the fade.
	DisplayFactor = 4
	// MinDisplayInterval keeps zero-length fades from producing a busy loop.
	MinDisplayInterval = 250 * time.Millisecond
)

// State is the playback state of a Controller.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

type slotAnims struct {
	fade Handle
	zoom Handle
}

func (s *slotAnims) cancel() {
	if s.fade != nil {
		s.fade.Cancel()
		s.fade = nil
	}
	if s.zoom != nil {
		s.zoom.Cancel()
		s.zoom = nil
	}
}

// Controller cycles through a sequence of images, cross-fading from one to
// the next while each image slowly zooms. All methods must be called from
// the host's event loop; the controller never starts goroutines.
type Controller struct {
	host Animator

	images     []image.Image
	pending    []image.Image
	hasPending bool

	zoom      float64
	fade      time.Duration
	display   time.Duration // 0 means DisplayFactor * fade
	direction Direction
	anchor    AnchorFunc

	state   State
	gen     uint64
	step    int
	next    int
	prev    Layer
	hasPrev bool

	slots   [2]slotAnims
	timer   Handle
	fadeOut Handle

	// OnStep, when set, is called at the start of every step with the
	// incoming layer.
	OnStep func(l Layer)
}

// New returns a stopped controller with the default effect configuration.
func New(host Animator) *Controller {
	return &Controller{
		host:   host,
		zoom:   DefaultZoomSize,
		fade:   DefaultFadeDuration,
		anchor: FixedAnchor(AnchorCenter),
	}
}

// SetImages replaces the sequence. While running the new sequence is picked
// up at the next step boundary, starting from its first element. An empty
// sequence while running fades the visible image out and stops.
func (c *Controller) SetImages(images []image.Image) {
	seq := append([]image.Image(nil), images...)

	if c.state != Running {
		c.images = seq
		c.pending, c.hasPending = nil, false
		return
	}

	if len(seq) == 0 {
		c.images = nil
		c.pending, c.hasPending = nil, false
		c.fadeOutAndStop()
		return
	}

	c.pending, c.hasPending = seq, true
}

// Images returns the sequence that will be used by the next step.
func (c *Controller) Images() []image.Image {
	if c.hasPending {
		return append([]image.Image(nil), c.pending...)
	}
	return append([]image.Image(nil), c.images...)
}

// SetZoomSize sets the maximum scale. Values below 1, NaN and infinities
// become 1.
func (c *Controller) SetZoomSize(v float64) {
	if v < 1 || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 1
	}
	c.zoom = v
}

func (c *Controller) ZoomSize() float64 { return c.zoom }

// SetFadeDuration sets the cross-fade length. Negative values become 0.
func (c *Controller) SetFadeDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.fade = d
}

func (c *Controller) FadeDuration() time.Duration { return c.fade }

// SetDisplayInterval sets the time between the start of two consecutive
// fades. Zero selects DisplayFactor * fade.
func (c *Controller) SetDisplayInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.display = d
}

// DisplayInterval returns the effective display window, never shorter than
// the fade or MinDisplayInterval.
func (c *Controller) DisplayInterval() time.Duration {
	d := c.display
	if d == 0 {
		d = c.fade * DisplayFactor
	}
	if d < c.fade {
		d = c.fade
	}
	if d < MinDisplayInterval {
		d = MinDisplayInterval
	}
	return d
}

func (c *Controller) SetDirection(d Direction) { c.direction = d }

func (c *Controller) Direction() Direction { return c.direction }

// SetAnchorFunc installs the anchor picker. nil restores the centre anchor.
func (c *Controller) SetAnchorFunc(f AnchorFunc) {
	if f == nil {
		f = FixedAnchor(AnchorCenter)
	}
	c.anchor = f
}

// Start begins the cycle. It is a no-op while running or when there is
// nothing to show.
func (c *Controller) Start() {
	if c.state == Running {
		return
	}
	if len(c.images) == 0 {
		return
	}

	c.cancelAll()
	c.state = Running
	c.gen++
	c.step = 0
	c.next = 0
	c.hasPrev = false
	c.advance(c.gen)
}

// Stop cancels every in-flight animation and timer before returning.
func (c *Controller) Stop() {
	if c.state != Running {
		return
	}
	c.state = Stopped
	c.gen++
	c.cancelAll()

	if c.hasPending {
		c.images = c.pending
		c.pending, c.hasPending = nil, false
	}
}

func (c *Controller) IsAnimating() bool { return c.state == Running }

func (c *Controller) State() State { return c.state }

func (c *Controller) cancelAll() {
	if c.timer != nil {
		c.timer.Cancel()
		c.timer = nil
	}
	if c.fadeOut != nil {
		c.fadeOut.Cancel()
		c.fadeOut = nil
	}
	for i := range c.slots {
		c.slots[i].cancel()
	}
}

// guard wraps a host callback so it only runs while the generation that
// scheduled it is still current.
func (c *Controller) guard(gen uint64, fn func()) func() {
	return func() {
		if gen != c.gen || c.state != Running {
			return
		}
		fn()
	}
}

func (c *Controller) advance(gen uint64) {
	if gen != c.gen || c.state != Running {
		return
	}

	if c.hasPending {
		c.images = c.pending
		c.pending, c.hasPending = nil, false
		c.next = 0
	}

	idx := c.next % len(c.images)
	c.next = (idx + 1) % len(c.images)

	fade := c.fade
	display := c.DisplayInterval()
	from, to := c.direction.scaleRange(c.step, c.zoom)

	in := Layer{
		Slot:  c.step % 2,
		Step:  c.step,
		Index: idx,
		Image: c.images[idx],
	}
	in.Anchor = c.anchor(idx, in.Image, c.step).Clamp()

	s := &c.slots[in.Slot]
	s.cancel()

	s.fade = c.host.BeginFade(in, 0, 1, fade, c.guard(gen, func() {
		c.timer = c.host.After(display-fade, func() { c.advance(gen) })
	}))
	// The zoom keeps running while this layer fades out at the next step.
	s.zoom = c.host.BeginZoom(in, from, to, display+fade)

	if c.hasPrev {
		out := &c.slots[c.prev.Slot]
		if out.fade != nil {
			out.fade.Cancel()
		}
		out.fade = c.host.BeginFade(c.prev, 1, 0, fade, nil)
	}

	c.prev, c.hasPrev = in, true
	c.step++

	if c.OnStep != nil {
		c.OnStep(in)
	}
}

// fadeOutAndStop lets the visible image fade away and stops the cycle.
func (c *Controller) fadeOutAndStop() {
	c.state = Stopped
	c.gen++
	if c.timer != nil {
		c.timer.Cancel()
		c.timer = nil
	}
	if !c.hasPrev {
		return
	}

	s := &c.slots[c.prev.Slot]
	if s.fade != nil {
		s.fade.Cancel()
		s.fade = nil
	}
	// The incoming image may still be fading in.
	c.fadeOut = c.host.BeginFade(c.prev, FromCurrent, 0, c.fade, nil)
	c.hasPrev = false
}
