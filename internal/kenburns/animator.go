package kenburns

import (
	"image"
	"time"
)

// Handle is an in-flight host animation or timer.
type Handle interface {
	// Cancel halts the animation before returning. A cancelled animation
	// never invokes its completion callback. Cancel is idempotent.
	Cancel()
}

// Layer identifies the surface an animation applies to. The controller
// alternates between two slots so that the outgoing image stays visible
// underneath the incoming one during a cross-fade.
type Layer struct {
	Slot   int // 0 or 1
	Step   int // step number since the last Start
	Index  int // position of Image in the sequence
	Image  image.Image
	Anchor Anchor
}

// FromCurrent as the from value of BeginFade starts the fade at whatever
// opacity the layer's slot has when the call is made.
const FromCurrent = -1.0

// Animator is the capability a host toolkit provides to the controller.
//
// Completion callbacks and timer functions must be invoked from the host's
// event loop, never synchronously from inside BeginFade or After.
type Animator interface {
	// BeginFade animates the layer opacity from -> to over d. from may be
	// FromCurrent.
	BeginFade(l Layer, from, to float64, d time.Duration, onComplete func()) Handle
	// BeginZoom animates the layer scale from -> to over d around l.Anchor.
	BeginZoom(l Layer, from, to float64, d time.Duration) Handle
	// After runs fn once d has elapsed.
	After(d time.Duration, fn func()) Handle
}
