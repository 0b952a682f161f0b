// Package timeline is a deterministic host for the kenburns controller.
// Time only moves when Advance is called, which makes it usable both for
// offline rendering (one step per video frame) and for live previews
// (advance by the wall-clock time between ticks).
//
// A Timeline is not safe for concurrent use. Callbacks run on the
// goroutine that calls Advance.
package timeline

import (
	"container/heap"
	"image"
	"sort"
	"time"

	"github.com/ivlev/kenburns/internal/kenburns"
)

// LayerState is a sampled view of one surface slot.
type LayerState struct {
	Slot    int
	Index   int
	Step    int
	Image   image.Image
	Anchor  kenburns.Anchor
	Opacity float64
	Scale   float64

	raised uint64
}

// Record is one animation request, kept when history is enabled.
type Record struct {
	At       time.Duration
	Kind     string // "fade" or "zoom"
	Layer    kenburns.Layer
	From, To float64
	Duration time.Duration
}

type layer struct {
	info    kenburns.Layer
	opacity *tween
	scale   *tween
	raised  uint64
}

// Timeline implements kenburns.Animator on a virtual clock.
type Timeline struct {
	now    time.Duration
	seq    uint64
	events eventQueue
	layers map[int]*layer

	history     []Record
	keepHistory bool
}

// New returns a timeline at time zero.
func New() *Timeline {
	return &Timeline{layers: make(map[int]*layer)}
}

// KeepHistory enables recording of every fade and zoom request.
func (tl *Timeline) KeepHistory(on bool) { tl.keepHistory = on }

// History returns the recorded requests in issue order.
func (tl *Timeline) History() []Record {
	return append([]Record(nil), tl.history...)
}

func (tl *Timeline) Now() time.Duration { return tl.now }

func (tl *Timeline) nextSeq() uint64 {
	tl.seq++
	return tl.seq
}

func (tl *Timeline) layerFor(l kenburns.Layer) *layer {
	ly, ok := tl.layers[l.Slot]
	if !ok {
		ly = &layer{}
		tl.layers[l.Slot] = ly
	}
	ly.info = l
	return ly
}

func (tl *Timeline) record(kind string, l kenburns.Layer, from, to float64, d time.Duration) {
	if !tl.keepHistory {
		return
	}
	tl.history = append(tl.history, Record{At: tl.now, Kind: kind, Layer: l, From: from, To: to, Duration: d})
}

// BeginFade starts an opacity tween on the layer's slot, replacing any
// previous one. Fading in raises the slot above the other. FromCurrent
// starts from the slot's opacity at the current time.
func (tl *Timeline) BeginFade(l kenburns.Layer, from, to float64, d time.Duration, onComplete func()) kenburns.Handle {
	ly := tl.layerFor(l)
	if from == kenburns.FromCurrent {
		from = 0
		if ly.opacity != nil {
			from = ly.opacity.valueAt(tl.now)
		}
	}
	if ly.opacity != nil {
		ly.opacity.freeze(tl.now)
	}
	tw := &tween{from: from, to: to, start: tl.now, dur: d, ease: EaseInOutCubic}
	ly.opacity = tw
	if to > from {
		ly.raised = tl.nextSeq()
	}
	tl.record("fade", l, from, to, d)

	h := &handle{tl: tl, tw: tw}
	h.ev = tl.schedule(d, func() {
		if tw.cancelled {
			return
		}
		if onComplete != nil {
			onComplete()
		}
	})
	return h
}

// BeginZoom starts a linear scale tween on the layer's slot.
func (tl *Timeline) BeginZoom(l kenburns.Layer, from, to float64, d time.Duration) kenburns.Handle {
	ly := tl.layerFor(l)
	if ly.scale != nil {
		ly.scale.freeze(tl.now)
	}
	tw := &tween{from: from, to: to, start: tl.now, dur: d, ease: Linear}
	ly.scale = tw
	tl.record("zoom", l, from, to, d)
	return &handle{tl: tl, tw: tw}
}

// After runs fn once the clock has moved d past now.
func (tl *Timeline) After(d time.Duration, fn func()) kenburns.Handle {
	return &handle{tl: tl, ev: tl.schedule(d, fn)}
}

func (tl *Timeline) schedule(d time.Duration, fn func()) *event {
	if d < 0 {
		d = 0
	}
	ev := &event{at: tl.now + d, seq: tl.nextSeq(), fn: fn}
	heap.Push(&tl.events, ev)
	return ev
}

// Advance moves the clock forward by d, running every callback that
// becomes due in time order.
func (tl *Timeline) Advance(d time.Duration) {
	if d < 0 {
		d = 0
	}
	tl.AdvanceTo(tl.now + d)
}

// AdvanceTo moves the clock to t. Moving backwards is ignored.
func (tl *Timeline) AdvanceTo(t time.Duration) {
	for tl.events.Len() > 0 {
		ev := tl.events[0]
		if ev.at > t {
			break
		}
		heap.Pop(&tl.events)
		if ev.cancelled {
			continue
		}
		if ev.at > tl.now {
			tl.now = ev.at
		}
		ev.fn()
	}
	if t > tl.now {
		tl.now = t
	}
}

// Pending reports the number of scheduled, uncancelled callbacks.
func (tl *Timeline) Pending() int {
	n := 0
	for _, ev := range tl.events {
		if !ev.cancelled {
			n++
		}
	}
	return n
}

// Snapshot samples every slot at the current time, bottom layer first.
// Fully transparent layers are omitted.
func (tl *Timeline) Snapshot() []LayerState {
	out := make([]LayerState, 0, len(tl.layers))
	for slot, ly := range tl.layers {
		st := LayerState{
			Slot:    slot,
			Index:   ly.info.Index,
			Step:    ly.info.Step,
			Image:   ly.info.Image,
			Anchor:  ly.info.Anchor,
			Opacity: 0,
			Scale:   1,
			raised:  ly.raised,
		}
		if ly.opacity != nil {
			st.Opacity = ly.opacity.valueAt(tl.now)
		}
		if ly.scale != nil {
			st.Scale = ly.scale.valueAt(tl.now)
		}
		if st.Opacity <= 0 || st.Image == nil {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].raised < out[j].raised })
	return out
}

// Reset drops every layer and pending callback. The clock is kept.
func (tl *Timeline) Reset() {
	for _, ev := range tl.events {
		ev.cancelled = true
	}
	tl.events = tl.events[:0]
	tl.layers = make(map[int]*layer)
}

type handle struct {
	tl *Timeline
	tw *tween
	ev *event
}

func (h *handle) Cancel() {
	if h.tw != nil {
		h.tw.freeze(h.tl.now)
	}
	if h.ev != nil {
		h.ev.cancelled = true
	}
}

type event struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
	index     int
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}
