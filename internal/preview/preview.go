// Package preview plays a controller live in the terminal. Each cell shows
// two vertically stacked pixels using an upper half block, so a WxH terminal
// gives a Wx2H picture.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/engine"
	"github.com/ivlev/kenburns/internal/kenburns"
	"github.com/ivlev/kenburns/internal/renderer"
	"github.com/ivlev/kenburns/internal/system"
	"github.com/ivlev/kenburns/internal/timeline"
)

const (
	frameInterval = 40 * time.Millisecond // 25 FPS is plenty for a terminal
	zoomStep      = 0.1
	fadeStep      = 250 * time.Millisecond
	halfBlock     = '▀'
)

type Preview struct {
	screen tcell.Screen
	tl     *timeline.Timeline
	ctrl   *kenburns.Controller
	comp   *renderer.Compositor

	images []image.Image
	names  []string
	last   kenburns.Layer
	shown  bool

	width, height int
}

// New prepares a stopped preview on an initialised screen.
func New(screen tcell.Screen, cfg *config.Config, images []image.Image, names []string) *Preview {
	tl := timeline.New()
	p := &Preview{
		screen: screen,
		tl:     tl,
		ctrl:   engine.NewController(cfg, tl, images),
		images: images,
		names:  names,
	}
	p.ctrl.OnStep = func(l kenburns.Layer) {
		p.last, p.shown = l, true
	}
	p.resize()
	return p
}

func (p *Preview) Controller() *kenburns.Controller { return p.ctrl }

func (p *Preview) resize() {
	p.width, p.height = p.screen.Size()
	rows := p.height - 1 // status line
	if rows < 1 {
		rows = 1
	}
	w := p.width
	if w < 1 {
		w = 1
	}
	p.comp = renderer.NewCompositor(w, rows*2)
}

// Run starts the controller and plays until ctx is done or the user quits.
func (p *Preview) Run(ctx context.Context) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				close(eventChan)
				return
			}
			eventChan <- ev
		}
	}()

	p.ctrl.Start()
	defer p.ctrl.Stop()

	last := time.Now()
	p.draw()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-eventChan:
			if !ok {
				return nil
			}
			if !p.handleInput(ev) {
				return nil
			}

		case now := <-ticker.C:
			p.tl.Advance(now.Sub(last))
			last = now
			p.draw()
		}
	}
}

// handleInput reacts to a terminal event and reports whether to keep going.
func (p *Preview) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			return p.handleRune(ev.Rune())
		}

	case *tcell.EventResize:
		p.screen.Sync()
		p.resize()
	}
	return true
}

func (p *Preview) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case ' ':
		if p.ctrl.IsAnimating() {
			p.ctrl.Stop()
		} else {
			p.tl.Reset()
			p.ctrl.Start()
		}
	case '+', '=':
		p.ctrl.SetZoomSize(p.ctrl.ZoomSize() + zoomStep)
	case '-':
		p.ctrl.SetZoomSize(p.ctrl.ZoomSize() - zoomStep)
	case ']':
		p.ctrl.SetFadeDuration(p.ctrl.FadeDuration() + fadeStep)
	case '[':
		p.ctrl.SetFadeDuration(p.ctrl.FadeDuration() - fadeStep)
	case 'd':
		p.ctrl.SetDirection((p.ctrl.Direction() + 1) % 3)
	case 'c':
		p.ctrl.SetImages(nil)
	case 'r':
		p.ctrl.SetImages(p.images)
	}
	return true
}

func (p *Preview) draw() {
	frame := p.comp.Frame(p.tl.Snapshot())
	defer system.PutImage(frame)

	rows := frame.Bounds().Dy() / 2
	for y := 0; y < rows; y++ {
		for x := 0; x < frame.Bounds().Dx(); x++ {
			p.screen.SetContent(x, y, halfBlock, nil, cellStyle(frame, x, y))
		}
	}

	status := []rune(p.status())
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	for x := 0; x < p.width; x++ {
		ch := ' '
		if x < len(status) {
			ch = status[x]
		}
		p.screen.SetContent(x, p.height-1, ch, nil, style)
	}
	p.screen.Show()
}

// cellStyle colours the cell at column x, row y from the two pixels it covers.
func cellStyle(frame *image.RGBA, x, y int) tcell.Style {
	top := frame.RGBAAt(x, y*2)
	bottom := frame.RGBAAt(x, y*2+1)
	return tcell.StyleDefault.Foreground(rgb(top)).Background(rgb(bottom))
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func (p *Preview) status() string {
	state := "■"
	if p.ctrl.IsAnimating() {
		state = "▶"
	}
	slide := "-"
	if p.shown && p.last.Index < len(p.names) {
		slide = fmt.Sprintf("%d/%d %s", p.last.Index+1, len(p.names), p.names[p.last.Index])
	}
	return fmt.Sprintf(" %s %s | zoom %.1f %s | fade %v | %s | space q +/- [/] d c r",
		state, p.tl.Now().Truncate(100*time.Millisecond), p.ctrl.ZoomSize(), p.ctrl.Direction(),
		p.ctrl.FadeDuration(), slide)
}
