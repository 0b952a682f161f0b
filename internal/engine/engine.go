package engine

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/director"
	"github.com/ivlev/kenburns/internal/effects"
	"github.com/ivlev/kenburns/internal/kenburns"
	"github.com/ivlev/kenburns/internal/renderer"
	"github.com/ivlev/kenburns/internal/source"
	"github.com/ivlev/kenburns/internal/system"
	"github.com/ivlev/kenburns/internal/timeline"
	"github.com/ivlev/kenburns/internal/video"
)

// numEncodeWorkers bounds parallel ffmpeg processes in the filter backend.
const numEncodeWorkers = 4

type VideoProject struct {
	Config  *config.Config
	Source  source.Source
	Encoder video.VideoEncoder
	Effect  effects.Effect
	tempDir string
}

func NewVideoProject(cfg *config.Config, src source.Source, ve video.VideoEncoder, eff effects.Effect) *VideoProject {
	return &VideoProject{
		Config:  cfg,
		Source:  src,
		Encoder: ve,
		Effect:  eff,
	}
}

type stats struct {
	load, render, encode time.Duration
	frames, steps        int
}

func (p *VideoProject) Run(ctx context.Context) error {
	startTime := time.Now()
	var st stats

	loadStart := time.Now()
	images, err := source.LoadAll(ctx, p.Source, p.Config.Workers)
	if err != nil {
		return fmt.Errorf("загрузка изображений: %w", err)
	}
	if len(images) == 0 {
		return fmt.Errorf("источник не содержит изображений")
	}
	st.load = time.Since(loadStart)

	p.fitAspect(images[0])

	tl := timeline.New()
	tl.KeepHistory(p.Config.Backend == "filter" || p.Config.Storyboard)
	ctrl := NewController(p.Config, tl, images)
	total := p.TotalDuration(ctrl, len(images))

	ctrl.OnStep = func(l kenburns.Layer) {
		st.steps++
		fmt.Printf("[>] %6.2fs  слайд %d/%d  %s\n", tl.Now().Seconds(), l.Index+1, len(images), p.Source.Name(l.Index))
	}

	fmt.Println("--- [PROJECT: KEN BURNS] ---")
	fmt.Printf("[*] Источник: %s | Изображений: %d\n", p.Config.InputPath, len(images))
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Зум: %.2f (%s, %s)\n",
		p.Config.Width, p.Config.Height, p.Config.FPS, ctrl.ZoomSize(), ctrl.Direction(), p.Config.ZoomMode)
	fmt.Printf("[*] Переход: %v | Показ: %v | Длительность: %v\n", ctrl.FadeDuration(), ctrl.DisplayInterval(), total)
	fmt.Println("-----------------------------")

	ctrl.Start()
	defer ctrl.Stop()

	switch p.Config.Backend {
	case "filter":
		err = p.renderSegments(ctx, ctrl, tl, images, total, &st)
	default:
		err = p.renderFrames(ctx, tl, total, &st)
	}
	if err != nil {
		return err
	}

	if p.Config.Storyboard {
		if err := p.writeStoryboard(ctrl, tl, total); err != nil {
			log.Printf("[!] Не удалось записать раскадровку: %v", err)
		}
	}

	if p.Config.ShowStats {
		p.report(time.Since(startTime), st)
	}
	return nil
}

func (p *VideoProject) writeStoryboard(ctrl *kenburns.Controller, tl *timeline.Timeline, total time.Duration) error {
	names := make([]string, p.Source.Len())
	for i := range names {
		names[i] = p.Source.Name(i)
	}
	d := director.NewDirector(p.Config.Width, p.Config.Height, names)
	scenario, err := d.GenerateScenario(tl.History(), director.Settings{
		ZoomSize:  ctrl.ZoomSize(),
		Fade:      ctrl.FadeDuration().Seconds(),
		Display:   ctrl.DisplayInterval().Seconds(),
		Direction: ctrl.Direction().String(),
		Duration:  total.Seconds(),
	})
	if err != nil {
		return err
	}
	path := director.ScenarioPath(p.Config.OutputVideo)
	if err := director.WriteScenario(scenario, path); err != nil {
		return err
	}
	fmt.Printf("[*] Раскадровка: %s\n", path)
	return nil
}

// fitAspect adapts the width to the first image when the default frame
// size was left untouched.
func (p *VideoProject) fitAspect(first image.Image) {
	if p.Config.Preset != "" || p.Config.Width != 1280 || p.Config.Height != 720 {
		return
	}
	b := first.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	p.Config.Width = int(float64(p.Config.Height) * float64(b.Dx()) / float64(b.Dy()))
	if p.Config.Width%2 != 0 {
		p.Config.Width++
	}
}

// TotalDuration is the explicit duration when set, otherwise Cycles passes
// over the sequence.
func (p *VideoProject) TotalDuration(ctrl *kenburns.Controller, count int) time.Duration {
	if p.Config.TotalDuration > 0 {
		return time.Duration(p.Config.TotalDuration * float64(time.Second))
	}
	return time.Duration(p.Config.Cycles*count) * ctrl.DisplayInterval()
}

// renderFrames samples the timeline once per frame, composites batches of
// frames in parallel and streams them to the encoder in order.
func (p *VideoProject) renderFrames(ctx context.Context, tl *timeline.Timeline, total time.Duration, st *stats) error {
	out, err := p.Encoder.OpenStream(ctx, p.Config.OutputVideo, *p.Config)
	if err != nil {
		return err
	}

	comp := renderer.NewCompositor(p.Config.Width, p.Config.Height)
	frameCount := int(total.Seconds() * float64(p.Config.FPS))
	batchSize := p.Config.Workers * 2
	if batchSize < 1 {
		batchSize = 1
	}

	states := make([][]timeline.LayerState, batchSize)
	frames := make([]*image.RGBA, batchSize)

	for base := 0; base < frameCount; base += batchSize {
		n := min(batchSize, frameCount-base)

		renderStart := time.Now()
		for i := 0; i < n; i++ {
			tl.AdvanceTo(frameTime(base+i, p.Config.FPS))
			states[i] = tl.Snapshot()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.Config.Workers)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				frames[i] = comp.Frame(states[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			out.Close()
			return err
		}
		st.render += time.Since(renderStart)

		encodeStart := time.Now()
		for i := 0; i < n; i++ {
			err := out.WriteFrame(frames[i])
			system.PutImage(frames[i])
			frames[i] = nil
			if err != nil {
				out.Close()
				return err
			}
		}
		st.encode += time.Since(encodeStart)
		st.frames += n
	}

	encodeStart := time.Now()
	if err := out.Close(); err != nil {
		return fmt.Errorf("ошибка сборки видео: %w", err)
	}
	st.encode += time.Since(encodeStart)
	return nil
}

func frameTime(frame, fps int) time.Duration {
	return time.Duration(float64(frame) * float64(time.Second) / float64(fps))
}

// renderSegments runs the controller to the end of the video, then turns
// every recorded step into a zoompan segment joined with xfade.
func (p *VideoProject) renderSegments(ctx context.Context, ctrl *kenburns.Controller, tl *timeline.Timeline, images []image.Image, total time.Duration, st *stats) error {
	var err error
	p.tempDir, err = os.MkdirTemp("", "kenburns_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(p.tempDir)

	tl.AdvanceTo(total)
	ctrl.Stop()

	params := BuildSegments(tl.History(), *p.Config, total)
	segments := make([]video.Segment, len(params))

	encodeStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numEncodeWorkers)
	for i := range params {
		i := i
		g.Go(func() error {
			sp := params[i]
			sp.Filter = p.Effect.GenerateFilter(sp)
			path := filepath.Join(p.tempDir, fmt.Sprintf("s%d.mp4", i))
			if err := p.Encoder.EncodeSegment(gctx, images[sp.Index], path, sp, p.Config.VideoEncoder, p.Config.Quality); err != nil {
				return fmt.Errorf("сегмент %d: %w", i, err)
			}
			segments[i] = video.Segment{Path: path, Start: sp.Start, Duration: sp.Duration}
			fmt.Printf("[>] Ready: %d/%d\n", i+1, len(params))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	st.render += time.Since(encodeStart)

	fmt.Println("[*] Сборка финального видео (с эффектами переходов)...")
	concatStart := time.Now()
	if err := p.Encoder.Concatenate(ctx, segments, p.Config.OutputVideo, *p.Config); err != nil {
		return fmt.Errorf("ошибка сборки финального видео: %w", err)
	}
	st.encode += time.Since(concatStart)
	st.frames = int(total.Seconds() * float64(p.Config.FPS))
	return nil
}

// BuildSegments converts recorded zoom requests into segment parameters.
// Each segment starts where the controller started its step and covers the
// display window plus the following fade; the last one is cut at total. A
// final step that cannot finish its cross-fade before total is dropped and
// the previous segment runs to the end instead.
func BuildSegments(history []timeline.Record, cfg config.Config, total time.Duration) []config.SegmentParams {
	var out []config.SegmentParams
	fade := cfg.Fade()
	for _, r := range history {
		if r.Kind != "zoom" || r.At >= total {
			continue
		}
		if len(out) > 0 && r.At+fade > total {
			continue
		}
		d := r.Duration
		if r.At+d > total {
			d = total - r.At
		}
		out = append(out, config.SegmentParams{
			Width:        cfg.Width,
			Height:       cfg.Height,
			FPS:          cfg.FPS,
			Start:        r.At.Seconds(),
			Duration:     d.Seconds(),
			FadeDuration: cfg.FadeDuration,
			ZoomFrom:     r.From,
			ZoomTo:       r.From + (r.To-r.From)*d.Seconds()/r.Duration.Seconds(),
			AnchorX:      r.Layer.Anchor.X,
			AnchorY:      r.Layer.Anchor.Y,
			Index:        r.Layer.Index,
		})
	}
	return out
}

func (p *VideoProject) report(totalTime time.Duration, st stats) {
	fps := float64(st.frames) / totalTime.Seconds()
	usage, err := system.ProcessUsage()
	mem := "?"
	if err == nil {
		mem = fmt.Sprintf("%.1f MiB", float64(usage.RSS)/(1<<20))
	}

	fmt.Printf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Host: %s\n"+
			"Total Time: %.2fs\n"+
			"Loading: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Steps: %d | Frames: %d\n"+
			"Effective FPS: %.2f | RSS: %s\n"+
			"----------------------------\n",
		p.Config.BuildVersion, system.HostSummary(), totalTime.Seconds(), st.load.Seconds(),
		st.render.Seconds(), st.encode.Seconds(), st.steps, st.frames, fps, mem,
	)

	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Backend: %s | Frames: %d | Total: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputPath),
		p.Config.Backend,
		st.frames,
		totalTime.Seconds(),
		fps,
	)
	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
		return
	}
	f.WriteString(logEntry)
	f.Close()
}
