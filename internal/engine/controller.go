package engine

import (
	"image"
	"log"
	"time"

	"github.com/ivlev/kenburns/internal/analyzer"
	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/kenburns"
)

// NewController builds a controller for cfg on the given host and loads
// the images into it. The controller is left stopped.
func NewController(cfg *config.Config, host kenburns.Animator, images []image.Image) *kenburns.Controller {
	c := kenburns.New(host)
	c.SetZoomSize(cfg.ZoomSize)
	c.SetFadeDuration(cfg.Fade())
	c.SetDisplayInterval(cfg.Display())

	dir, ok := kenburns.ParseDirection(cfg.Direction)
	if !ok {
		log.Printf("[!] Неизвестное направление зума %q, используется in", cfg.Direction)
	}
	c.SetDirection(dir)
	c.SetAnchorFunc(AnchorFunc(cfg, images))
	c.SetImages(images)
	return c
}

// AnchorFunc resolves cfg.ZoomMode to an anchor picker.
func AnchorFunc(cfg *config.Config, images []image.Image) kenburns.AnchorFunc {
	switch cfg.ZoomMode {
	case "random":
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return kenburns.RandomAnchors(seed)
	case "smart":
		det, err := analyzer.NewDetector("contrast")
		if err != nil {
			log.Printf("[!] %v, используется center", err)
			return kenburns.FixedAnchor(kenburns.AnchorCenter)
		}
		return analyzer.FocusAnchors(det, images)
	}
	a, ok := kenburns.ParseAnchor(cfg.ZoomMode)
	if !ok {
		log.Printf("[!] Неизвестный режим зума %q, используется center", cfg.ZoomMode)
		a = kenburns.AnchorCenter
	}
	return kenburns.FixedAnchor(a)
}
