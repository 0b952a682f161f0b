package analyzer

import (
	"image"
	"image/color"
	"testing"

	"github.com/ivlev/kenburns/internal/kenburns"
)

// square draws a white square on black.
func square(w, h int, r image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestContrastDetector(t *testing.T) {
	img := square(200, 200, image.Rect(50, 50, 150, 150))

	blocks, err := NewContrastDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatal("Expected at least one block, got none")
	}

	block := blocks[0]
	if block.Rect.Dx() < 80 || block.Rect.Dy() < 80 {
		t.Errorf("Block too small: %v", block.Rect)
	}
	for i, b := range blocks {
		t.Logf("Block %d: %v (confidence: %.2f)", i, b.Rect, b.Confidence)
	}
}

func TestContrastDetectorOnLargeImage(t *testing.T) {
	img := square(1600, 900, image.Rect(1200, 100, 1500, 400))

	blocks, err := NewContrastDetector().Detect(img)
	if err != nil || len(blocks) == 0 {
		t.Fatalf("Detect: %v, %d blocks", err, len(blocks))
	}
	r := blocks[0].Rect
	if !r.Overlaps(image.Rect(1200, 100, 1500, 400)) {
		t.Errorf("block %v not mapped back to original coordinates", r)
	}
}

func TestFocus(t *testing.T) {
	img := square(400, 200, image.Rect(300, 20, 380, 80))
	a := Focus(NewContrastDetector(), img)
	if a.X < 0.75 || a.Y > 0.5 {
		t.Errorf("focus should be top-right, got %+v", a)
	}

	flat := image.NewGray(image.Rect(0, 0, 64, 64))
	if got := Focus(NewContrastDetector(), flat); got != kenburns.AnchorCenter {
		t.Errorf("flat image should focus on centre, got %+v", got)
	}
}

func TestFocusAnchors(t *testing.T) {
	imgs := []image.Image{
		square(100, 100, image.Rect(0, 0, 30, 30)),
		image.NewGray(image.Rect(0, 0, 10, 10)),
	}
	f := FocusAnchors(NewContrastDetector(), imgs)
	if a := f(0, imgs[0], 0); a.X > 0.5 || a.Y > 0.5 {
		t.Errorf("first image should anchor top-left, got %+v", a)
	}
	if a := f(1, imgs[1], 1); a != kenburns.AnchorCenter {
		t.Errorf("second image should anchor centre, got %+v", a)
	}
	if a := f(7, nil, 2); a != kenburns.AnchorCenter {
		t.Errorf("out of range index should anchor centre, got %+v", a)
	}
}

type countingDetector struct {
	Detector
	calls int
}

func (d *countingDetector) Detect(img image.Image) ([]Block, error) {
	d.calls++
	return d.Detector.Detect(img)
}

func TestFocusAnchorsFollowTheImage(t *testing.T) {
	topLeft := square(100, 100, image.Rect(0, 0, 30, 30))
	bottomRight := square(100, 100, image.Rect(70, 70, 100, 100))
	det := &countingDetector{Detector: NewContrastDetector()}
	f := FocusAnchors(det, []image.Image{topLeft})

	// A new sequence puts a different image at index 0.
	if a := f(0, bottomRight, 5); a.X < 0.5 || a.Y < 0.5 {
		t.Errorf("anchor should follow the image shown, got %+v", a)
	}
	if a := f(0, topLeft, 6); a.X > 0.5 || a.Y > 0.5 {
		t.Errorf("first image should still anchor top-left, got %+v", a)
	}

	f(3, bottomRight, 7)
	if det.calls != 2 {
		t.Errorf("expected one analysis per image, got %d", det.calls)
	}
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"contrast", false},
		{"", false},
		{"center", false},
		{"ocr", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			det, err := NewDetector(tt.variant)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDetector(%q) error = %v, wantErr %v", tt.variant, err, tt.wantErr)
			}
			if !tt.wantErr && det == nil {
				t.Error("Expected detector, got nil")
			}
		})
	}
}
