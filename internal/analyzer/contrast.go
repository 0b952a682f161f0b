package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastDetector finds high-contrast regions with a Sobel operator,
// dilation and connected components. Large images are analysed on a
// thumbnail and the result is mapped back.
type ContrastDetector struct {
	MinBlockArea  int     // in thumbnail pixels
	EdgeThreshold float64 // gradient magnitude threshold
	MaxSide       int     // thumbnail size
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  64,
		EdgeThreshold: 30.0,
		MaxSide:       256,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	gray, scale := thumbnail(img, d.MaxSide)
	edges := sobel(gray, d.EdgeThreshold)
	dilated := dilate(edges, 5, 2)

	b := img.Bounds()
	var blocks []Block
	for _, r := range components(dilated) {
		if r.Dx()*r.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{
			Rect: image.Rect(
				b.Min.X+int(float64(r.Min.X)*scale),
				b.Min.Y+int(float64(r.Min.Y)*scale),
				b.Min.X+int(math.Ceil(float64(r.Max.X)*scale)),
				b.Min.Y+int(math.Ceil(float64(r.Max.Y)*scale)),
			),
			Confidence: 0.7,
		})
	}
	return blocks, nil
}

// thumbnail returns a grayscale copy no larger than maxSide and the factor
// that maps thumbnail coordinates back to the original.
func thumbnail(img image.Image, maxSide int) (*image.Gray, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			scale = float64(w) / float64(maxSide)
		} else {
			scale = float64(h) / float64(maxSide)
		}
		w = int(float64(w) / scale)
		h = int(float64(h) / scale)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	return gray, scale
}

func sobel(gray *image.Gray, threshold float64) *image.Gray {
	b := gray.Bounds()
	edges := image.NewGray(b)
	at := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }

	for y := 1; y < b.Dy()-1; y++ {
		for x := 1; x < b.Dx()-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) -
				2*at(x-1, y) + 2*at(x+1, y) -
				at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if math.Hypot(gx, gy) > threshold {
				edges.Pix[y*edges.Stride+x] = 255
			}
		}
	}
	return edges
}

func dilate(img *image.Gray, kernel, iterations int) *image.Gray {
	b := img.Bounds()
	half := kernel / 2
	cur := img
	for it := 0; it < iterations; it++ {
		next := image.NewGray(b)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				if cur.Pix[y*cur.Stride+x] == 0 {
					continue
				}
				for ky := max(0, y-half); ky <= min(b.Dy()-1, y+half); ky++ {
					for kx := max(0, x-half); kx <= min(b.Dx()-1, x+half); kx++ {
						next.Pix[ky*next.Stride+kx] = 255
					}
				}
			}
		}
		cur = next
	}
	return cur
}

// components returns the bounding boxes of 4-connected white regions.
func components(img *image.Gray) []image.Rectangle {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)
	var rects []image.Rectangle

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || img.Pix[y*img.Stride+x] <= 128 {
				continue
			}
			r := image.Rect(x, y, x+1, y+1)
			stack := []image.Point{{X: x, Y: y}}
			visited[y*w+x] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				for _, n := range [4]image.Point{{X: p.X + 1, Y: p.Y}, {X: p.X - 1, Y: p.Y}, {X: p.X, Y: p.Y + 1}, {X: p.X, Y: p.Y - 1}} {
					if n.X < 0 || n.Y < 0 || n.X >= w || n.Y >= h {
						continue
					}
					if visited[n.Y*w+n.X] || img.Pix[n.Y*img.Stride+n.X] <= 128 {
						continue
					}
					visited[n.Y*w+n.X] = true
					stack = append(stack, n)
				}
			}
			rects = append(rects, r)
		}
	}
	return rects
}
