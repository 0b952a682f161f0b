package effects

import (
	"fmt"

	"github.com/ivlev/kenburns/internal/config"
)

type Effect interface {
	GenerateFilter(params config.SegmentParams) string
}

// KenBurnsEffect renders one step as an ffmpeg zoompan: the image is
// cover-fitted at twice the output size and the zoom moves linearly from
// ZoomFrom to ZoomTo around the anchor for the whole segment.
type KenBurnsEffect struct{}

func (e *KenBurnsEffect) GenerateFilter(p config.SegmentParams) string {
	frames := int(p.Duration * float64(p.FPS))
	if frames < 1 {
		frames = 1
	}

	from, to := p.ZoomFrom, p.ZoomTo
	if from < 1 {
		from = 1
	}
	if to < 1 {
		to = 1
	}

	zExpr := fmt.Sprintf("%.6f", from)
	if frames > 1 && from != to {
		zExpr = fmt.Sprintf("%.6f+(%.6f)*on/%d", from, to-from, frames-1)
	}
	xExpr := fmt.Sprintf("%.6f*(iw-iw/zoom)", p.AnchorX)
	yExpr := fmt.Sprintf("%.6f*(ih-ih/zoom)", p.AnchorY)

	// 2x supersampling keeps the zoompan from visibly stepping.
	coverFilter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		p.Width*2, p.Height*2, p.Width*2, p.Height*2,
	)

	zoomFilter := fmt.Sprintf(
		"zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		zExpr, xExpr, yExpr, frames, p.Width, p.Height, p.FPS,
	)

	return fmt.Sprintf("%s,%s,setsar=1", coverFilter, zoomFilter)
}
