package video

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/ivlev/kenburns/internal/config"
)

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		encoder string
		quality int
		want    string
	}{
		{"h264_videotoolbox", 75, "-b:v 7500k"},
		{"h264_nvenc", 28, "-cq 28"},
		{"libx264", 23, "-crf 23 -preset medium"},
	}
	for _, tt := range tests {
		got := strings.Join(qualityArgs(tt.encoder, tt.quality), " ")
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.encoder, got, tt.want)
		}
	}
}

func TestConcatArgsXfadeOffsets(t *testing.T) {
	segs := []Segment{
		{Path: "s0.mp4", Start: 0, Duration: 5},
		{Path: "s1.mp4", Start: 4, Duration: 5},
		{Path: "s2.mp4", Start: 8, Duration: 4},
	}
	cfg := config.Config{FadeDuration: 1, AudioPath: "a.mp3", Quality: 23}
	args := strings.Join(buildConcatArgs(segs, "out.mp4", cfg), " ")
	t.Logf("args: %s", args)

	for _, want := range []string{
		"-i s0.mp4 -i s1.mp4 -i s2.mp4 -i a.mp3",
		"[0:v][1:v]xfade=transition=fade:duration=1.000000:offset=4.000000[v1]",
		"[v1][2:v]xfade=transition=fade:duration=1.000000:offset=8.000000[v2]",
		"-map [v2] -map 3:a -shortest",
		"-c:v libx264",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q", want)
		}
	}
}

func TestConcatArgsOffsetsFollowStepStarts(t *testing.T) {
	// The first segment is shortened at the end of the video; the second
	// must still cross-fade in at its own start.
	segs := []Segment{
		{Path: "s0.mp4", Start: 0, Duration: 5},
		{Path: "s1.mp4", Start: 4, Duration: 4.3},
	}
	args := strings.Join(buildConcatArgs(segs, "out.mp4", config.Config{FadeDuration: 1}), " ")
	if !strings.Contains(args, "xfade=transition=fade:duration=1.000000:offset=4.000000[v1]") {
		t.Errorf("unexpected xfade offset: %s", args)
	}

	cut := []Segment{
		{Path: "s0.mp4", Start: 0, Duration: 3},
		{Path: "s1.mp4", Start: 2, Duration: 3},
	}
	args = strings.Join(buildConcatArgs(cut, "out.mp4", config.Config{FadeDuration: 1}), " ")
	if !strings.Contains(args, "offset=2.000000[v1]") {
		t.Errorf("offset should come from the step start: %s", args)
	}
}

func TestConcatArgsSingleSegment(t *testing.T) {
	args := buildConcatArgs([]Segment{{Path: "only.mp4", Duration: 3}}, "out.mp4", config.Config{})
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "-filter_complex") {
		t.Errorf("single segment needs no filter graph: %s", joined)
	}
	if !strings.Contains(joined, "-map 0:v") {
		t.Errorf("expected direct map: %s", joined)
	}
}

func TestStreamArgs(t *testing.T) {
	cfg := config.Config{Width: 640, Height: 360, FPS: 25, VideoEncoder: "h264_nvenc", Quality: 28}
	args := strings.Join(buildStreamArgs("out.mp4", cfg), " ")
	for _, want := range []string{"-video_size 640x360", "-framerate 25", "-i -", "-c:v h264_nvenc", "-cq 28"} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestSegmentArgs(t *testing.T) {
	e := &FFmpegEncoder{}
	p := config.SegmentParams{FPS: 30, Duration: 2.5, Filter: "null"}
	args := strings.Join(e.buildSegmentArgs(100, 50, "seg.mp4", p, "", 23), " ")
	for _, want := range []string{"-video_size 100x50", "-vf null", "-t 2.500000", "-c:v libx264", "seg.mp4"} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestWriteRawRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 2, 4, 3))
	src.Set(2, 2, color.NRGBA{R: 10, A: 255})
	var buf bytes.Buffer
	if err := writeRawRGBA(&buf, src); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 2*1*4 {
		t.Fatalf("expected 8 bytes, got %d", buf.Len())
	}
	if buf.Bytes()[0] != 10 {
		t.Errorf("first pixel not copied from bounds.Min: %v", buf.Bytes()[:4])
	}
}
