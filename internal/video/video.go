package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strings"

	"github.com/ivlev/kenburns/internal/config"
)

type VideoEncoder interface {
	EncodeSegment(ctx context.Context, img image.Image, videoPath string, params config.SegmentParams, encoderName string, quality int) error
	Concatenate(ctx context.Context, segments []Segment, finalPath string, params config.Config) error
	OpenStream(ctx context.Context, finalPath string, params config.Config) (FrameWriter, error)
}

// FrameWriter accepts frames of the configured size in presentation order.
type FrameWriter interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

// Segment is an encoded step, when it starts and how long it lasts on
// screen, fade included.
type Segment struct {
	Path     string
	Start    float64
	Duration float64
}

type FFmpegEncoder struct{}

func qualityArgs(encoderName string, quality int) []string {
	switch encoderName {
	case "h264_videotoolbox":
		// VideoToolbox does not accept -crf; quality maps to a bitrate.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default:
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

func encoderOrDefault(name string) string {
	if name == "" {
		return "libx264"
	}
	return name
}

func (e *FFmpegEncoder) EncodeSegment(
	ctx context.Context,
	img image.Image,
	videoPath string,
	params config.SegmentParams,
	encoderName string,
	quality int,
) error {
	inputW, inputH := img.Bounds().Dx(), img.Bounds().Dy()
	args := e.buildSegmentArgs(inputW, inputH, videoPath, params, encoderName, quality)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	// One raw frame; zoompan repeats it for the whole segment.
	if err := writeRawRGBA(stdin, img); err != nil {
		stdin.Close()
		cmd.Wait()
		return fmt.Errorf("write raw error: %w", err)
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, out.String())
	}
	return nil
}

func (e *FFmpegEncoder) buildSegmentArgs(
	inputW, inputH int,
	videoPath string,
	params config.SegmentParams,
	encoderName string,
	quality int,
) []string {
	encoderName = encoderOrDefault(encoderName)
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", inputW, inputH),
		"-i", "-",
		"-vf", params.Filter,
		"-t", fmt.Sprintf("%f", params.Duration),
		"-r", fmt.Sprintf("%d", params.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName,
	}
	args = append(args, qualityArgs(encoderName, quality)...)
	return append(args, videoPath)
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// Concatenate joins the segments with xfade cross-fades of
// params.FadeDuration and muxes params.AudioPath when set. Each cross-fade
// begins at the start of its incoming segment.
func (e *FFmpegEncoder) Concatenate(ctx context.Context, segments []Segment, finalPath string, params config.Config) error {
	if len(segments) == 0 {
		return fmt.Errorf("no segments to concatenate")
	}
	args := buildConcatArgs(segments, finalPath, params)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg xfade error: %v, output: %s", err, string(out))
	}
	return nil
}

func buildConcatArgs(segments []Segment, finalPath string, params config.Config) []string {
	args := []string{"-y"}
	for _, s := range segments {
		args = append(args, "-i", s.Path)
	}

	audioIndex := -1
	if params.AudioPath != "" {
		audioIndex = len(segments)
		args = append(args, "-i", params.AudioPath)
	}

	var graph strings.Builder
	lastOut := "[0:v]"
	fade := params.FadeDuration

	if len(segments) > 1 {
		for i := 1; i < len(segments); i++ {
			offset := segments[i].Start - segments[0].Start
			outName := fmt.Sprintf("[v%d]", i)
			if fade > 0 {
				fmt.Fprintf(&graph, "%s[%d:v]xfade=transition=fade:duration=%f:offset=%f%s;",
					lastOut, i, fade, offset, outName)
			} else {
				fmt.Fprintf(&graph, "%s[%d:v]concat=n=2:v=1:a=0%s;", lastOut, i, outName)
			}
			lastOut = outName
		}
	}

	filter := strings.TrimSuffix(graph.String(), ";")
	if filter != "" {
		args = append(args, "-filter_complex", filter)
	}

	if filter == "" {
		lastOut = "0:v"
	}
	args = append(args, "-map", lastOut)
	if audioIndex != -1 {
		args = append(args, "-map", fmt.Sprintf("%d:a", audioIndex), "-shortest")
	}

	encoderName := encoderOrDefault(params.VideoEncoder)
	args = append(args, "-c:v", encoderName, "-pix_fmt", "yuv420p")
	args = append(args, qualityArgs(encoderName, params.Quality)...)
	return append(args, finalPath)
}

// OpenStream starts an ffmpeg process that reads raw RGBA frames of
// params.Width x params.Height from stdin.
func (e *FFmpegEncoder) OpenStream(ctx context.Context, finalPath string, params config.Config) (FrameWriter, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", buildStreamArgs(finalPath, params)...)
	s := &stream{cmd: cmd, width: params.Width, height: params.Height}
	cmd.Stdout = &s.out
	cmd.Stderr = &s.out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	s.stdin = stdin
	return s, nil
}

func buildStreamArgs(finalPath string, params config.Config) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
	}
	if params.AudioPath != "" {
		args = append(args, "-i", params.AudioPath, "-map", "0:v", "-map", "1:a", "-shortest")
	}
	encoderName := encoderOrDefault(params.VideoEncoder)
	args = append(args, "-pix_fmt", "yuv420p", "-c:v", encoderName)
	args = append(args, qualityArgs(encoderName, params.Quality)...)
	return append(args, finalPath)
}

type stream struct {
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	out           bytes.Buffer
	width, height int
	closed        bool
}

func (s *stream) WriteFrame(img *image.RGBA) error {
	if b := img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("frame is %dx%d, stream expects %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, s.out.String())
	}
	return nil
}
