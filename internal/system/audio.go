package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
)

// GetAudioDuration decodes mp3 and wav files in-process and asks ffprobe
// for everything else.
func GetAudioDuration(path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav":
		d, err := decodeDuration(path)
		if err == nil {
			return d, nil
		}
	}
	return probeDuration(path)
}

func decodeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		stream, format, err = mp3.Decode(f)
	} else {
		stream, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	defer stream.Close()

	if stream.Len() <= 0 {
		return 0, fmt.Errorf("decode %s: unknown length", path)
	}
	return format.SampleRate.D(stream.Len()), nil
}

func probeDuration(path string) (time.Duration, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var seconds float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &seconds); err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
