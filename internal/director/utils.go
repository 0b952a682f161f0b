package director

import (
	"path/filepath"
	"strings"
)

// ScenarioPath places the storyboard next to the video it describes.
func ScenarioPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + ".storyboard.yaml"
}
