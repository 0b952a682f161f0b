package director

// Scenario is the storyboard of a rendered cycle: one slide per step.
type Scenario struct {
	Version  string   `yaml:"version"`
	Settings Settings `yaml:"settings"`
	Slides   []Slide  `yaml:"slides"`
}

// Settings records the effect configuration the storyboard was made with.
type Settings struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	ZoomSize  float64 `yaml:"zoom_size"`
	Fade      float64 `yaml:"fade"`    // seconds
	Display   float64 `yaml:"display"` // seconds
	Direction string  `yaml:"direction"`
	Duration  float64 `yaml:"duration"` // seconds
}

// Slide is one step of the cycle.
type Slide struct {
	Step      int        `yaml:"step"`
	Index     int        `yaml:"index"`
	Input     string     `yaml:"input"`
	Start     float64    `yaml:"start"`    // seconds from the beginning
	Duration  float64    `yaml:"duration"` // display window plus the outgoing fade
	Focus     string     `yaml:"focus"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe represents the camera at a time offset within its slide.
type Keyframe struct {
	Time float64   `yaml:"time"`
	Rect Rectangle `yaml:"rect"` // visible part of the source image
	Zoom float64   `yaml:"zoom"`
}

// Rectangle represents a bounding box
type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}
