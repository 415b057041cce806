package docutils

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// golden angle, in degrees
const hueStep = 137.508

// LabelColor returns the hex stroke colour used to draw regions with label.
func LabelColor(label int) string {
	h := math.Mod(float64(label)*hueStep, 360)
	if h < 0 {
		h += 360
	}

	return colorful.Hsl(h, 0.85, 0.5).Hex()
}
