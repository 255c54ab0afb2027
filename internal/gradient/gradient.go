package gradient

import (
	"math"

	"github.com/speedwagon-io/gpuglow/internal/model"
)

// Gradient maps a utilization percentage onto the line between two
// fixed color endpoints.
type Gradient struct {
	Low  model.RGB
	High model.RGB
}

func New(low, high model.RGB) Gradient {
	return Gradient{Low: low, High: high}
}

// At interpolates linearly between Low and High for util in [0,100].
// Values outside the range are clamped. Channels are rounded half-up;
// At(0) returns Low exactly and At(100) returns High exactly.
func (g Gradient) At(util int) model.RGB {
	if util < 0 {
		util = 0
	}
	if util > 100 {
		util = 100
	}

	t := float64(util) / 100.0

	return model.RGB{
		R: lerpChannel(g.Low.R, g.High.R, t),
		G: lerpChannel(g.Low.G, g.High.G, t),
		B: lerpChannel(g.Low.B, g.High.B, t),
	}
}

func lerpChannel(low, high uint8, t float64) uint8 {
	v := math.Round(float64(low) + (float64(high)-float64(low))*t)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
