package math

/**
 * @brief A linear colour as the receiver expects it. Vector material
 * parameters and colour swatches are carried as linear colours.
 */
type LinearColor struct {
	R float32 `json:"r" yaml:"r"`
	G float32 `json:"g" yaml:"g"`
	B float32 `json:"b" yaml:"b"`
	A float32 `json:"a" yaml:"a"`
}

// NewLinearColorFromMask converts a static component mask into a colour with 1 for every enabled channel.
func NewLinearColorFromMask(r, g, b, a bool) LinearColor {
	return LinearColor{R: maskChannel(r), G: maskChannel(g), B: maskChannel(b), A: maskChannel(a)}
}

func maskChannel(enabled bool) float32 {
	if enabled {
		return 1.0
	}
	return 0.0
}

// Clamped returns the colour with every channel clamped to [0, 1].
func (c LinearColor) Clamped() LinearColor {
	return LinearColor{
		R: Clamp(c.R, 0, 1),
		G: Clamp(c.G, 0, 1),
		B: Clamp(c.B, 0, 1),
		A: Clamp(c.A, 0, 1),
	}
}
