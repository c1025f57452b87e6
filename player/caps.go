package player

import "fmt"

// scaleFilterName is the capsfilter element SetResolution reconfigures.
const scaleFilterName = "scalefilter"

type rational struct {
	Numerator   int
	Denominator int
}

var squarePixels = rational{1, 1}

// A videoCaps restricts the raw video format negotiated through a capsfilter.
type videoCaps struct {
	Mimetype         string
	Width            int
	Height           int
	PixelAspectRatio rational
}

// Returns the caps string accepted by the engine's caps parser.
func (c *videoCaps) string() string {
	return fmt.Sprintf("%s,width=%d,height=%d,pixel-aspect-ratio=%d/%d",
		c.Mimetype, c.Width, c.Height, c.PixelAspectRatio.Numerator, c.PixelAspectRatio.Denominator)
}
