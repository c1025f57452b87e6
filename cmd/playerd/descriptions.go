package main

import "fmt"

type rational struct {
	Nominator   int
	Denominator int
}

type videoPattern int

// Video test patterns of videotestsrc
// Maps one-to-one to the GStreamer mappings
const (
	videoPatternSMPTE     videoPattern = iota // SMPTE 100% color bars
	videoPatternSnow                          // Random (television snow)
	videoPatternBlack                         // 100% Black
	videoPatternWhite                         // 100% White
	videoPatternRed                           // Red
	videoPatternGreen                         // Green
	videoPatternBlue                          // Blue
	videoPatternCheckers1                     // Checkers 1px
	videoPatternCheckers2                     // Checkers 2px
	videoPatternCheckers4                     // Checkers 4px
	videoPatternCheckers8                     // Checkers 8px
	videoPatternCircular                      // Circular
	videoPatternBlink                         // Blink
	videoPatternSMPTE75                       // SMPTE 75% color bars
	videoPatternZonePlate                     // Zone plate
	videoPatternGamut                         // Gamut checkers
	videoPatternChromaZonePlate               // Chroma zone plate
	videoPatternSolidColor                    // Solid color
	videoPatternBall                          // Moving ball
)

// A videoCapsFilter enforces limitation of formats in the process of linking pads.
type videoCapsFilter struct {
	Mimetype  string
	Format    string
	Width     int
	Height    int
	Framerate rational
}

// Returns a description of the videoCapsFilter instance that can be used in a
// pipeline description.
func (c *videoCapsFilter) string() string {
	return fmt.Sprintf("%s,format=%s,width=%d,height=%d,framerate=%d/%d", c.Mimetype, c.Format, c.Width, c.Height, c.Framerate.Nominator, c.Framerate.Denominator)
}

// An audioCapsFilter enforces limitation of formats in the process of linking pads.
type audioCapsFilter struct {
	Mimetype string
	Format   string
	Channels int
	Rate     int
}

func (c *audioCapsFilter) string() string {
	return fmt.Sprintf("%s,format=%s,channels=%d,rate=%d", c.Mimetype, c.Format, c.Channels, c.Rate)
}

var hz30 = rational{Nominator: 30, Denominator: 1}
var capsStereo48Khz = audioCapsFilter{Mimetype: "audio/x-raw", Format: "S16LE", Channels: 2, Rate: 48000}

const (
	demoVideoSink = "video"
	demoAudioSink = "audio"
	demoSinks     = demoVideoSink + "," + demoAudioSink
)

// demoDescription returns a live test pipeline with a raw video and a raw
// audio appsink. The video branch ends in a scalefilter, so the resolution
// can be changed at runtime.
func demoDescription(pattern videoPattern, width, height int) string {
	src := videoCapsFilter{Mimetype: "video/x-raw", Format: "I420", Width: width, Height: height, Framerate: hz30}

	video := fmt.Sprintf("videotestsrc is-live=true pattern=%d ! capsfilter caps=%s ! videoconvertscale ! capsfilter name=scalefilter ! appsink name=%s",
		pattern, src.string(), demoVideoSink)
	audio := fmt.Sprintf("audiotestsrc is-live=true ! capsfilter caps=%s ! appsink name=%s",
		capsStereo48Khz.string(), demoAudioSink)

	return video + " " + audio
}
