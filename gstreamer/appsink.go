package gstreamer

import (
	"errors"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"

	"github.com/TUM-Dev/captureagent/playerd/player"
)

type appSink struct {
	name string
	sink *app.Sink
}

func (s *appSink) Name() string { return s.name }

func (s *appSink) SetDropPolicy(drop bool, maxBuffers int) {
	s.sink.SetDrop(drop)
	s.sink.SetMaxBuffers(uint32(maxBuffers))
}

// SetCallbacks installs the hooks. They run on streaming threads.
func (s *appSink) SetCallbacks(cb player.SinkCallbacks) {
	s.sink.SetCallbacks(&app.SinkCallbacks{
		EOSFunc: func(*app.Sink) {
			cb.OnEndOfStream()
		},
		NewPrerollFunc: func(*app.Sink) gst.FlowReturn {
			cb.OnNewPreroll()
			return gst.FlowOK
		},
		NewSampleFunc: func(*app.Sink) gst.FlowReturn {
			cb.OnNewSample()
			return gst.FlowOK
		},
	})
}

// PullPreroll and PullSample never block: the consumer thread must not wait
// for a streaming thread.
func (s *appSink) PullPreroll() player.Sample {
	smp := s.sink.TryPullPreroll(0)
	if smp == nil {
		return nil
	}
	return &sample{smp}
}

func (s *appSink) PullSample() player.Sample {
	smp := s.sink.TryPullSample(0)
	if smp == nil {
		return nil
	}
	return &sample{smp}
}

type sample struct {
	sample *gst.Sample
}

func (s *sample) Caps() player.Caps {
	c := s.sample.GetCaps()
	if c == nil {
		return nil
	}
	return &caps{c}
}

func (s *sample) Buffer() player.Buffer {
	b := s.sample.GetBuffer()
	if b == nil {
		return nil
	}
	return &buffer{buffer: b}
}

type caps struct {
	caps *gst.Caps
}

// Name returns the name of the first structure, e.g. "video/x-raw".
func (c *caps) Name() string {
	if c.caps.GetSize() == 0 {
		return ""
	}
	st := c.caps.GetStructureAt(0)
	if st == nil {
		return ""
	}
	return st.Name()
}

func (c *caps) AudioInfo() (player.AudioInfo, bool) {
	return audioInfoFromCaps(c.caps)
}

func (c *caps) VideoInfo() (player.VideoInfo, bool) {
	return videoInfoFromCaps(c.caps)
}

type buffer struct {
	buffer *gst.Buffer
	info   *gst.MapInfo
}

func (b *buffer) Map() ([]byte, error) {
	b.info = b.buffer.Map(gst.MapRead)
	if b.info == nil {
		return nil, errors.New("buffer is not readable")
	}
	return b.info.Bytes(), nil
}

func (b *buffer) Unmap() {
	if b.info == nil {
		return
	}
	b.buffer.Unmap()
	b.info = nil
}
