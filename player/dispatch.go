package player

import (
	"bytes"
	"strings"

	"k8s.io/klog"
)

const (
	mediaAudio = "audio"
	mediaVideo = "video"
	rawFormat  = "x-raw"
)

// AudioInfo describes raw audio samples.
type AudioInfo struct {
	Channels int
	Rate     int
	// BPF is the number of bytes per frame (all channels of one sample).
	BPF int
}

// VideoInfo describes raw video frames.
type VideoInfo struct {
	FormatName string // e.g. "I420"
	FormatCode int    // numeric GstVideoFormat
	Width      int
	Height     int
	// Offsets holds the byte offset of every plane within the buffer.
	Offsets []int
}

func (v *VideoInfo) clone() *VideoInfo {
	c := *v
	c.Offsets = append([]int(nil), v.Offsets...)
	return &c
}

// SetupInfo is delivered once per sink and build, before the first sample.
// Audio and Video are only set for raw formats.
type SetupInfo struct {
	Type   string
	Format string
	Audio  *AudioInfo
	Video  *VideoInfo
}

// Payload is one sample. Data is a private copy of the engine buffer.
type Payload struct {
	Type   string
	Format string
	Data   []byte
	Audio  *AudioInfo
	Video  *VideoInfo
}

// Notification is what a Handler receives. Setup is set for Tag Setup,
// Payload for NewPreroll and NewSample, neither for Eos.
type Notification struct {
	Tag     Tag
	Setup   *SetupInfo
	Payload *Payload
}

// splitCapsName splits "video/x-raw" into ("video", "x-raw").
func splitCapsName(name string) (mediaType, format string, ok bool) {
	return strings.Cut(name, "/")
}

// process is the single dispatch site for every queued event.
func (p *Player) process(ev event) {
	if ev.generation() != p.current {
		p.stale.Add(1)
		return
	}
	p.dispatched.Add(1)

	switch ev := ev.(type) {
	case sinkEvent:
		p.processSinkEvent(ev)
	case pipelineEvent:
		p.processPipelineEvent(ev)
	}
}

func (p *Player) processPipelineEvent(ev pipelineEvent) {
	switch ev.kind {
	case MessageEndOfStream:
		klog.V(2).Infof("pipeline %s reached end of stream", p.BuildID())
		if p.onEOS != nil {
			p.onEOS()
		}
	}
}

func (p *Player) processSinkEvent(ev sinkEvent) {
	slot := p.sinks.get(ev.sink)
	if slot == nil {
		return
	}

	switch ev.kind {
	case sinkNewPreroll:
		p.deliverSample(slot, slot.sink.PullPreroll(), NewPreroll)
	case sinkNewSample:
		// Cleared before the pull: any sample landing after this point
		// queues a fresh event, so the newest sample always has one.
		slot.pending.Store(false)
		p.deliverSample(slot, slot.sink.PullSample(), NewSample)
	case sinkEndOfStream:
		slot.handler(Notification{Tag: Eos})
	}
}

func (p *Player) skipSample(slot *sinkSlot, reason string) {
	slot.skipped.Add(1)
	klog.V(3).Infof("sink %s: skipping sample: %s", slot.name, reason)
}

// deliverSample classifies sample by its caps name and hands the setup and
// data notifications to the sink handler. Malformed samples are skipped.
func (p *Player) deliverSample(slot *sinkSlot, sample Sample, tag Tag) {
	if sample == nil {
		p.skipSample(slot, "no sample available")
		return
	}
	caps := sample.Caps()
	if caps == nil {
		p.skipSample(slot, "sample has no caps")
		return
	}

	name := caps.Name()
	mediaType, format, ok := splitCapsName(name)
	if !ok {
		p.skipSample(slot, "unexpected caps name "+name)
		return
	}

	setup := SetupInfo{Type: mediaType, Format: format}
	payload := &Payload{Type: mediaType, Format: format}

	if format == rawFormat {
		switch mediaType {
		case mediaAudio:
			info, ok := caps.AudioInfo()
			if !ok {
				p.skipSample(slot, "cannot parse audio info from "+name)
				return
			}
			setup.Audio = &info
			a := info
			payload.Audio = &a
		case mediaVideo:
			info, ok := caps.VideoInfo()
			if !ok {
				p.skipSample(slot, "cannot parse video info from "+name)
				return
			}
			setup.Video = &info
			payload.Video = info.clone()
		}
	}

	buffer := sample.Buffer()
	if buffer == nil {
		p.skipSample(slot, "sample has no buffer")
		return
	}

	if !slot.setupDone {
		slot.setupDone = true
		slot.handler(Notification{Tag: Setup, Setup: &setup})
	}

	data, err := buffer.Map()
	if err != nil {
		p.skipSample(slot, "failed to map buffer: "+err.Error())
		return
	}
	payload.Data = bytes.Clone(data)
	buffer.Unmap()

	slot.delivered.Add(1)
	slot.bytes.Add(uint64(len(payload.Data)))
	slot.handler(Notification{Tag: tag, Payload: payload})
}
