package player

import (
	"errors"
	"reflect"
	"testing"
)

func TestDispatch_RawVideoScenario(t *testing.T) {
	p, _, pl := newTestPlayer(t)
	rec := &recorder{}
	if !p.AddSinkCallback("vsink", rec.handle) {
		t.Fatal("registration failed")
	}

	pl.sinks["vsink"].pushSample(rawVideoSample(640, 480))
	p.loop.RunPending()

	calls := rec.notifications()
	if len(calls) != 2 {
		t.Fatalf("expected exactly two notifications, got %v", rec.tags())
	}

	setup := calls[0]
	if setup.Tag != Setup || setup.Setup == nil || setup.Payload != nil {
		t.Fatalf("first notification is not setup: %+v", setup)
	}
	wantVideo := &VideoInfo{
		FormatName: "I420",
		FormatCode: i420FormatCode,
		Width:      640,
		Height:     480,
		Offsets:    []int{0, 307200, 384000},
	}
	if setup.Setup.Type != "video" || setup.Setup.Format != "x-raw" {
		t.Errorf("unexpected setup type %s/%s", setup.Setup.Type, setup.Setup.Format)
	}
	if !reflect.DeepEqual(setup.Setup.Video, wantVideo) {
		t.Errorf("setup video = %+v, want %+v", setup.Setup.Video, wantVideo)
	}
	if setup.Setup.Audio != nil {
		t.Error("video setup carries audio info")
	}

	data := calls[1]
	if data.Tag != NewSample || data.Payload == nil {
		t.Fatalf("second notification is not a sample: %+v", data)
	}
	if data.Payload.Type != "video" || data.Payload.Format != "x-raw" {
		t.Errorf("unexpected payload type %s/%s", data.Payload.Type, data.Payload.Format)
	}
	if !reflect.DeepEqual(data.Payload.Video, wantVideo) {
		t.Errorf("payload video = %+v, want %+v", data.Payload.Video, wantVideo)
	}
	if len(data.Payload.Data) != 640*480*3/2 {
		t.Errorf("unexpected payload size %d", len(data.Payload.Data))
	}
}

func TestDispatch_SetupOncePerBuild(t *testing.T) {
	p, engine, pl := newTestPlayer(t)
	rec := &recorder{}
	p.RegisterSink("vsink", rec.handle)

	sink := pl.sinks["vsink"]
	sink.pushPreroll(rawVideoSample(4, 4))
	p.loop.RunPending()
	for i := 0; i < 3; i++ {
		sink.pushSample(rawVideoSample(4, 4))
		p.loop.RunPending()
	}

	want := []Tag{Setup, NewPreroll, NewSample, NewSample, NewSample}
	if got := rec.tags(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// A new build starts with fresh slots, so setup is delivered again.
	second := engine.add("second", newFakePipeline("vsink"))
	p.Build("second")
	rec2 := &recorder{}
	p.RegisterSink("vsink", rec2.handle)
	second.sinks["vsink"].pushSample(rawVideoSample(8, 8))
	p.loop.RunPending()

	if got := rec2.tags(); !reflect.DeepEqual(got, []Tag{Setup, NewSample}) {
		t.Errorf("after rebuild got %v", got)
	}
}

func TestDispatch_MediaTypeRoundTrip(t *testing.T) {
	testCases := []struct {
		caps       string
		wantType   string
		wantFormat string
	}{
		{"audio/mpeg", "audio", "mpeg"},
		{"video/x-h264", "video", "x-h264"},
		{"application/x-rtp", "application", "x-rtp"},
		{"text/x-raw", "text", "x-raw"},
		{"image/jpeg", "image", "jpeg"},
	}

	for _, tc := range testCases {
		t.Run(tc.caps, func(t *testing.T) {
			p, _, pl := newTestPlayer(t)
			rec := &recorder{}
			p.RegisterSink("vsink", rec.handle)

			pl.sinks["vsink"].pushSample(encodedSample(tc.caps, []byte{1, 2, 3}))
			p.loop.RunPending()

			calls := rec.notifications()
			if len(calls) != 2 {
				t.Fatalf("expected setup and sample, got %v", rec.tags())
			}
			s := calls[0].Setup
			if s.Type != tc.wantType || s.Format != tc.wantFormat || s.Audio != nil || s.Video != nil {
				t.Errorf("unexpected setup %+v", s)
			}
			pay := calls[1].Payload
			if pay.Type != tc.wantType || pay.Format != tc.wantFormat {
				t.Errorf("payload type %s/%s, want %s/%s", pay.Type, pay.Format, tc.wantType, tc.wantFormat)
			}
			if !reflect.DeepEqual(pay.Data, []byte{1, 2, 3}) {
				t.Errorf("unexpected payload data %v", pay.Data)
			}
		})
	}
}

func TestDispatch_RawAudio(t *testing.T) {
	p, _, pl := newTestPlayer(t)
	rec := &recorder{}
	p.RegisterSink("asink", rec.handle)

	pl.sinks["asink"].pushSample(rawAudioSample(2, 48000))
	p.loop.RunPending()

	calls := rec.notifications()
	if len(calls) != 2 {
		t.Fatalf("expected setup and sample, got %v", rec.tags())
	}
	want := &AudioInfo{Channels: 2, Rate: 48000, BPF: 4}
	if !reflect.DeepEqual(calls[0].Setup.Audio, want) {
		t.Errorf("setup audio = %+v, want %+v", calls[0].Setup.Audio, want)
	}
	pay := calls[1].Payload
	if pay.Type != "audio" || pay.Format != "x-raw" || !reflect.DeepEqual(pay.Audio, want) {
		t.Errorf("unexpected payload %+v", pay)
	}
	if pay.Video != nil {
		t.Error("audio payload carries video info")
	}
}

func TestDispatch_MalformedSamplesSkipped(t *testing.T) {
	testCases := []struct {
		name   string
		sample *fakeSample
		setup  bool
	}{
		{
			name:   "no_caps",
			sample: &fakeSample{buffer: &fakeBuffer{data: []byte{1}}},
		},
		{
			name:   "no_buffer",
			sample: &fakeSample{caps: &fakeCaps{name: "video/x-h264"}},
		},
		{
			name:   "no_slash",
			sample: encodedSample("garbage", []byte{1}),
		},
		{
			name:   "unparsable_video_info",
			sample: encodedSample("video/x-raw", []byte{1}),
		},
		{
			name:   "unparsable_audio_info",
			sample: encodedSample("audio/x-raw", []byte{1}),
		},
		{
			name: "map_failure",
			sample: &fakeSample{
				caps:   &fakeCaps{name: "video/x-h264"},
				buffer: &fakeBuffer{mapErr: errors.New("not readable")},
			},
			setup: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, _, pl := newTestPlayer(t)
			rec := &recorder{}
			p.RegisterSink("vsink", rec.handle)
			sink := pl.sinks["vsink"]

			sink.pushSample(tc.sample)
			p.loop.RunPending()

			for _, n := range rec.notifications() {
				if n.Tag == NewSample {
					t.Fatalf("malformed sample was delivered: %+v", n)
				}
			}
			if gotSetup := len(rec.notifications()) == 1; gotSetup != tc.setup {
				t.Errorf("setup delivered = %v, want %v", gotSetup, tc.setup)
			}
			stats := p.Stats().Sinks[0]
			if stats.Skipped != 1 || stats.Delivered != 0 {
				t.Errorf("unexpected counters %+v", stats)
			}

			// The slot keeps working after a skipped sample.
			sink.pushSample(encodedSample("video/x-h264", []byte{7}))
			p.loop.RunPending()
			tags := rec.tags()
			if len(tags) == 0 || tags[len(tags)-1] != NewSample {
				t.Errorf("sink stuck after skipped sample: %v", tags)
			}
		})
	}
}

func TestDispatch_NothingToPull(t *testing.T) {
	p, _, pl := newTestPlayer(t)
	rec := &recorder{}
	p.RegisterSink("vsink", rec.handle)

	// The hook fires but the sample was already taken.
	pl.sinks["vsink"].callbacks().OnNewSample()
	p.loop.RunPending()

	if len(rec.notifications()) != 0 {
		t.Errorf("unexpected notifications %v", rec.tags())
	}
	if q := p.queue.len(); q != 0 {
		t.Fatalf("queue not empty: %d", q)
	}
	pl.sinks["vsink"].pushSample(encodedSample("video/x-vp8", []byte{1}))
	if q := p.queue.len(); q != 1 {
		t.Errorf("pending flag not cleared after empty pull, queued %d", q)
	}
}

// A sample landing while its predecessor is being pulled must not be left
// in the sink without an event.
func TestDispatch_SampleDuringPull(t *testing.T) {
	testCases := []struct {
		name          string
		before        bool
		wantData      []byte
		wantDelivered uint64
		wantSkipped   uint64
	}{
		// The pull already takes the newer sample; its own event finds
		// nothing left.
		{"before_take", true, []byte{2}, 1, 1},
		{"after_take", false, []byte{1, 2}, 2, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, _, pl := newTestPlayer(t)
			rec := &recorder{}
			p.RegisterSink("vsink", rec.handle)
			sink := pl.sinks["vsink"]

			second := func() {
				sink.pushSample(encodedSample("video/x-vp8", []byte{2}))
			}
			sink.mu.Lock()
			if tc.before {
				sink.beforePull = second
			} else {
				sink.afterPull = second
			}
			sink.mu.Unlock()

			sink.pushSample(encodedSample("video/x-vp8", []byte{1}))
			if q := p.queue.len(); q != 1 {
				t.Fatalf("expected one queued event, got %d", q)
			}
			p.loop.RunPending()

			var got []byte
			for _, n := range rec.notifications() {
				if n.Tag == NewSample {
					got = append(got, n.Payload.Data...)
				}
			}
			if !reflect.DeepEqual(got, tc.wantData) {
				t.Errorf("delivered %v, want %v (tags %v)", got, tc.wantData, rec.tags())
			}

			stats := p.Stats().Sinks[0]
			if stats.Signals != 2 || stats.Coalesced != 0 {
				t.Errorf("second sample was coalesced: %+v", stats)
			}
			if stats.Delivered != tc.wantDelivered || stats.Skipped != tc.wantSkipped {
				t.Errorf("unexpected counters %+v", stats)
			}
			if sink.PullSample() != nil {
				t.Error("a sample was left in the sink")
			}
			if q := p.queue.len(); q != 0 {
				t.Errorf("queue not empty: %d", q)
			}
		})
	}
}

func TestDispatch_PayloadIsPrivateCopy(t *testing.T) {
	p, _, pl := newTestPlayer(t)
	rec := &recorder{}
	p.RegisterSink("vsink", rec.handle)

	smp := encodedSample("video/x-h264", []byte{1, 2, 3, 4})
	pl.sinks["vsink"].pushSample(smp)
	p.loop.RunPending()

	smp.buffer.data[0] = 0xff
	pay := rec.notifications()[1].Payload
	if pay.Data[0] != 1 {
		t.Error("payload aliases engine memory")
	}
	if smp.buffer.mapped {
		t.Error("buffer left mapped after dispatch")
	}
	if got := p.Stats().Sinks[0].Bytes; got != 4 {
		t.Errorf("expected 4 bytes accounted, got %d", got)
	}
}
