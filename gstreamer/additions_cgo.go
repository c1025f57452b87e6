package gstreamer

// TODO: upstream video/audio info parsing to go-gst

// #cgo pkg-config: glib-2.0 gstreamer-1.0 gstreamer-app-1.0 gstreamer-audio-1.0 gstreamer-video-1.0
// #include <glib-object.h>
// #include <gst/gst.h>
// #include <gst/app/gstappsink.h>
// #include <gst/audio/audio.h>
// #include <gst/video/video.h>
//
// static gboolean is_app_sink(GstElement *elem) {
//   return GST_IS_APP_SINK(elem);
// }
//
// static gint video_info_format(GstVideoInfo *info) { return GST_VIDEO_INFO_FORMAT(info); }
// static guint video_info_n_planes(GstVideoInfo *info) { return GST_VIDEO_INFO_N_PLANES(info); }
// static gsize video_info_plane_offset(GstVideoInfo *info, guint plane) { return GST_VIDEO_INFO_PLANE_OFFSET(info, plane); }
//
// static gint audio_info_channels(GstAudioInfo *info) { return GST_AUDIO_INFO_CHANNELS(info); }
// static gint audio_info_rate(GstAudioInfo *info) { return GST_AUDIO_INFO_RATE(info); }
// static gint audio_info_bpf(GstAudioInfo *info) { return GST_AUDIO_INFO_BPF(info); }
import "C"
import (
	"unsafe"

	"github.com/go-gst/go-gst/gst"

	"github.com/TUM-Dev/captureagent/playerd/player"
)

func isAppSink(elem *gst.Element) bool {
	ptr := unsafe.Pointer(elem.Instance())
	return C.is_app_sink((*C.GstElement)(ptr)) != 0
}

func videoInfoFromCaps(caps *gst.Caps) (player.VideoInfo, bool) {
	ptr := unsafe.Pointer(caps.Instance())

	var info C.GstVideoInfo
	C.gst_video_info_init(&info)
	if C.gst_video_info_from_caps(&info, (*C.GstCaps)(ptr)) == 0 {
		return player.VideoInfo{}, false
	}

	format := C.video_info_format(&info)
	// Transfer: none
	name := C.GoString((*C.char)(unsafe.Pointer(C.gst_video_format_to_string(C.GstVideoFormat(format)))))

	nPlanes := uint(C.video_info_n_planes(&info))
	offsets := make([]int, nPlanes)
	for i := range offsets {
		offsets[i] = int(C.video_info_plane_offset(&info, C.guint(i)))
	}

	return player.VideoInfo{
		FormatName: name,
		FormatCode: int(format),
		Width:      int(info.width),
		Height:     int(info.height),
		Offsets:    offsets,
	}, true
}

func audioInfoFromCaps(caps *gst.Caps) (player.AudioInfo, bool) {
	ptr := unsafe.Pointer(caps.Instance())

	var info C.GstAudioInfo
	C.gst_audio_info_init(&info)
	if C.gst_audio_info_from_caps(&info, (*C.GstCaps)(ptr)) == 0 {
		return player.AudioInfo{}, false
	}

	return player.AudioInfo{
		Channels: int(C.audio_info_channels(&info)),
		Rate:     int(C.audio_info_rate(&info)),
		BPF:      int(C.audio_info_bpf(&info)),
	}, true
}
