package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-gst/go-gst/gst"
	"k8s.io/klog"

	"github.com/TUM-Dev/captureagent/playerd/player"
)

type httpServer struct {
	daemonController
}

const controlTimeout = 5 * time.Second

// Minimalist prometheus exporter
func (h *httpServer) metrics(w http.ResponseWriter, r *http.Request) {
	m := h.metricsSnapshot()

	/* CPU */

	cpuTime := m.cpu.Time.UnixMilli()
	fmt.Fprintf(w, "# HELP linux_proc_user_total Time spent in user mode, in ticks\n")
	fmt.Fprintf(w, "# TYPE linux_proc_user_total counter\n")
	fmt.Fprintf(w, "linux_proc_user_total %d %d\n", m.cpu.User, cpuTime)

	fmt.Fprintf(w, "# HELP linux_proc_system_total Time spent in system mode, in ticks\n")
	fmt.Fprintf(w, "# TYPE linux_proc_system_total counter\n")
	fmt.Fprintf(w, "linux_proc_system_total %d %d\n", m.cpu.System, cpuTime)

	fmt.Fprintf(w, "# HELP linux_proc_iowait_total Time spent waiting for I/O to complete, in ticks\n")
	fmt.Fprintf(w, "# TYPE linux_proc_iowait_total counter\n")
	fmt.Fprintf(w, "linux_proc_iowait_total %d %d\n", m.cpu.Iowait, cpuTime)

	/* Memory */

	memTime := m.mem.Time.UnixMilli()
	fmt.Fprintf(w, "# HELP linux_mem_used_bytes Amount of memory used, in bytes\n")
	fmt.Fprintf(w, "# TYPE linux_mem_used_bytes gauge\n")
	fmt.Fprintf(w, "linux_mem_used_bytes %d %d\n", m.mem.MemUsed*1024, memTime)

	fmt.Fprintf(w, "# HELP linux_mem_free_bytes Amount of free memory, in bytes\n")
	fmt.Fprintf(w, "# TYPE linux_mem_free_bytes gauge\n")
	fmt.Fprintf(w, "linux_mem_free_bytes %d %d\n", m.mem.MemFree*1024, memTime)

	/* Load Average */

	loadAvgTime := m.loadAvg.Time.UnixMilli()
	fmt.Fprintf(w, "# HELP load_avg_one Load average over one minute\n")
	fmt.Fprintf(w, "# TYPE load_avg_one gauge\n")
	fmt.Fprintf(w, "load_avg_one %f %d\n", m.loadAvg.One, loadAvgTime)

	/* Player */

	s := m.player
	fmt.Fprintf(w, "# HELP playerd_build_info Pipeline build currently running\n")
	fmt.Fprintf(w, "# TYPE playerd_build_info gauge\n")
	if s.BuildID != "" {
		fmt.Fprintf(w, "playerd_build_info{build_id=\"%s\",generation=\"%d\"} 1\n", s.BuildID, s.Generation)
	}

	writeCounter(w, "playerd_events_enqueued_total", "Events pushed by engine threads", s.Enqueued)
	writeCounter(w, "playerd_events_dispatched_total", "Events dispatched on the main loop", s.Dispatched)
	writeCounter(w, "playerd_events_stale_total", "Events dropped because they belong to an earlier build", s.Stale)
	writeCounter(w, "playerd_events_discarded_total", "Events dropped by a teardown", s.Discarded)
	writeCounter(w, "playerd_drains_total", "Runs of the drain loop", s.Drains)
	writeCounter(w, "playerd_wakeups_total", "Wake signals raised by engine threads", s.Wakeups)
	writeCounter(w, "playerd_wakeups_scheduled_total", "Drain loop runs scheduled onto the main loop", s.Scheduled)

	fmt.Fprintf(w, "# HELP playerd_events_queued Events waiting for the main loop\n")
	fmt.Fprintf(w, "# TYPE playerd_events_queued gauge\n")
	fmt.Fprintf(w, "playerd_events_queued %d\n", s.Queued)

	fmt.Fprintf(w, "# HELP gst_bus_messages_total Bus messages by type\n")
	fmt.Fprintf(w, "# TYPE gst_bus_messages_total counter\n")
	for t := player.MessageOther; t <= player.MessageQoS; t++ {
		fmt.Fprintf(w, "gst_bus_messages_total{type=\"%s\"} %d\n", t, s.BusMessages[t])
	}

	/* Sinks */

	writeSinkStatsMeta(w)
	for _, ss := range s.Sinks {
		writeSinkStats(w, ss)
	}

	fmt.Fprintf(w, "# HELP playerd_sink_video_width Width of raw video delivered by the sink\n")
	fmt.Fprintf(w, "# TYPE playerd_sink_video_width gauge\n")
	fmt.Fprintf(w, "# HELP playerd_sink_video_height Height of raw video delivered by the sink\n")
	fmt.Fprintf(w, "# TYPE playerd_sink_video_height gauge\n")
	fmt.Fprintf(w, "# HELP playerd_sink_last_sample_seconds Time of the last sample delivered by the sink\n")
	fmt.Fprintf(w, "# TYPE playerd_sink_last_sample_seconds gauge\n")
	for _, o := range m.sinks {
		if v := o.setup.Video; v != nil {
			fmt.Fprintf(w, "playerd_sink_video_width{sink=\"%s\",format=\"%s\"} %d\n", o.name, v.FormatName, v.Width)
			fmt.Fprintf(w, "playerd_sink_video_height{sink=\"%s\",format=\"%s\"} %d\n", o.name, v.FormatName, v.Height)
		}
		if !o.lastFrame.IsZero() {
			fmt.Fprintf(w, "playerd_sink_last_sample_seconds{sink=\"%s\"} %d\n", o.name, o.lastFrame.Unix())
		}
	}
}

func writeCounter(w http.ResponseWriter, name, help string, v uint64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, v)
}

func writeSinkStatsMeta(w http.ResponseWriter) {
	fmt.Fprintln(w, "# HELP playerd_sink_signals_total New sample signals raised by the engine")
	fmt.Fprintln(w, "# TYPE playerd_sink_signals_total counter")

	fmt.Fprintln(w, "# HELP playerd_sink_coalesced_total New sample signals folded into a pending one")
	fmt.Fprintln(w, "# TYPE playerd_sink_coalesced_total counter")

	fmt.Fprintln(w, "# HELP playerd_sink_delivered_total Samples handed to the sink handler")
	fmt.Fprintln(w, "# TYPE playerd_sink_delivered_total counter")

	fmt.Fprintln(w, "# HELP playerd_sink_skipped_total Samples skipped as unusable")
	fmt.Fprintln(w, "# TYPE playerd_sink_skipped_total counter")

	fmt.Fprintln(w, "# HELP playerd_sink_bytes_total Bytes copied out of the sink")
	fmt.Fprintln(w, "# TYPE playerd_sink_bytes_total counter")
}

func writeSinkStats(w http.ResponseWriter, s player.SinkStats) {
	fmt.Fprintf(w, "playerd_sink_signals_total{sink=\"%s\"} %d\n", s.Name, s.Signals)
	fmt.Fprintf(w, "playerd_sink_coalesced_total{sink=\"%s\"} %d\n", s.Name, s.Coalesced)
	fmt.Fprintf(w, "playerd_sink_delivered_total{sink=\"%s\"} %d\n", s.Name, s.Delivered)
	fmt.Fprintf(w, "playerd_sink_skipped_total{sink=\"%s\"} %d\n", s.Name, s.Skipped)
	fmt.Fprintf(w, "playerd_sink_bytes_total{sink=\"%s\"} %d\n", s.Name, s.Bytes)
}

const (
	graphDetailMediaType        = "media-type"
	graphDetailCaps             = "caps"
	graphDetailNonDefaultParams = "non-default-params"
	graphDetailStates           = "states"
	graphDetailFullParams       = "full-params"
	graphDetailAll              = "all"
	graphDetailVerbose          = "verbose"
)

func (h *httpServer) graph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	val := q.Get("details")

	var details gst.DebugGraphDetails
	switch val {
	case graphDetailMediaType:
		details = gst.DebugGraphShowMediaType
	case graphDetailCaps:
		details = gst.DebugGraphShowCapsDetails
	case graphDetailNonDefaultParams:
		details = gst.DebugGraphShowNonDefaultParams
	case graphDetailStates:
		details = gst.DebugGraphShowStates
	case graphDetailFullParams:
		details = gst.DebugGraphShowPullParams
	case graphDetailAll:
		details = gst.DebugGraphShowAll
	case graphDetailVerbose:
		details = gst.DebugGraphShowVerbose
	default:
		details = gst.DebugGraphShowStates
	}

	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()

	dot, err := h.daemonController.graph(ctx, details)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Add("Content-Type", "text/vnd.graphviz")
	w.Write([]byte(dot))
}

// writeError maps player errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, player.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, player.ErrNoPipeline), errors.Is(err, errNoGraph):
		status = http.StatusServiceUnavailable
	case errors.Is(err, player.ErrConfiguration):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	klog.V(1).Infof("control request failed: %v", err)
	http.Error(w, err.Error(), status)
}

func (h *httpServer) controlState(w http.ResponseWriter, r *http.Request) {
	state, err := player.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()
	if err := h.setState(ctx, state); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *httpServer) controlEndOfStream(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()
	if err := h.sendEndOfStream(ctx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *httpServer) controlResolution(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := strconv.Atoi(q.Get("width"))
	if err != nil || width <= 0 {
		writeError(w, fmt.Errorf("%w: width %q", player.ErrInvalidArgument, q.Get("width")))
		return
	}
	height, err := strconv.Atoi(q.Get("height"))
	if err != nil || height <= 0 {
		writeError(w, fmt.Errorf("%w: height %q", player.ErrInvalidArgument, q.Get("height")))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()
	if err := h.setResolution(ctx, width, height); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *httpServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", h.metrics)
	mux.HandleFunc("/graph", h.graph)
	mux.HandleFunc("POST /control/state", h.controlState)
	mux.HandleFunc("POST /control/eos", h.controlEndOfStream)
	mux.HandleFunc("POST /control/resolution", h.controlResolution)
	return mux
}
