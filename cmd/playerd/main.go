package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/go-gst/go-glib/glib"
	"github.com/go-gst/go-gst/gst"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog"

	"github.com/TUM-Dev/captureagent/playerd/gstreamer"
	"github.com/TUM-Dev/captureagent/playerd/player"
)

// daemonConfig contains all configurable parameters
type daemonConfig struct {
	listenHTTP string
	// ip to listen on
	listenAddr string

	// the GStreamer pipeline description; a test pattern pipeline is used
	// when empty
	description string
	// comma separated names of the appsinks to observe
	sinks string

	// initial caps of the scalefilter element
	width  int
	height int

	// whether to set the pipeline to PLAYING right after building it
	autoplay bool
	// videotestsrc pattern of the demo pipeline
	demoPattern int
}

// daemon is the main service of playerd
type daemon struct {
	daemonConfig

	engine    player.Engine
	scheduler player.Scheduler

	// mu guards the state below.
	mu sync.RWMutex
	daemonState
}

// daemonState contains all the state of the daemon
type daemonState struct {
	// only touched on the main loop thread
	player   *player.Player
	mainloop *glib.MainLoop
	quit     func()
	// why the pipeline stopped, if it failed
	failure error

	observers []*sinkObserver
	metrics   metrics
}

// daemonController provides a MT-safe interface for other
// parts of the application (e.g. HTTP server or metrics collector)
type daemonController interface {
	metricsSnapshot() metrics
	graph(ctx context.Context, details gst.DebugGraphDetails) (string, error)
	setState(ctx context.Context, state player.State) error
	sendEndOfStream(ctx context.Context) error
	setResolution(ctx context.Context, width, height int) error
}

var errNoGraph = errors.New("pipeline cannot be rendered as a graph")

// invoke runs fn on the main loop thread and waits for its result.
func (d *daemon) invoke(ctx context.Context, fn func(p *player.Player) error) error {
	res := make(chan error, 1)
	d.scheduler.Schedule(func() {
		res <- fn(d.player)
	})

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *daemon) setState(ctx context.Context, state player.State) error {
	return d.invoke(ctx, func(p *player.Player) error {
		if p.Pipeline() == nil {
			return player.ErrNoPipeline
		}
		p.SetState(state)
		return nil
	})
}

func (d *daemon) sendEndOfStream(ctx context.Context) error {
	return d.invoke(ctx, func(p *player.Player) error {
		if p.Pipeline() == nil {
			return player.ErrNoPipeline
		}
		p.SendEndOfStream()
		return nil
	})
}

func (d *daemon) setResolution(ctx context.Context, width, height int) error {
	return d.invoke(ctx, func(p *player.Player) error {
		return p.SetResolution(width, height)
	})
}

type grapher interface {
	Graph(details gst.DebugGraphDetails) string
}

// get the current filter graph as 'text/vnd.graphviz'
func (d *daemon) graph(ctx context.Context, details gst.DebugGraphDetails) (string, error) {
	var dot string
	err := d.invoke(ctx, func(p *player.Player) error {
		g, ok := p.Pipeline().(grapher)
		if !ok {
			return errNoGraph
		}
		dot = g.Graph(details)
		return nil
	})
	return dot, err
}

// get a snapshot of the current metrics
func (d *daemon) metricsSnapshot() metrics {
	d.mu.RLock()
	m := d.metrics
	observers := d.observers
	d.mu.RUnlock()

	if d.player != nil {
		m.player = d.player.Stats()
	}
	m.sinks = make([]sinkSnapshot, 0, len(observers))
	for _, o := range observers {
		m.sinks = append(m.sinks, o.snapshot())
	}
	return m
}

func parseSinkNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// runPipeline builds the pipeline and attaches an observer to every
// configured sink. It has to run on the main loop thread.
func (d *daemon) runPipeline() error {
	description := d.description
	if description == "" {
		description = demoDescription(videoPattern(d.demoPattern), d.width, d.height)
		d.sinks = demoSinks
		klog.Infof("no pipeline description given, using %q", description)
	}

	if err := d.player.Build(description); err != nil {
		return err
	}
	if !d.registerBusWatch() {
		klog.Warningf("no bus watch on pipeline %s, errors will not stop it", d.player.BuildID())
	}

	observers := make([]*sinkObserver, 0)
	for _, name := range parseSinkNames(d.sinks) {
		o := newSinkObserver(name)
		if err := d.player.RegisterSink(name, o.handle); err != nil {
			return fmt.Errorf("failed to observe sink %q: %w", name, err)
		}
		observers = append(observers, o)
	}

	d.mu.Lock()
	d.observers = observers
	d.mu.Unlock()

	if err := d.player.SetResolution(d.width, d.height); err != nil {
		klog.Warningf("keeping the resolution of the pipeline description: %v", err)
	}

	if d.autoplay {
		d.player.SetState(player.Playing)
	}
	return nil
}

// endOfStream runs on the main loop thread once the whole pipeline drained.
func (d *daemon) endOfStream() {
	klog.Infof("end of stream reached, stopping pipeline %s", d.player.BuildID())
	d.player.Close()
	d.quit()
}

func main() {
	d := &daemon{}

	klog.InitFlags(nil)
	flag.StringVar(&d.listenHTTP, "http-port", "8080", "Port at which to listen for HTTP requests")
	flag.StringVar(&d.listenAddr, "listen-addr", "[::]", "Address to listen on for HTTP requests")
	flag.StringVar(&d.description, "pipeline_description", "",
		"The complete GStreamer pipeline description; a test pattern pipeline is used if empty")
	flag.StringVar(&d.sinks, "sinks", "", "Comma separated names of the appsinks to observe")
	flag.IntVar(&d.width, "width", 1280, "Width of the scalefilter caps")
	flag.IntVar(&d.height, "height", 720, "Height of the scalefilter caps")
	flag.BoolVar(&d.autoplay, "autoplay", true, "Set the pipeline to PLAYING once it is built")
	flag.IntVar(&d.demoPattern, "demo-pattern", int(videoPatternBall), "videotestsrc pattern of the test pipeline")
	flag.Parse()

	gst.Init(&os.Args)

	d.engine = gstreamer.NewEngine()
	d.scheduler = gstreamer.MainContext{}
	d.mainloop = glib.NewMainLoop(glib.MainContextDefault(), false)
	d.quit = d.mainloop.Quit
	d.player = player.New(d.engine,
		player.WithScheduler(d.scheduler),
		player.WithEndOfStream(d.endOfStream))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Create and start HTTP server
	h := &httpServer{d}
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", d.listenAddr, d.listenHTTP),
		Handler: h.handler(),
	}
	g.Go(func() error {
		klog.Infof("listening for HTTP at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP listen failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		d.metricsProcess(ctx)
		return nil
	})

	d.scheduler.Schedule(func() {
		if err := d.runPipeline(); err != nil {
			klog.Errorf("Failed to start pipeline: %v", err)
			d.failure = err
			d.quit()
		}
	})

	go func() {
		<-ctx.Done() // Wait until the context is cancelled
		// When the context is cancelled, break out of the main loop
		d.mainloop.Quit()
	}()
	d.mainloop.Run()

	d.player.Close()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		klog.Warningf("HTTP shutdown: %v", err)
	}
	if err := g.Wait(); err != nil {
		klog.Exitf("%v", err)
	}
	if d.failure != nil {
		klog.Exitf("pipeline failed: %v", d.failure)
	}
}
