package main

import (
	"context"
	"time"

	"bitbucket.org/bertimus9/systemstat"

	"github.com/TUM-Dev/captureagent/playerd/player"
)

type metrics struct {
	player  player.Stats // sampled on request
	sinks   []sinkSnapshot
	cpu     systemstat.CPUSample
	mem     systemstat.MemSample
	loadAvg systemstat.LoadAvgSample
}

const metricsInterval = time.Second

func (d *daemon) metricsProcess(ctx context.Context) {
	t := time.NewTicker(metricsInterval)
	defer t.Stop()

	for {
		cpu := systemstat.GetCPUSample()
		mem := systemstat.GetMemSample()
		loadAvg := systemstat.GetLoadAvgSample()

		d.mu.Lock()
		d.metrics.cpu = cpu
		d.metrics.mem = mem
		d.metrics.loadAvg = loadAvg
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
