// Package metrics samples process resource usage together with geometry
// engine allocation counters.
package metrics

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/lwgeom"
)

// StatsSource reports engine allocation counters. *lwgeom.Context satisfies it.
type StatsSource interface {
	Stats() lwgeom.Stats
}

// Snapshot holds one metrics sample
type Snapshot struct {
	CPUPercent        float64 // System-wide CPU usage (0-100%)
	ProcessCPUPercent float64 // Per core, can exceed 100% on multi-core
	ProcessRSSMB      float64
	MemoryUsedGB      float64
	MemoryPercent     float64
	Engine            lwgeom.Stats
	Timestamp         time.Time
}

// Collector periodically samples and logs metrics
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	source   StatsSource
	proc     *process.Process

	mu   sync.RWMutex
	last *Snapshot
}

// NewCollector creates a collector. source may be nil when no engine is
// being watched.
func NewCollector(interval time.Duration, logger *zap.Logger, source StatsSource) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		source:   source,
		proc:     proc,
	}
}

// Start samples every interval until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log(c.Sample())

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.log(c.Sample())
		}
	}
}

// Last returns the most recent sample, or nil before the first one.
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Sample takes a snapshot now. Metrics the platform cannot report stay zero.
func (c *Collector) Sample() *Snapshot {
	s := &Snapshot{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSSMB = float64(info.RSS) / (1024 * 1024)
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vmem.UsedPercent
		s.MemoryUsedGB = float64(vmem.Used) / (1024 * 1024 * 1024)
	}

	if c.source != nil {
		s.Engine = c.source.Stats()
	}

	c.mu.Lock()
	c.last = s
	c.mu.Unlock()
	return s
}

func (c *Collector) log(s *Snapshot) {
	c.logger.Info("System metrics",
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPUPercent),
		zap.String("rss", formatFloat(s.ProcessRSSMB)+" MB"),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.String("mem_used", formatFloat(s.MemoryUsedGB)+" GB"),
		zap.Int64("live_geoms", s.Engine.LiveGeoms),
		zap.Int64("live_buffers", s.Engine.LiveBuffers),
		zap.Int64("buffer_bytes", s.Engine.BufferBytes),
	)
}

// formatFloat formats a float with one decimal place
func formatFloat(f float64) string {
	if f < 0.1 {
		return "0.0"
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}
