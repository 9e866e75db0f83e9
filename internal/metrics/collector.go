// Package metrics logs periodic system resource snapshots while the
// pipeline runs, so long jobs over large survey extracts can be watched
// from the log alone.
package metrics

import (
	"context"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Collector periodically samples CPU, memory and disk usage and logs one
// line per interval.
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	lastDisk map[string]disk.IOCountersStat
	lastTime time.Time
}

// NewCollector creates a collector logging every interval. Intervals under
// a second fall back to 30s.
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start collects until the context is cancelled. The first sample is taken
// immediately to establish the disk baseline.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	fields := make([]zap.Field, 0, 6)

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		fields = append(fields, zap.Float64("sys_cpu", round1(pct[0])))
	}
	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			fields = append(fields, zap.Float64("proc_cpu", round1(pct)))
		}
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		fields = append(fields,
			zap.Float64("mem_pct", round1(vmem.UsedPercent)),
			zap.String("mem_used", humanize.IBytes(vmem.Used)))
	}

	readRate, writeRate := c.diskRates()
	fields = append(fields,
		zap.String("disk_r", humanize.IBytes(readRate)+"/s"),
		zap.String("disk_w", humanize.IBytes(writeRate)+"/s"))

	c.logger.Info("System metrics", fields...)
}

// diskRates computes read/write byte rates since the previous sample,
// summed over all disks. The first call only sets the baseline.
func (c *Collector) diskRates() (read, write uint64) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0
	}
	now := time.Now()

	if c.lastDisk != nil {
		elapsed := now.Sub(c.lastTime).Seconds()
		if elapsed >= 0.1 {
			var readDelta, writeDelta uint64
			for name, counter := range counters {
				last, ok := c.lastDisk[name]
				if !ok {
					continue
				}
				// Counters can wrap; skip the interval when they do.
				if counter.ReadBytes >= last.ReadBytes {
					readDelta += counter.ReadBytes - last.ReadBytes
				}
				if counter.WriteBytes >= last.WriteBytes {
					writeDelta += counter.WriteBytes - last.WriteBytes
				}
			}
			read = uint64(float64(readDelta) / elapsed)
			write = uint64(float64(writeDelta) / elapsed)
		}
	}

	c.lastDisk = counters
	c.lastTime = now
	return read, write
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
