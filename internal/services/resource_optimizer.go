package services

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// SystemSnapshot captures host resource usage at a point in time.
type SystemSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUCores      int       `json:"cpu_cores"`
	CPUUsage      float64   `json:"cpu_usage"`
	MemoryTotalGB float64   `json:"memory_total_gb"`
	MemoryUsage   float64   `json:"memory_usage"`
	Goroutines    int       `json:"goroutines"`
}

// ResourceOptimizerConfig bounds the concurrency the optimizer recommends.
type ResourceOptimizerConfig struct {
	MinWorkers      int
	MaxWorkers      int
	MemoryThreshold float64
}

// ResourceOptimizer sizes warming and lookup concurrency from the host's
// CPU and memory, and reports resource usage for health checks.
type ResourceOptimizer struct {
	mu       sync.RWMutex
	config   ResourceOptimizerConfig
	cpuCores int
	memoryGB float64
	logger   *logrus.Logger

	// overridable in tests
	cpuPercent   func() (float64, error)
	virtualUsage func() (total uint64, usedPercent float64, err error)
}

// NewResourceOptimizer creates an optimizer and probes total memory once.
func NewResourceOptimizer(config ResourceOptimizerConfig, logger *logrus.Logger) *ResourceOptimizer {
	if config.MinWorkers <= 0 {
		config.MinWorkers = 2
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 20
	}
	if config.MemoryThreshold <= 0 {
		config.MemoryThreshold = 85.0
	}
	if logger == nil {
		logger = logrus.New()
	}

	ro := &ResourceOptimizer{
		config:   config,
		cpuCores: runtime.NumCPU(),
		logger:   logger,
		cpuPercent: func() (float64, error) {
			values, err := cpu.Percent(0, false)
			if err != nil || len(values) == 0 {
				return 0, err
			}
			return values[0], nil
		},
		virtualUsage: func() (uint64, float64, error) {
			info, err := mem.VirtualMemory()
			if err != nil {
				return 0, 0, err
			}
			return info.Total, info.UsedPercent, nil
		},
	}

	if total, _, err := ro.virtualUsage(); err == nil {
		ro.memoryGB = float64(total) / (1024 * 1024 * 1024)
	} else {
		ro.logger.WithError(err).Warn("Could not get memory info, using default")
		ro.memoryGB = 8.0
	}

	ro.logger.WithFields(logrus.Fields{
		"cpu_cores": ro.cpuCores,
		"memory_gb": ro.memoryGB,
	}).Info("Resource optimizer initialized")
	return ro
}

// RecommendedWorkers returns the concurrency to use when none is configured:
// two workers per core, halved under memory pressure, clamped to the
// configured bounds.
func (ro *ResourceOptimizer) RecommendedWorkers() int {
	ro.mu.RLock()
	defer ro.mu.RUnlock()

	workers := ro.cpuCores * 2
	if _, used, err := ro.virtualUsage(); err == nil && used > ro.config.MemoryThreshold {
		workers /= 2
	}
	if ro.memoryGB < 2 {
		workers /= 2
	}
	if workers < ro.config.MinWorkers {
		workers = ro.config.MinWorkers
	}
	if workers > ro.config.MaxWorkers {
		workers = ro.config.MaxWorkers
	}
	return workers
}

// Snapshot samples current resource usage. Probe failures leave the
// corresponding fields zero.
func (ro *ResourceOptimizer) Snapshot() SystemSnapshot {
	ro.mu.RLock()
	defer ro.mu.RUnlock()

	snapshot := SystemSnapshot{
		Timestamp:     time.Now(),
		CPUCores:      ro.cpuCores,
		MemoryTotalGB: ro.memoryGB,
		Goroutines:    runtime.NumGoroutine(),
	}
	if usage, err := ro.cpuPercent(); err == nil {
		snapshot.CPUUsage = usage
	}
	if _, used, err := ro.virtualUsage(); err == nil {
		snapshot.MemoryUsage = used
	}
	return snapshot
}
