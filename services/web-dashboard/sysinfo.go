package main

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats je snímek stavu procesu dashboardu pro /api/status.
type ProcessStats struct {
	RSSMB      float64 `json:"rss_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
	UptimeSec  int64   `json:"uptime_sec"`

	// Paměť hostitele: Total - Available, bez diskové cache.
	HostRAMUsedMB  float64 `json:"host_ram_used_mb"`
	HostRAMTotalMB float64 `json:"host_ram_total_mb"`
}

// CollectProcessStats čte statistiky přes gopsutil. Chyby jednotlivých měření
// jen logujeme, zbytek snímku se vrátí.
func CollectProcessStats(started time.Time, logger *slog.Logger) ProcessStats {
	stats := ProcessStats{
		Goroutines: runtime.NumGoroutine(),
		UptimeSec:  int64(time.Since(started).Seconds()),
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			stats.RSSMB = float64(memInfo.RSS) / 1024.0 / 1024.0
		} else {
			logger.Warn("Chyba při čtení RSS procesu", "error", err)
		}
		// CPUPercent počítá průměr od startu procesu, neblokuje.
		if cpu, err := p.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	} else {
		logger.Warn("Nelze otevřít vlastní proces", "error", err)
	}

	vMem, err := mem.VirtualMemory()
	if err == nil {
		stats.HostRAMUsedMB = float64(vMem.Total-vMem.Available) / 1024.0 / 1024.0
		stats.HostRAMTotalMB = float64(vMem.Total) / 1024.0 / 1024.0
	} else {
		logger.Warn("Chyba při čtení RAM statistik", "error", err)
	}

	return stats
}
