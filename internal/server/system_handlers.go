package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/vantage/internal/database"
)

// SystemHandlers exposes process and database health
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	databases   []*database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(databases []*database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now().UTC(),
		databases:   databases,
	}
}

// HandleHealth handles GET /api/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemUsage()

	healthy := true
	dbStatus := make(map[string]string, len(h.databases))
	for _, db := range h.databases {
		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			dbStatus[db.Name()] = "unhealthy"
			healthy = false
			continue
		}
		dbStatus[db.Name()] = "ok"
	}

	status := http.StatusOK
	statusText := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         statusText,
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"databases":      dbStatus,
	})
}

// systemUsage reads CPU and memory utilization; failures report zero
// rather than failing the health check
func (h *SystemHandlers) systemUsage() (float64, float64) {
	cpuAvg := 0.0
	if percents, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to read CPU usage")
	} else if len(percents) > 0 {
		cpuAvg = percents[0]
	}

	memPct := 0.0
	if stat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to read memory usage")
	} else {
		memPct = stat.UsedPercent
	}

	return cpuAvg, memPct
}
