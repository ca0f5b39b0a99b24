package health

import (
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/pkg/response"
)

// Handlers exposes the health endpoint. DB and Rdb may be nil; the
// corresponding dependency is reported as disconnected.
type Handlers struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

type depStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

type healthReport struct {
	Status       string               `json:"status"`
	Runtime      runtimeInfo          `json:"runtime"`
	Dependencies map[string]depStatus `json:"dependencies"`
}

type runtimeInfo struct {
	GoVersion   string `json:"goVersion"`
	Platform    string `json:"platform"`
	HeapUsedMB  int    `json:"heapUsedMB"`
	AllocatedMB int    `json:"allocatedMB"`
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	report := healthReport{
		Dependencies: make(map[string]depStatus),
	}

	dbStatus := "disconnected"
	var dbPing *int64
	if h.DB != nil {
		if sqlDB, err := h.DB.DB(); err == nil {
			start := time.Now()
			if err := sqlDB.Ping(); err == nil {
				ms := time.Since(start).Milliseconds()
				dbPing = &ms
				dbStatus = "connected"
			} else {
				dbStatus = "error"
			}
		} else {
			dbStatus = "error"
		}
	}
	report.Dependencies["database"] = depStatus{Status: dbStatus, PingMs: dbPing}

	redisStatus := "disconnected"
	var redisPing *int64
	if h.Rdb != nil {
		start := time.Now()
		if err := h.Rdb.Ping(c.Context()).Err(); err == nil {
			ms := time.Since(start).Milliseconds()
			redisPing = &ms
			redisStatus = "connected"
		} else {
			redisStatus = "error"
		}
	}
	report.Dependencies["redis"] = depStatus{Status: redisStatus, PingMs: redisPing}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	report.Runtime = runtimeInfo{
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + " (" + runtime.GOARCH + ")",
		HeapUsedMB:  int(m.HeapInuse / 1024 / 1024),
		AllocatedMB: int(m.Alloc / 1024 / 1024),
	}

	if dbStatus == "connected" && redisStatus == "connected" {
		report.Status = "ok"
	} else {
		report.Status = "issue"
	}
	return response.Success(c, "Health report", report, nil)
}
