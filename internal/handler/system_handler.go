package handler

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/response"
)

// SystemHandler reports portal health and runtime figures.
type SystemHandler struct {
	rdb       *redis.Client
	api       *backend.Client
	registry  *attempt.Registry
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil when sessions
// are kept in memory.
func NewSystemHandler(rdb *redis.Client, api *backend.Client, registry *attempt.Registry, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		api:       api,
		registry:  registry,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	Redis        string `json:"redis"`
	Backend      string `json:"backend"`
	LiveAttempts int    `json:"live_attempts"`

	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heap_alloc"`
	NumGC       uint32 `json:"num_gc"`
	AppRSSBytes uint64 `json:"app_rss_bytes"`
	GoVersion   string `json:"go_version"`
}

// Health godoc
// GET /health
// Returns 503 when redis is configured but unreachable. An unreachable
// backend is reported but does not fail the check.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	st := healthStatus{
		Status:       "ok",
		Uptime:       formatDuration(time.Since(h.startTime)),
		Redis:        "disabled",
		Backend:      h.api.BaseURL(),
		LiveAttempts: h.registry.Len(),
		GoVersion:    runtime.Version(),
	}

	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Error().Err(err).Msg("Redis ping failed")
			st.Status = "degraded"
			st.Redis = "down"
		} else {
			st.Redis = "up"
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st.Goroutines = runtime.NumGoroutine()
	st.HeapAlloc = ms.HeapAlloc
	st.NumGC = ms.NumGC
	st.AppRSSBytes, _ = readProcessRSS()

	status := http.StatusOK
	if st.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, st)
}

// readProcessRSS reads VmRSS from /proc/self/status.
func readProcessRSS() (uint64, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VmRSS:") {
			// Format: "VmRSS:     16384 kB"
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return 0, fmt.Errorf("unexpected VmRSS line")
			}
			val, _ := strconv.ParseUint(fields[1], 10, 64)
			return val * 1024, nil
		}
	}
	return 0, fmt.Errorf("VmRSS not found")
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
