package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/backend-tour/internal/common"
)

const (
	defaultDBTimeout    = 500 * time.Millisecond
	defaultRedisTimeout = 300 * time.Millisecond
)

var draining atomic.Bool

// SetReady toggles readiness; the server clears it before shutting down.
func SetReady(v bool) {
	draining.Store(!v)
}

// Checker probes the stores the service depends on.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
	// EmailConfigured is reported so operators can see when sending is off.
	EmailConfigured bool
}

// Live answers as long as the process serves HTTP.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes postgres and redis in parallel. Each store reports "ok" or the
// probe error; the email function is informational only.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting down"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"})
		return
	}

	var dbErr, redisErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dbErr = h.Checker.PingDB(r.Context(), orDefault(h.DBTimeout, defaultDBTimeout))
	}()
	go func() {
		defer wg.Done()
		redisErr = h.Checker.PingRedis(r.Context(), orDefault(h.RedisTimeout, defaultRedisTimeout))
	}()
	wg.Wait()

	report := map[string]string{
		"status": "ok",
		"db":     probeResult(dbErr),
		"redis":  probeResult(redisErr),
		"email":  "disabled",
	}
	if h.EmailConfigured {
		report["email"] = "configured"
	}
	code := http.StatusOK
	if dbErr != nil || redisErr != nil {
		report["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, report)
}

func probeResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
