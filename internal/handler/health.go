package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/labelflow/labelflow/api/internal/pkg/circuitbreaker"
)

// Pinger checks one dependency
type Pinger func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks    map[string]Pinger
	breakers  func() map[string]circuitbreaker.Stats
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler creates a new health handler. breakers may be nil.
func NewHealthHandler(checks map[string]Pinger, breakers func() map[string]circuitbreaker.Stats, version string) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		breakers:  breakers,
		version:   version,
		startTime: time.Now(),
		timeout:   3 * time.Second,
	}
}

// HealthStatus represents health check status
type HealthStatus struct {
	Status    string                          `json:"status"`
	Version   string                          `json:"version"`
	Uptime    string                          `json:"uptime"`
	Timestamp string                          `json:"timestamp"`
	Checks    map[string]string               `json:"checks"`
	Breakers  map[string]circuitbreaker.Stats `json:"breakers,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := HealthStatus{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.checks)),
	}

	for name, err := range h.ping(c.UserContext()) {
		if err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = "unhealthy: " + err.Error()
		} else {
			status.Checks[name] = "healthy"
		}
	}

	if h.breakers != nil {
		status.Breakers = h.breakers()
		for _, s := range status.Breakers {
			if s.State == circuitbreaker.StateOpen.String() && status.Status == "healthy" {
				status.Status = "degraded"
			}
		}
	}

	statusCode := fiber.StatusOK
	if status.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(status)
}

// Liveness handles GET /livez
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	results := h.ping(c.UserContext())

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if results[name] != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"reason": name + " unavailable",
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "ready",
	})
}

func (h *HealthHandler) ping(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]error, len(h.checks))
	)
	for name, check := range h.checks {
		g.Go(func() error {
			err := check(ctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RegisterRoutes registers health check and metrics routes
func (h *HealthHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/livez", h.Liveness)
	app.Get("/readyz", h.Readiness)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
