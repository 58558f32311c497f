package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/pfiers/compose-apps-exporter/internal/core/ports"
)

// MetricsHandler exposes the derivation pipeline over HTTP. Derivation
// errors never reach the client body: the scraper gets a generic 500 and
// the detailed diagnostic goes to the logger.
type MetricsHandler struct {
	collector ports.MetricsCollector
	logger    *slog.Logger
}

func NewMetricsHandler(collector ports.MetricsCollector, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{collector: collector, logger: logger}
}

// Root permanently redirects to /metrics.
func (h *MetricsHandler) Root(c *fiber.Ctx) error {
	return c.Redirect("/metrics", fiber.StatusPermanentRedirect)
}

// Metrics derives the metrics page fresh for every scrape.
func (h *MetricsHandler) Metrics(c *fiber.Ctx) error {
	page, err := h.collector.Collect(c.Context())
	if err != nil {
		h.logger.Error("metrics derivation failed", "err", err)
		return c.Status(fiber.StatusInternalServerError).
			SendString("Internal server error. Check logs for details.")
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(page)
}

// NotFound answers every unrouted method/path pair with an empty 404 body.
func (h *MetricsHandler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).SendString("")
}

// Register wires the handler's routes into the fiber app, including the
// catch-all. Must be called after all other routes.
func (h *MetricsHandler) Register(app *fiber.App) {
	app.Get("/", h.Root)
	app.Get("/metrics", h.Metrics)
	app.Use(h.NotFound)
}
