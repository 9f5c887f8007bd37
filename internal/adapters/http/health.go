package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": apiVersion,
		})
	}
}

// ReadyHandler checks collaborator configuration plus NATS and cache
// connectivity. Missing collaborator endpoints make the service not
// ready; NATS and the cache are optional, so only a configured backend
// that stopped answering degrades readiness.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		// Geocoding collaborator
		if deps.GeocoderEndpoint != "" {
			checks["geocoder"] = "configured: " + deps.GeocoderEndpoint
		} else {
			checks["geocoder"] = "not configured"
			allOK = false
		}

		// Geodata collaborator
		if deps.GeodataEndpoint != "" {
			checks["geodata"] = "configured: " + deps.GeodataEndpoint
		} else {
			checks["geodata"] = "not configured"
			allOK = false
		}

		// NATS
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "disabled"
		}

		// Valkey cache
		if deps.Cache != nil {
			if err := deps.Cache.Ping(ctx); err != nil {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "disabled"
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
