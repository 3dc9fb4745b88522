package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

type readinessResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

func RegisterHealthRoutes(app fiber.Router, sqlDB *sql.DB, rdb *redis.Client) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(sqlDB, rdb))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// ReadyzHandler reports on the order store and the rate-limiter backend.
// Either one down means events cannot be dispatched.
func ReadyzHandler(sqlDB *sql.DB, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		deps := map[string]string{
			"postgres": dependencyStatus(sqlDB.PingContext(ctx)),
			"redis":    dependencyStatus(rdb.Ping(ctx).Err()),
		}

		status := "ready"
		statusCode := fiber.StatusOK
		for _, state := range deps {
			if state != "ok" {
				status = "not_ready"
				statusCode = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(statusCode).JSON(readinessResponse{
			Status:       status,
			Dependencies: deps,
		})
	}
}

func dependencyStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "ok"
}
