package ride

import (
	"errors"

	"backend-voltride/internal/analytics"
	"backend-voltride/internal/track"

	"github.com/gofiber/fiber/v2"
)

type uploadRequest struct {
	GroupID        string           `json:"group_id"`
	BatteryWhPerKm *float64         `json:"battery_wh_per_km"`
	Points         []track.GpsPoint `json:"points"`
}

type analyzeResponse struct {
	Analysis analytics.Analysis `json:"analysis"`
	Eco      analytics.EcoScore `json:"eco"`
	Stats    track.Stats        `json:"compression"`
	Summary  Summary            `json:"summary"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req uploadRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		userID := localString(c, "user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}

		res, err := Finalize(req.Points, req.BatteryWhPerKm)
		if err != nil {
			if errors.Is(err, analytics.ErrInsufficientData) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		saved, err := svc.SaveRide(c.Context(), RideFromResult(userID, req.GroupID, res), res.Points)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	})

	r.Post("/analyze", func(c *fiber.Ctx) error {
		var req uploadRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := Finalize(req.Points, req.BatteryWhPerKm)
		if err != nil {
			if errors.Is(err, analytics.ErrInsufficientData) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(analyzeResponse{
			Analysis: res.Analysis,
			Eco:      res.Eco,
			Stats:    res.Stats,
			Summary:  res.Summary,
		})
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID := localString(c, "user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		rides, err := svc.ListRides(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(rides)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		ride, err := svc.GetRide(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "ride not found")
		}
		return c.JSON(ride)
	})

	r.Get("/:id/points", func(c *fiber.Ctx) error {
		points, err := svc.RidePoints(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "ride not found")
		}
		return c.JSON(points)
	})
}

func localString(c *fiber.Ctx, key string) string {
	if v, ok := c.Locals(key).(string); ok {
		return v
	}
	return ""
}
