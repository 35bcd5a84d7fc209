package group

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Group
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.CreatedBy = localString(c, "user_id")
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		if req.CreatedBy == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		created, err := svc.CreateGroup(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		// The creator leads the group they open.
		if _, err := svc.Join(c.Context(), created.ID, created.CreatedBy, localString(c, "nickname"), "leader"); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/invite/:code", func(c *fiber.Ctx) error {
		grp, err := svc.GetByInviteCode(c.Context(), c.Params("code"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "group not found")
		}
		return c.JSON(grp)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		grp, err := svc.GetGroup(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "group not found")
		}
		return c.JSON(grp)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req Group
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		grp, err := svc.UpdateGroup(c.Context(), c.Params("id"), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(grp)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteGroup(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/join", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Role string `json:"role"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		userID := localString(c, "user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		member, err := svc.Join(c.Context(), c.Params("id"), userID, localString(c, "nickname"), body.Role)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(member)
	})

	r.Post("/:id/leave", authMiddleware, func(c *fiber.Ctx) error {
		userID := localString(c, "user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		if err := svc.Leave(c.Context(), c.Params("id"), userID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:id/members", func(c *fiber.Ctx) error {
		members, err := svc.Members(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(members)
	})
}

func localString(c *fiber.Ctx, key string) string {
	if v, ok := c.Locals(key).(string); ok {
		return v
	}
	return ""
}
