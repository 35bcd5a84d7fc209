package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the token verification endpoint. Tokens are issued by
// the account service; the core only proves them.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/verify", func(c *fiber.Ctx) error {
		token := parseBearer(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := svc.VerifyToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return c.JSON(fiber.Map{"user_id": claims.UserID, "nickname": claims.Nickname})
	})
}

func parseBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
