package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const bearerPrefix = "bearer "

// RequireBearer creates Fiber middleware that rejects requests without a valid bearer token.
// Failures are returned as *fiber.Error so the application error handler renders them.
func RequireBearer(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := svc.Verify(bearerToken(c.Get(fiber.HeaderAuthorization)))
		if err == nil {
			return c.Next()
		}

		c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="scim"`)

		switch {
		case errors.Is(err, ErrMissingToken):
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header with bearer token required")
		case errors.Is(err, ErrInvalidToken):
			log.Warn().Str("ip", c.IP()).Str("path", c.Path()).Msg("rejected invalid bearer token")
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid bearer token")
		default:
			log.Error().Err(err).Msg("failed to verify bearer token")
			return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
		}
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(header[len(bearerPrefix):])
}
