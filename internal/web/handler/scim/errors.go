package scim

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// SCIM error types.
const (
	typeInvalidSyntax = "invalidSyntax"
	typeInvalidValue  = "invalidValue"
	typeInvalidFilter = "invalidFilter"
)

// sendError writes a SCIM error body.
func sendError(c *fiber.Ctx, status int, scimType, msg string) error {
	return c.Status(status).JSON(Error{
		Schemas:  []string{SchemaError},
		Status:   strconv.Itoa(status),
		ScimType: scimType,
		Detail:   msg,
	}, ContentType)
}

// ErrorHandler renders every error that reaches fiber as a SCIM error body.
// It is the application error handler, so authentication failures and
// unknown routes are rendered the same way as handler errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled request error")
	}

	return sendError(c, code, "", msg)
}
