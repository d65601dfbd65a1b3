package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const internalErrorMessage = "Internal server error"

func SetupMiddleware(router fiber.Router, allowOrigins string) {

	if allowOrigins == "" {
		allowOrigins = "*"
	}

	router.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	router.Use(errorHandle)
	router.Use(recover.New())
	router.Use(logRequest)
}

// errorHandle renders every failure as {"error": message}. Handlers choose the status with fiber.NewError.
// Any other error is logged in full and answered with a generic 500.
func errorHandle(c *fiber.Ctx) error {

	err := c.Next()
	if err == nil {
		return nil
	}

	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	ev := log.Error()
	if code < fiber.StatusInternalServerError {
		ev = log.Warn()
	}
	ev.Err(err).Int("status", code).Str("endpoint", c.Path()).Str("requestid", requestID(c)).Msg("Error in middleware")

	msg := internalErrorMessage
	if fe != nil {
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func logRequest(c *fiber.Ctx) error {
	log.Info().Str("endpoint", c.Path()).Str("method", c.Method()).Str("requestid", requestID(c)).Msg("Request endpoint")
	return c.Next()
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}
