// utils/http.go - JSON response helpers
package utils

import (
	"savepoint/services"

	"github.com/gofiber/fiber/v2"
)

// Success sends a success envelope. Map payloads are merged into the
// envelope; everything else goes under "data".
func Success(c *fiber.Ctx, data interface{}) error {
	response := fiber.Map{"success": true}

	if dataMap, ok := data.(fiber.Map); ok {
		for k, v := range dataMap {
			response[k] = v
		}
	} else if dataMap, ok := data.(map[string]interface{}); ok {
		for k, v := range dataMap {
			response[k] = v
		}
	} else if data != nil {
		response["data"] = data
	}

	return c.JSON(response)
}

// Fail sends an error envelope with the given status.
func Fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// FailErr maps a service failure to its HTTP response.
func FailErr(c *fiber.Ctx, serr *services.ServiceError) error {
	return Fail(c, serr.Status, serr.Message)
}
