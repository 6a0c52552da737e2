package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/pkg/response"
)

func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string)
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return nil
}

// jobError maps a service error onto the API error envelope
func jobError(c *fiber.Ctx, err error) error {
	message := err.Error()
	switch model.KindOf(err) {
	case model.KindInvalidInput:
		return response.ValidationError(c, message, nil)
	case model.KindNotFound:
		return response.NotFound(c, "Video not found")
	case model.KindNotReady:
		return response.NotReady(c, message)
	case model.KindConflict:
		return response.Conflict(c, message)
	case model.KindNoPlayableMedia:
		return response.NoPlayableMedia(c, message)
	case model.KindGenerationFailure:
		return response.AIError(c, message)
	default:
		log.WithError(err).WithField("path", c.Path()).Error("Request failed")
		return response.ServiceError(c, "Internal error")
	}
}
