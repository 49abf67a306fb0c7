package controller

import (
	"errors"

	"ai-reading-be/internal/pkg/serverutils"
	"ai-reading-be/internal/service"
	"ai-reading-be/pkg/document"
	"ai-reading-be/pkg/reading"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// httpError maps domain errors to HTTP statuses. Anything unknown is passed
// through and rendered as a 500 by the error handler.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrDocumentNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyDocument),
		errors.Is(err, reading.ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDocumentTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, document.ErrUnsupportedType):
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, reading.ErrNoContent):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, reading.ErrRequestPending):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, reading.ErrNoDocument):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return err
}

// tutorError is httpError for chat turns, where any unmapped failure came
// from the inference provider.
func tutorError(err error) error {
	mapped := httpError(err)
	var fe *fiber.Error
	if mapped == nil || errors.As(mapped, &fe) {
		return mapped
	}
	return fiber.NewError(fiber.StatusBadGateway, "tutor is unavailable: "+err.Error())
}

func currentUser(ctx *fiber.Ctx) (uuid.UUID, error) {
	userId, err := uuid.Parse(serverutils.UserID(ctx))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user id in token")
	}
	return userId, nil
}

func uuidParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
