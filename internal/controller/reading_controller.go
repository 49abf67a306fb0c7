package controller

import (
	"ai-reading-be/internal/dto"
	"ai-reading-be/internal/pkg/serverutils"
	"ai-reading-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IReadingController interface {
	RegisterRoutes(r fiber.Router)
	Open(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	ToggleMastered(ctx *fiber.Ctx) error
	BeginAdaptiveLearning(ctx *fiber.Ctx) error
	EnterQuiz(ctx *fiber.Ctx) error
	SelectQuizOption(ctx *fiber.Ctx) error
	SubmitQuiz(ctx *fiber.Ctx) error
	EnterReading(ctx *fiber.Ctx) error
	SkipToReading(ctx *fiber.Ctx) error
	SetDocType(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Close(ctx *fiber.Ctx) error
}

type readingController struct {
	service   service.IReadingService
	jwtSecret string
}

func NewReadingController(service service.IReadingService, jwtSecret string) IReadingController {
	return &readingController{service: service, jwtSecret: jwtSecret}
}

func (c *readingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/reading/v1/:documentId")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("", c.Open)
	h.Get("", c.Show)
	h.Delete("", c.Close)
	h.Post("prerequisites/:prerequisiteId/toggle", c.ToggleMastered)
	h.Post("adaptive", c.BeginAdaptiveLearning)
	h.Post("quiz", c.EnterQuiz)
	h.Put("quiz/selection", c.SelectQuizOption)
	h.Post("quiz/submit", c.SubmitQuiz)
	h.Post("reading", c.EnterReading)
	h.Post("skip", c.SkipToReading)
	h.Put("doc-type", c.SetDocType)
	h.Post("chat", c.Send)
}

// owner extracts the caller and the document of the route.
func owner(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := currentUser(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	documentId, err := uuidParam(ctx, "documentId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userId, documentId, nil
}

func respond(ctx *fiber.Ctx, message string, res *dto.ReadingSessionResponse, err error) error {
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse(message, res))
}

func (c *readingController) Open(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Open(ctx.Context(), userId, documentId)
	return respond(ctx, "Success open reading session", res, err)
}

func (c *readingController) Show(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Show(ctx.Context(), userId, documentId)
	return respond(ctx, "Success show reading session", res, err)
}

func (c *readingController) ToggleMastered(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ToggleMastered(ctx.Context(), userId, documentId, ctx.Params("prerequisiteId"))
	return respond(ctx, "Success toggle prerequisite", res, err)
}

func (c *readingController) BeginAdaptiveLearning(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.BeginAdaptiveLearning(ctx.Context(), userId, documentId)
	return respond(ctx, "Success begin adaptive learning", res, err)
}

func (c *readingController) EnterQuiz(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.EnterQuiz(ctx.Context(), userId, documentId)
	return respond(ctx, "Success enter quiz", res, err)
}

func (c *readingController) SelectQuizOption(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}

	var req dto.SelectQuizOptionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SelectQuizOption(ctx.Context(), userId, documentId, &req)
	return respond(ctx, "Success select quiz option", res, err)
}

func (c *readingController) SubmitQuiz(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.SubmitQuiz(ctx.Context(), userId, documentId)
	return respond(ctx, "Success submit quiz", res, err)
}

func (c *readingController) EnterReading(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.EnterReading(ctx.Context(), userId, documentId)
	return respond(ctx, "Success enter reading", res, err)
}

func (c *readingController) SkipToReading(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.SkipToReading(ctx.Context(), userId, documentId)
	return respond(ctx, "Success skip to reading", res, err)
}

func (c *readingController) SetDocType(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}

	var req dto.SetDocTypeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetDocType(ctx.Context(), userId, documentId, &req)
	return respond(ctx, "Success set document type", res, err)
}

func (c *readingController) Send(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Send(ctx.Context(), userId, documentId, &req)
	if err != nil {
		return tutorError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *readingController) Close(ctx *fiber.Ctx) error {
	userId, documentId, err := owner(ctx)
	if err != nil {
		return err
	}
	if err := c.service.Close(ctx.Context(), userId, documentId); err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success close reading session", nil))
}
