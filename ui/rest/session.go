package rest

import (
	domainSession "github.com/AzielCF/az-funnel/domains/session"
	"github.com/AzielCF/az-funnel/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Session struct {
	Service domainSession.ISessionUsecase
}

func InitRestSession(app fiber.Router, service domainSession.ISessionUsecase) Session {
	rest := Session{Service: service}

	app.Post("/sessions", rest.Create)
	app.Get("/sessions/:session_id", rest.Get)
	app.Delete("/sessions/:session_id", rest.Close)

	// Conversation events
	app.Post("/sessions/:session_id/text", rest.SubmitText)
	app.Post("/sessions/:session_id/choice", rest.SubmitChoice)
	app.Post("/sessions/:session_id/media-ended", rest.MediaEnded)
	return rest
}

// InitRestSessionAdmin mounts the operator views. The router is expected to be behind basic auth.
func InitRestSessionAdmin(app fiber.Router, service domainSession.ISessionUsecase) Session {
	rest := Session{Service: service}
	app.Get("/sessions", rest.List)
	return rest
}

func (controller *Session) Create(c *fiber.Ctx) error {
	response, err := controller.Service.Create(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  fiber.StatusCreated,
		Code:    "SUCCESS",
		Message: "Session started",
		Results: response,
	})
}

func (controller *Session) Get(c *fiber.Ctx) error {
	request := domainSession.SessionRequest{SessionID: c.Params("session_id")}

	response, err := controller.Service.Get(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Session snapshot",
		Results: response,
	})
}

func (controller *Session) List(c *fiber.Ctx) error {
	response, err := controller.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Active sessions",
		Results: response,
	})
}

func (controller *Session) Close(c *fiber.Ctx) error {
	request := domainSession.SessionRequest{SessionID: c.Params("session_id")}

	err := controller.Service.Close(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Session closed",
	})
}

func (controller *Session) SubmitText(c *fiber.Ctx) error {
	var request domainSession.SubmitTextRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "BAD_REQUEST", Message: err.Error()})
	}
	request.SessionID = c.Params("session_id")

	response, err := controller.Service.SubmitText(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(eventResponse(response))
}

func (controller *Session) SubmitChoice(c *fiber.Ctx) error {
	var request domainSession.SubmitChoiceRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "BAD_REQUEST", Message: err.Error()})
	}
	request.SessionID = c.Params("session_id")

	response, err := controller.Service.SubmitChoice(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(eventResponse(response))
}

func (controller *Session) MediaEnded(c *fiber.Ctx) error {
	request := domainSession.SessionRequest{SessionID: c.Params("session_id")}

	response, err := controller.Service.MediaEnded(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(eventResponse(response))
}

// Ignored events are not errors; the client reads Accepted and keeps its current view.
func eventResponse(response domainSession.EventResponse) utils.ResponseData {
	message := "Event applied"
	if !response.Accepted {
		message = "Event ignored in current state"
	}
	return utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: response,
	}
}
