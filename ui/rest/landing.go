package rest

import (
	domainLanding "github.com/AzielCF/az-funnel/domains/landing"
	"github.com/AzielCF/az-funnel/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Landing struct {
	Service domainLanding.ILandingUsecase
}

func InitRestLanding(app fiber.Router, service domainLanding.ILandingUsecase) Landing {
	rest := Landing{Service: service}
	app.Get("/landing", rest.GetPage)
	app.Get("/landing/notification", rest.NextNotification)
	return rest
}

func (controller *Landing) GetPage(c *fiber.Ctx) error {
	response, err := controller.Service.GetPage(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Landing page",
		Results: response,
	})
}

func (controller *Landing) NextNotification(c *fiber.Ctx) error {
	response, err := controller.Service.NextNotification(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: response.Message,
		Results: response,
	})
}
