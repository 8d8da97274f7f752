package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking/logger"
	"hotel-booking/services"
	"hotel-booking/utils"
)

// respondError maps service errors onto the API error envelope. Anything unrecognised is logged
// with its detail and answered with a generic 500.
func respondError(c *gin.Context, log logger.Logger, err error) {
	if v, ok := services.AsValidation(err); ok {
		utils.ValidationError(c, v.Fields)
		return
	}

	switch {
	case errors.Is(err, services.ErrHotelNotFound):
		utils.APIError(c, http.StatusNotFound, "error.hotelNotFound", "Hotel not found")
	case errors.Is(err, services.ErrBookingNotFound):
		utils.APIError(c, http.StatusNotFound, "error.bookingNotFound", "Booking not found")
	case errors.Is(err, services.ErrLinkNotFound):
		utils.APIError(c, http.StatusNotFound, "error.linkNotFound", "This booking link does not exist")
	case errors.Is(err, services.ErrLinkUsed):
		utils.APIError(c, http.StatusConflict, "error.linkUsed", "This booking link has already been used")
	case errors.Is(err, services.ErrLinkExpired):
		utils.APIError(c, http.StatusGone, "error.linkExpired", "This booking link has expired")
	case errors.Is(err, services.ErrWizardStep):
		utils.APIError(c, http.StatusConflict, "error.wizardStep", "This action is not available at the current step")
	case errors.Is(err, services.ErrUnknownFileSlot):
		utils.APIError(c, http.StatusNotFound, "error.unknownFileSlot", "Unknown file slot")
	case errors.Is(err, services.ErrDraftConflict):
		utils.APIError(c, http.StatusConflict, "error.draftConflict", "Your answers changed in another window, please reload")
	case errors.Is(err, services.ErrEmailTaken):
		utils.APIError(c, http.StatusConflict, "error.emailTaken", "This email is already registered")
	case errors.Is(err, services.ErrTextUnavailable):
		utils.APIError(c, http.StatusServiceUnavailable, "error.textUnavailable", "Text generation is not available right now")
	default:
		log.Error("request failed", map[string]interface{}{
			"route": c.FullPath(),
			"error": err.Error(),
		})
		utils.APIError(c, http.StatusInternalServerError, "error.internal", "Something went wrong, please try again")
	}
}

func badRequest(c *gin.Context) {
	utils.APIError(c, http.StatusBadRequest, "error.invalidPayload", "Invalid request body")
}
