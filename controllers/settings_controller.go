package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking/logger"
	"hotel-booking/services"
)

type SettingsController struct {
	Hotels *services.HotelService
	Log    logger.Logger
}

func NewSettingsController(hotels *services.HotelService, log logger.Logger) *SettingsController {
	return &SettingsController{Hotels: hotels, Log: log}
}

func (sc *SettingsController) GetSettings(c *gin.Context) {
	hotel, err := sc.Hotels.GetHotel(c.Request.Context(), c.Param("hotelId"))
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotel": hotel, "smtpConfigured": hotel.HasSMTP()})
}

func (sc *SettingsController) UpdateSettings(c *gin.Context) {
	var in services.SettingsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	hotel, err := sc.Hotels.UpdateSettings(c.Request.Context(), c.Param("hotelId"), in)
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotel": hotel, "smtpConfigured": hotel.HasSMTP()})
}

// GeneratePolicies returns draft text; nothing is stored until the settings are saved.
func (sc *SettingsController) GeneratePolicies(c *gin.Context) {
	var req services.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	text, err := sc.Hotels.GeneratePolicies(c.Request.Context(), c.Param("hotelId"), req)
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policies": text})
}
