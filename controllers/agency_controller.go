package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking/logger"
	"hotel-booking/services"
)

// AgencyController is the agency's tenant administration under /api/admin.
type AgencyController struct {
	Hotels *services.HotelService
	Log    logger.Logger
}

func NewAgencyController(hotels *services.HotelService, log logger.Logger) *AgencyController {
	return &AgencyController{Hotels: hotels, Log: log}
}

func (ac *AgencyController) ListHotels(c *gin.Context) {
	hotels, err := ac.Hotels.ListHotels(c.Request.Context())
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotels": hotels})
}

func (ac *AgencyController) CreateHotel(c *gin.Context) {
	var in services.CreateHotelInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	hotel, err := ac.Hotels.CreateHotel(c.Request.Context(), in)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"hotel": hotel})
}

func (ac *AgencyController) GetHotel(c *gin.Context) {
	hotel, err := ac.Hotels.GetHotel(c.Request.Context(), c.Param("hotelId"))
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotel": hotel})
}

func (ac *AgencyController) DeleteHotel(c *gin.Context) {
	if err := ac.Hotels.DeleteHotel(c.Request.Context(), c.Param("hotelId")); err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
