package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hotel-booking/logger"
	"hotel-booking/middleware"
	"hotel-booking/models"
	"hotel-booking/services"
)

// PagesController returns the view model of each page. The frontend renders them.
type PagesController struct {
	Hotels   *services.HotelService
	Resolver *services.LinkResolver
	Log      logger.Logger
}

func NewPagesController(hotels *services.HotelService, resolver *services.LinkResolver, log logger.Logger) *PagesController {
	return &PagesController{Hotels: hotels, Resolver: resolver, Log: log}
}

func (pc *PagesController) AgencyLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "admin_login"})
}

func (pc *PagesController) HotelierLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "login"})
}

func (pc *PagesController) AgencyHome(c *gin.Context) {
	hotels, err := pc.Hotels.ListHotels(c.Request.Context())
	if err != nil {
		respondError(c, pc.Log, err)
		return
	}
	view := gin.H{
		"page":    "admin",
		"section": strings.Trim(strings.TrimPrefix(c.Request.URL.Path, "/admin"), "/"),
		"hotels":  hotels,
	}
	if p := middleware.PrincipalFrom(c); p != nil {
		view["email"] = p.Email()
	}
	c.JSON(http.StatusOK, view)
}

func (pc *PagesController) Dashboard(c *gin.Context) {
	hotel, err := pc.Hotels.GetHotel(c.Request.Context(), c.Param("hotelId"))
	if err != nil {
		respondError(c, pc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":     "dashboard",
		"section":  strings.Trim(c.Param("rest"), "/"),
		"hotel":    gin.H{"id": hotel.ID, "name": hotel.Name},
		"statuses": models.BookingStatuses,
	})
}

// GuestLanding shows the prefilled terms, or which error state the link is in.
func (pc *PagesController) GuestLanding(c *gin.Context) {
	link, err := pc.Resolver.Resolve(c.Request.Context(), c.Param("linkId"))
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"page": "guest", "state": "ready", "link": link})
		return
	}

	var state, message string
	switch {
	case errors.Is(err, services.ErrLinkUsed):
		state, message = "used", "This booking has already been completed."
	case errors.Is(err, services.ErrLinkExpired):
		state, message = "expired", "This booking link has expired. Please contact the hotel for a new one."
	case errors.Is(err, services.ErrLinkNotFound):
		state, message = "not_found", "This booking link is not valid."
	default:
		respondError(c, pc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "guest", "state": state, "message": message})
}

func (pc *PagesController) ThankYou(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page":    "thank_you",
		"linkId":  c.Param("linkId"),
		"message": "Thank you. Your booking details were sent to the hotel and a confirmation is on its way.",
	})
}
