package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking/logger"
	"hotel-booking/services"
	"hotel-booking/utils"
)

type bulkDeletePayload struct {
	IDs []string `json:"ids" binding:"required"`
}

// DashboardController serves /api/dashboard/:hotelId. The Role Gate has already matched the
// hotel id against the caller, so handlers take it from the path.
type DashboardController struct {
	Bookings *services.BookingService
	Log      logger.Logger
}

func NewDashboardController(bookings *services.BookingService, log logger.Logger) *DashboardController {
	return &DashboardController{Bookings: bookings, Log: log}
}

func (dc *DashboardController) ListBookings(c *gin.Context) {
	filter := services.BookingFilter{Query: c.Query("q"), Status: c.Query("status")}
	bookings, err := dc.Bookings.ListBookings(c.Request.Context(), c.Param("hotelId"), filter)
	if err != nil {
		respondError(c, dc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "total": len(bookings)})
}

// CreateBooking issues a booking together with its guest link.
func (dc *DashboardController) CreateBooking(c *gin.Context) {
	var in services.BookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	booking, link, err := dc.Bookings.IssueBooking(c.Request.Context(), c.Param("hotelId"), in)
	if err != nil {
		respondError(c, dc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"booking": booking,
		"link": gin.H{
			"linkId":    link.ID,
			"url":       utils.BuildGuestLink(dc.Bookings.FrontendURL, link.ID),
			"expiresAt": link.ExpiresAt,
		},
	})
}

func (dc *DashboardController) GetBooking(c *gin.Context) {
	booking, err := dc.Bookings.GetBooking(c.Request.Context(), c.Param("hotelId"), c.Param("bookingId"))
	if err != nil {
		respondError(c, dc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (dc *DashboardController) UpdateBooking(c *gin.Context) {
	var in services.BookingUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	booking, err := dc.Bookings.UpdateBooking(c.Request.Context(), c.Param("hotelId"), c.Param("bookingId"), in)
	if err != nil {
		respondError(c, dc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// DeleteBookings reports per id; the request succeeds even when some ids fail.
func (dc *DashboardController) DeleteBookings(c *gin.Context) {
	var payload bulkDeletePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c)
		return
	}
	res := dc.Bookings.DeleteBookings(c.Request.Context(), c.Param("hotelId"), payload.IDs)
	c.JSON(http.StatusOK, res)
}

func (dc *DashboardController) GetBookingLink(c *gin.Context) {
	linkID, url, err := dc.Bookings.GuestLink(c.Request.Context(), c.Param("hotelId"), c.Param("bookingId"))
	if err != nil {
		respondError(c, dc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"linkId": linkID, "url": url})
}
