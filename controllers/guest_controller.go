package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking/logger"
	"hotel-booking/services"
	"hotel-booking/storage"
	"hotel-booking/utils"
)

// GuestController is the public, token-scoped wizard API.
type GuestController struct {
	Resolver *services.LinkResolver
	Guests   *services.GuestService
	Log      logger.Logger
}

func NewGuestController(resolver *services.LinkResolver, guests *services.GuestService, log logger.Logger) *GuestController {
	return &GuestController{Resolver: resolver, Guests: guests, Log: log}
}

func (gc *GuestController) Resolve(c *gin.Context) {
	link, err := gc.Resolver.Resolve(c.Request.Context(), c.Param("linkId"))
	if err != nil {
		respondError(c, gc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

func (gc *GuestController) GetWizard(c *gin.Context) {
	view, err := gc.Guests.Draft(c.Request.Context(), c.Param("linkId"))
	if err != nil {
		respondError(c, gc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wizard": view})
}

// respondWizard sends the view alongside field errors so the page re-renders with what the guest typed.
func (gc *GuestController) respondWizard(c *gin.Context, view *services.WizardView, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"wizard": view})
		return
	}
	if v, ok := services.AsValidation(err); ok && view != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"wizard": view,
			"error": gin.H{
				"code":    "error.validation",
				"message": "Some fields are invalid",
				"fields":  v.Fields,
			},
		})
		return
	}
	respondError(c, gc.Log, err)
}

func (gc *GuestController) Next(c *gin.Context) {
	var in services.StepInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c)
			return
		}
	}
	view, err := gc.Guests.Next(c.Request.Context(), c.Param("linkId"), in)
	gc.respondWizard(c, view, err)
}

func (gc *GuestController) Back(c *gin.Context) {
	view, err := gc.Guests.Back(c.Request.Context(), c.Param("linkId"))
	gc.respondWizard(c, view, err)
}

// MaxUploadRequestBytes caps a multipart upload: one document plus room for the form framing.
const MaxUploadRequestBytes = storage.MaxUploadBytes + 1<<20

// UploadFile expects multipart field "file". A rejected file still answers 200 with the error on its slot.
func (gc *GuestController) UploadFile(c *gin.Context) {
	if c.Request.ContentLength > MaxUploadRequestBytes {
		gc.rejectOversized(c)
		return
	}
	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		gc.rejectOversized(c)
		return
	}
	if err != nil {
		utils.APIError(c, http.StatusBadRequest, "error.missingFile", "No file was sent")
		return
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, gc.Log, err)
		return
	}
	defer f.Close()

	view, err := gc.Guests.AttachFile(c.Request.Context(), c.Param("linkId"), c.Param("slot"), header.Filename, f)
	gc.respondWizard(c, view, err)
}

func (gc *GuestController) rejectOversized(c *gin.Context) {
	view, err := gc.Guests.RejectFile(c.Request.Context(), c.Param("linkId"), c.Param("slot"), "", storage.ErrFileTooLarge)
	gc.respondWizard(c, view, err)
}

func (gc *GuestController) RemoveFile(c *gin.Context) {
	view, err := gc.Guests.RemoveFile(c.Request.Context(), c.Param("linkId"), c.Param("slot"))
	gc.respondWizard(c, view, err)
}

func (gc *GuestController) Submit(c *gin.Context) {
	res, err := gc.Guests.Submit(c.Request.Context(), c.Param("linkId"))
	if err != nil {
		respondError(c, gc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"result":      res,
		"redirectUrl": "/guest/" + c.Param("linkId") + "/thank-you",
	})
}
