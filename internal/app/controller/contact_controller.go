package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	apperrors "github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
)

type ContactController struct {
	contactService service.ContactService
}

func NewContactController(contactService service.ContactService) *ContactController {
	return &ContactController{contactService: contactService}
}

type ContactFormRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// SubmitForm stores a contact form submission and forwards it to the
// company inbox
// POST /api/v1/contact
func (ctrl *ContactController) SubmitForm(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ContactFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "All contact form fields are required")
		return
	}

	if _, err := ctrl.contactService.SubmitMessage(req.Name, req.Email, req.Subject, req.Message); err != nil {
		log.Error("Contact form submission failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create contact message")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Thanks for reaching out. We will get back to you soon",
	})
}
