package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	apperrors "github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
)

type NewsletterController struct {
	newsletterService service.NewsletterService
}

func NewNewsletterController(newsletterService service.NewsletterService) *NewsletterController {
	return &NewsletterController{newsletterService: newsletterService}
}

type NewsletterRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Subscribe adds an email to the newsletter
// POST /api/v1/newsletter/subscribe
func (ctrl *NewsletterController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req NewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide a valid email")
		return
	}

	subscriber, err := ctrl.newsletterService.Subscribe(req.Email)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubscribed) {
			apperrors.Conflict(c, apperrors.NewsletterAlreadySubscribed, "This email is already subscribed")
			return
		}
		log.Error("Newsletter subscription failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "subscribe")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Subscribed to the newsletter",
		"discount_code": subscriber.DiscountCode,
	})
}

// Unsubscribe removes an email from the newsletter
// POST /api/v1/newsletter/unsubscribe
func (ctrl *NewsletterController) Unsubscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req NewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide a valid email")
		return
	}

	if err := ctrl.newsletterService.Unsubscribe(req.Email); err != nil {
		if errors.Is(err, service.ErrNotSubscribed) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "This email is not subscribed")
			return
		}
		log.Error("Newsletter unsubscribe failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "unsubscribe")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Unsubscribed from the newsletter",
	})
}
